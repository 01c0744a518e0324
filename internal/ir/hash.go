package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainDeclaration = "bindgen/declaration/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DeclarationHash computes the content hash of a declaration.
// Two declarations with the same hash are interchangeable; stores use it to
// make imports idempotent and to reject conflicting redefinitions.
func DeclarationHash(d *Declaration) (string, error) {
	canonical, err := MarshalCanonical(d)
	if err != nil {
		return "", fmt.Errorf("DeclarationHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDeclaration, canonical), nil
}

// MustDeclarationHash is like DeclarationHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustDeclarationHash(d *Declaration) string {
	hash, err := DeclarationHash(d)
	if err != nil {
		panic(err)
	}
	return hash
}
