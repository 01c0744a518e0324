package resolver

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned when resolution observes cancellation.
// The returned error also wraps the context's error.
var ErrCancelled = errors.New("resolution cancelled")

// NameNotFoundError reports a request that matched nothing.
// It is recorded per request and never aborts the batch.
type NameNotFoundError struct {
	Request Request
}

func (e *NameNotFoundError) Error() string {
	if e.Request.Kind == RequestWildcard {
		return fmt.Sprintf("no extern methods match %q", e.Request.String())
	}
	return fmt.Sprintf("name not found: %q is neither a method nor a type", e.Request.Name)
}

// BrokenMetadataError reports a referenced name missing from the metadata
// source. It aborts resolution.
type BrokenMetadataError struct {
	Name     string // missing dependency
	Referrer string // declaration that references it
}

func (e *BrokenMetadataError) Error() string {
	return fmt.Sprintf("broken metadata: %s references %s, which does not exist", e.Referrer, e.Name)
}

func cancelled(err error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, err)
}
