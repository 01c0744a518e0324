package resolver

import "strings"

// RequestKind distinguishes exact-name requests from namespace wildcards.
type RequestKind int

const (
	// RequestExact names a single method or type.
	RequestExact RequestKind = iota + 1
	// RequestWildcard selects every extern method under a namespace prefix.
	RequestWildcard
)

// WildcardSuffix marks a namespace-prefix request on the command line.
const WildcardSuffix = ".*"

// Request is one entry point for resolution.
type Request struct {
	Kind RequestKind
	// Name is the exact name (qualified or short) for RequestExact, or the
	// namespace prefix for RequestWildcard. The empty prefix selects the
	// full surface.
	Name string
}

// Exact returns a request for a single method or type.
func Exact(name string) Request {
	return Request{Kind: RequestExact, Name: name}
}

// Wildcard returns a request for every extern method under prefix.
func Wildcard(prefix string) Request {
	return Request{Kind: RequestWildcard, Name: prefix}
}

// FullSurface returns the wildcard that selects every extern method.
func FullSurface() Request {
	return Wildcard("")
}

// ParseRequest interprets a command-line argument. "Ns.Sub.*" is a
// wildcard over "Ns.Sub", a bare "*" is the full surface, and anything else
// is an exact name.
func ParseRequest(arg string) Request {
	arg = strings.TrimSpace(arg)
	switch {
	case arg == "*":
		return FullSurface()
	case strings.HasSuffix(arg, WildcardSuffix):
		return Wildcard(strings.TrimSuffix(arg, WildcardSuffix))
	default:
		return Exact(arg)
	}
}

// ParseRequests interprets command-line arguments. No arguments means the
// full surface.
func ParseRequests(args []string) []Request {
	if len(args) == 0 {
		return []Request{FullSurface()}
	}
	reqs := make([]Request, 0, len(args))
	for _, a := range args {
		reqs = append(reqs, ParseRequest(a))
	}
	return reqs
}

// String returns the command-line form of the request.
func (r Request) String() string {
	if r.Kind == RequestWildcard {
		if r.Name == "" {
			return "*"
		}
		return r.Name + WildcardSuffix
	}
	return r.Name
}
