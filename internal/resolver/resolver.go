package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/roach88/bindgen/internal/ir"
	"github.com/roach88/bindgen/internal/metadata"
)

// Options tunes resolution.
type Options struct {
	// WideCharOnly drops an ANSI "FooA" method from wildcard enumerations
	// when "FooW" exists in the same namespace. Exact requests are never
	// filtered.
	WideCharOnly bool
}

// Outcome is the per-request result of a resolution.
type Outcome struct {
	Request Request
	Roots   []string // fully-qualified names the request seeded
	Err     error    // *NameNotFoundError, or nil
}

// Result is a completed resolution.
type Result struct {
	Set      *Set
	Outcomes []Outcome // one per request, in request order
}

// Failures returns the outcomes that carry an error.
func (r *Result) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Resolver computes dependency closures over a metadata source.
type Resolver struct {
	src  metadata.Source
	opts Options
}

// New creates a Resolver.
func New(src metadata.Source, opts Options) *Resolver {
	return &Resolver{src: src, opts: opts}
}

// lookupFunc is one attempt in an ordered lookup list.
type lookupFunc func(ctx context.Context, name string) (ir.Declaration, bool, error)

// Resolve computes the closure of reqs.
//
// Unknown request names are reported per request in Result.Outcomes. The
// returned error is reserved for conditions that invalidate the whole
// closure: *BrokenMetadataError, metadata read failures and cancellation
// (errors.Is(err, ErrCancelled)). No Result is returned alongside an error.
func (r *Resolver) Resolve(ctx context.Context, reqs []Request) (*Result, error) {
	set := NewSet()
	queue := newWorkQueue()
	result := &Result{Set: set, Outcomes: make([]Outcome, 0, len(reqs))}

	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return nil, cancelled(err)
		}
		outcome, err := r.seed(ctx, req, queue)
		if err != nil {
			return nil, err
		}
		if outcome.Err != nil {
			slog.Debug("request not found", "request", req.String())
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	// Dependencies are looked up by exact name: types first, then methods,
	// since a handle's release function is a method.
	deps := []lookupFunc{r.src.FindType, r.src.FindMethod}

	for {
		item, ok := queue.Dequeue()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, cancelled(err)
		}
		if set.Contains(item.name) {
			continue
		}

		d := item.decl
		if d == nil {
			found, ok, err := lookup(ctx, deps, item.name)
			if err != nil {
				return nil, fmt.Errorf("resolve %s (referenced by %s): %w", item.name, item.referrer, err)
			}
			if !ok {
				return nil, &BrokenMetadataError{Name: item.name, Referrer: item.referrer}
			}
			d = &found
		}

		set.Add(*d)

		var discovered []string
		for _, ref := range d.Refs {
			if !set.Contains(ref) && !queue.Queued(ref) {
				discovered = append(discovered, ref)
			}
		}
		sort.Strings(discovered)
		for _, name := range discovered {
			queue.Enqueue(workItem{name: name, referrer: d.Name})
		}
	}

	slog.Debug("resolution complete",
		"requests", len(reqs),
		"declarations", set.Len(),
		"failures", len(result.Failures()))

	return result, nil
}

// seed enqueues the roots of one request.
func (r *Resolver) seed(ctx context.Context, req Request, queue *workQueue) (Outcome, error) {
	outcome := Outcome{Request: req, Roots: []string{}}

	switch req.Kind {
	case RequestExact:
		// Methods first: a name that is both a method and a type means the
		// method.
		d, ok, err := lookup(ctx, []lookupFunc{r.src.FindMethod, r.src.FindType}, req.Name)
		if err != nil {
			return outcome, fmt.Errorf("resolve request %q: %w", req.Name, err)
		}
		if !ok {
			outcome.Err = &NameNotFoundError{Request: req}
			return outcome, nil
		}
		queue.Enqueue(workItem{name: d.Name, decl: &d})
		outcome.Roots = append(outcome.Roots, d.Name)

	case RequestWildcard:
		methods, err := r.src.EnumerateExternMethods(ctx, req.Name)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return outcome, cancelled(ctxErr)
			}
			return outcome, fmt.Errorf("resolve request %q: %w", req.String(), err)
		}
		if r.opts.WideCharOnly {
			methods = dropANSI(methods)
		}
		if len(methods) == 0 {
			outcome.Err = &NameNotFoundError{Request: req}
			return outcome, nil
		}
		for i := range methods {
			queue.Enqueue(workItem{name: methods[i].Name, decl: &methods[i]})
			outcome.Roots = append(outcome.Roots, methods[i].Name)
		}

	default:
		return outcome, fmt.Errorf("unknown request kind %d for %q", req.Kind, req.Name)
	}

	return outcome, nil
}

// lookup tries each function in order and returns the first hit.
// A miss is a plain negative result, not an error.
func lookup(ctx context.Context, attempts []lookupFunc, name string) (ir.Declaration, bool, error) {
	for _, find := range attempts {
		d, ok, err := find(ctx, name)
		if err != nil {
			return ir.Declaration{}, false, err
		}
		if ok {
			return d, true, nil
		}
	}
	return ir.Declaration{}, false, nil
}

// dropANSI removes FooA when FooW is present in the same namespace.
// The input order is preserved.
func dropANSI(methods []ir.Declaration) []ir.Declaration {
	names := make(map[string]bool, len(methods))
	for _, m := range methods {
		names[m.Name] = true
	}

	out := make([]ir.Declaration, 0, len(methods))
	for _, m := range methods {
		short := m.ShortName()
		if len(short) > 1 && strings.HasSuffix(short, "A") {
			wide := ir.Qualify(m.Namespace, strings.TrimSuffix(short, "A")+"W")
			if names[wide] {
				continue
			}
		}
		out = append(out, m)
	}
	return out
}
