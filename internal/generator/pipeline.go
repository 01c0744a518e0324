package generator

import (
	"context"
	"log/slog"

	"github.com/roach88/bindgen/internal/docs"
	"github.com/roach88/bindgen/internal/emitter"
	"github.com/roach88/bindgen/internal/metadata"
	"github.com/roach88/bindgen/internal/partition"
	"github.com/roach88/bindgen/internal/resolver"
)

// Plan describes one generation run from requests to committed files.
type Plan struct {
	Source   metadata.Source
	Requests []resolver.Request
	Resolve  resolver.Options
	Policy   partition.Policy
	Docs     docs.Provider
	Package  string
	Sink     Sink
	Emit     Options
}

// Outcome collects what each stage of a run produced. Fields are filled
// in stage order, so a failed run still carries the stages that finished.
type Outcome struct {
	Resolution *resolver.Result
	Units      []partition.Unit
	Report     *Report
}

// Run resolves the plan's requests, partitions the closure and emits every
// unit. Requests that match nothing and units that fail are reported in the
// Outcome and do not stop the run. The returned error is fatal: broken
// metadata, a store failure, or cancellation (resolver.ErrCancelled during
// resolution, ErrCancelled during emission).
func Run(ctx context.Context, plan Plan) (*Outcome, error) {
	out := &Outcome{}

	res, err := resolver.New(plan.Source, plan.Resolve).Resolve(ctx, plan.Requests)
	if err != nil {
		return out, err
	}
	out.Resolution = res
	for _, f := range res.Failures() {
		slog.Warn("request not resolved", "request", f.Request.String(), "error", f.Err)
	}

	// Nothing is emitted until the whole set is final.
	out.Units = partition.Partition(res.Set, plan.Policy)
	slog.Info("closure resolved", "declarations", res.Set.Len(), "units", len(out.Units))

	printer := emitter.New(plan.Package, res.Set.Declarations())
	report, err := New(plan.Emit).EmitAll(ctx, out.Units, plan.Docs, printer, plan.Sink)
	out.Report = report
	return out, err
}
