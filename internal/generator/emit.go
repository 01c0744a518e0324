package generator

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/bindgen/internal/docs"
	"github.com/roach88/bindgen/internal/ir"
	"github.com/roach88/bindgen/internal/partition"
)

// Printer renders one unit's declarations as source bytes. Implementations
// must be pure and safe for concurrent use.
type Printer interface {
	Print(unit string, decls []ir.Declaration, overlay docs.Overlay) ([]byte, error)
}

// Options configures a Coordinator.
type Options struct {
	// Workers bounds the number of units emitted at once.
	// Zero means runtime.GOMAXPROCS(0).
	Workers int

	// IDs generates the run id. Nil means UUIDv7Generator.
	IDs IDGenerator
}

// Report summarizes one EmitAll run. Unit lists follow the order of the
// units passed to EmitAll.
type Report struct {
	RunID string

	// Written lists units whose destination was committed.
	Written []string

	// Errors holds one entry per failed unit.
	Errors []*EmissionError

	// Interrupted lists units that were started but stopped at a
	// cancellation checkpoint. Nothing of theirs was committed.
	Interrupted []string

	// NotStarted lists units never dispatched because of cancellation.
	NotStarted []string
}

// OK reports whether every unit was written.
func (r *Report) OK() bool {
	return len(r.Errors) == 0 && len(r.Interrupted) == 0 && len(r.NotStarted) == 0
}

// Coordinator runs parallel emission.
type Coordinator struct {
	workers int
	ids     IDGenerator
}

// New creates a Coordinator.
func New(opts Options) *Coordinator {
	c := &Coordinator{workers: opts.Workers, ids: opts.IDs}
	if c.workers <= 0 {
		c.workers = runtime.GOMAXPROCS(0)
	}
	if c.ids == nil {
		c.ids = UUIDv7Generator{}
	}
	return c
}

// EmitAll emits units with a default Coordinator.
func EmitAll(ctx context.Context, units []partition.Unit, provider docs.Provider, printer Printer, sink Sink) (*Report, error) {
	return New(Options{}).EmitAll(ctx, units, provider, printer, sink)
}

type unitStatus int

const (
	statusNotStarted unitStatus = iota
	statusWritten
	statusFailed
	statusInterrupted
)

type unitResult struct {
	status unitStatus
	err    *EmissionError
}

// EmitAll emits every unit. Per-unit failures are reported in the Report;
// the returned error is non-nil only when ctx was cancelled before every
// unit finished, and then wraps ErrCancelled. The Report is always
// returned.
func (c *Coordinator) EmitAll(ctx context.Context, units []partition.Unit, provider docs.Provider, printer Printer, sink Sink) (*Report, error) {
	report := &Report{RunID: c.ids.Generate()}
	slog.Info("emission starting", "run_id", report.RunID, "units", len(units), "workers", c.workers)

	// Each task writes only its own slot.
	results := make([]unitResult, len(units))

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i := range units {
		if ctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			results[i] = emitUnit(ctx, units[i], provider, printer, sink)
			return nil
		})
	}
	_ = g.Wait()

	for i, r := range results {
		name := units[i].Name
		switch r.status {
		case statusWritten:
			report.Written = append(report.Written, name)
		case statusFailed:
			report.Errors = append(report.Errors, r.err)
		case statusInterrupted:
			report.Interrupted = append(report.Interrupted, name)
		default:
			report.NotStarted = append(report.NotStarted, name)
		}
	}

	slog.Info("emission finished",
		"run_id", report.RunID,
		"written", len(report.Written),
		"failed", len(report.Errors),
		"interrupted", len(report.Interrupted),
		"not_started", len(report.NotStarted),
	)

	if len(report.Interrupted) > 0 || len(report.NotStarted) > 0 {
		return report, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
	return report, nil
}

func emitUnit(ctx context.Context, unit partition.Unit, provider docs.Provider, printer Printer, sink Sink) unitResult {
	failed := func(stage Stage, err error) unitResult {
		slog.Error("unit emission failed", "unit", unit.Name, "stage", stage, "error", err)
		return unitResult{status: statusFailed, err: &EmissionError{Unit: unit.Name, Stage: stage, Err: err}}
	}
	interrupted := func(stage Stage) unitResult {
		slog.Debug("unit interrupted", "unit", unit.Name, "before", stage)
		return unitResult{status: statusInterrupted}
	}

	if ctx.Err() != nil {
		return interrupted(StagePrint)
	}
	overlay := docs.BuildOverlay(provider, unit.Declarations)
	src, err := printer.Print(unit.Name, unit.Declarations, overlay)
	if err != nil {
		return failed(StagePrint, err)
	}

	if ctx.Err() != nil {
		return interrupted(StageWrite)
	}
	w, err := sink.Open(ctx, unit)
	if err != nil {
		if ctx.Err() != nil {
			return interrupted(StageWrite)
		}
		return failed(StageOpen, err)
	}

	res := writeUnit(ctx, w, src)
	if closeErr := w.Close(); closeErr != nil && res.status == statusWritten {
		return failed(StageClose, closeErr)
	}
	switch res.status {
	case statusFailed:
		return failed(res.err.Stage, res.err.Err)
	case statusInterrupted:
		return interrupted(StageCommit)
	}

	slog.Debug("unit written", "unit", unit.Name, "file", unit.FileName, "declarations", len(unit.Declarations), "bytes", len(src))
	return res
}

// writeUnit writes and commits src. The caller closes w.
func writeUnit(ctx context.Context, w UnitWriter, src []byte) unitResult {
	if _, err := w.Write(src); err != nil {
		return unitResult{status: statusFailed, err: &EmissionError{Stage: StageWrite, Err: err}}
	}
	if ctx.Err() != nil {
		return unitResult{status: statusInterrupted}
	}
	if err := w.Commit(); err != nil {
		return unitResult{status: statusFailed, err: &EmissionError{Stage: StageCommit, Err: err}}
	}
	return unitResult{status: statusWritten}
}
