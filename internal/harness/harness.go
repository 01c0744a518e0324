package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/roach88/bindgen/internal/compiler"
	"github.com/roach88/bindgen/internal/docs"
	"github.com/roach88/bindgen/internal/generator"
	"github.com/roach88/bindgen/internal/ir"
	"github.com/roach88/bindgen/internal/metadata"
	"github.com/roach88/bindgen/internal/resolver"
	"github.com/roach88/bindgen/internal/store"
)

// Result is the outcome of running one scenario.
type Result struct {
	// Pass is true when the run succeeded and every assertion held.
	Pass bool

	RunID string

	// Resolved lists the closure in Resolution Set order.
	Resolved []string

	// Failures lists the requests that matched nothing, in request order.
	Failures []string

	// Units lists the partition in unit name order.
	Units []UnitResult

	// Files maps emitted file names to their contents.
	Files map[string][]byte

	// Errors contains assertion and emission failures.
	Errors []string
}

// UnitResult describes one emitted unit.
type UnitResult struct {
	Name     string
	FileName string
	Names    []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Files:  make(map[string][]byte),
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Harness holds the per-run state of a scenario.
type Harness struct {
	scenario *Scenario
	logger   *slog.Logger
	cleanup  []func()
}

// Run executes a scenario and returns the result.
//
// The returned error covers setup problems and fatal generation errors
// (broken metadata, cancellation). Failed assertions and failed units are
// reported in the Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	h := &Harness{
		scenario: scenario,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	defer h.close()

	decls, err := h.loadMetadata()
	if err != nil {
		return nil, err
	}
	src, err := h.openSource(ctx, decls)
	if err != nil {
		return nil, err
	}
	provider, err := h.docsProvider()
	if err != nil {
		return nil, err
	}
	policy, err := scenario.Options.Partition.Policy()
	if err != nil {
		return nil, fmt.Errorf("partition policy: %w", err)
	}

	runID := scenario.RunID
	if runID == "" {
		runID = DefaultRunID
	}
	sink := generator.NewMemorySink()
	out, err := generator.Run(ctx, generator.Plan{
		Source:   src,
		Requests: resolver.ParseRequests(scenario.Requests),
		Resolve:  resolver.Options{WideCharOnly: scenario.Options.WideCharOnly},
		Policy:   policy,
		Docs:     provider,
		Package:  scenario.Options.Package,
		Sink:     sink,
		Emit:     generator.Options{Workers: 2, IDs: generator.NewFixedGenerator(runID)},
	})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	result := NewResult()
	result.RunID = out.Report.RunID
	result.Resolved = out.Resolution.Set.Names()
	for _, f := range out.Resolution.Failures() {
		result.Failures = append(result.Failures, f.Request.String())
	}
	for _, u := range out.Units {
		result.Units = append(result.Units, UnitResult{Name: u.Name, FileName: u.FileName, Names: u.Names()})
	}
	for _, name := range sink.FileNames() {
		data, _ := sink.File(name)
		result.Files[name] = data
	}
	for _, e := range out.Report.Errors {
		result.AddError(e.Error())
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Debug("scenario finished", "scenario", scenario.Name, "pass", result.Pass, "declarations", len(result.Resolved))
	return result, nil
}

// loadMetadata compiles every metadata directory of the scenario.
// Declarations are sorted by name so directory order does not matter.
func (h *Harness) loadMetadata() ([]ir.Declaration, error) {
	var decls []ir.Declaration
	for _, dir := range h.scenario.Metadata {
		res, err := compiler.LoadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("load metadata %s: %w", dir, err)
		}
		h.logger.Debug("metadata loaded", "dir", dir, "files", res.FileCount, "declarations", len(res.Declarations))
		decls = append(decls, res.Declarations...)
	}
	sort.SliceStable(decls, func(i, j int) bool { return decls[i].Name < decls[j].Name })
	return decls, nil
}

// openSource returns the metadata source selected by the scenario's store
// option. The sqlite store lives in a temporary directory removed by close.
func (h *Harness) openSource(ctx context.Context, decls []ir.Declaration) (metadata.Source, error) {
	if h.scenario.Options.Store != StoreSQLite {
		idx, err := metadata.NewIndex(decls)
		if err != nil {
			return nil, fmt.Errorf("index metadata: %w", err)
		}
		return idx, nil
	}

	dir, err := os.MkdirTemp("", "bindgen-harness-*")
	if err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	h.cleanup = append(h.cleanup, func() { _ = os.RemoveAll(dir) })

	st, err := store.Open(filepath.Join(dir, "metadata.db"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// Registered after RemoveAll so it runs first.
	h.cleanup = append(h.cleanup, func() { _ = st.Close() })

	stats, err := st.WriteDeclarations(ctx, decls)
	if err != nil {
		return nil, fmt.Errorf("import metadata: %w", err)
	}
	h.logger.Debug("metadata imported", "stats", stats)

	cached, err := metadata.NewCached(st, 0)
	if err != nil {
		return nil, err
	}
	return cached, nil
}

func (h *Harness) docsProvider() (docs.Provider, error) {
	switch d := h.scenario.Options.Docs; d {
	case "", DocsBundled:
		return docs.LoadBundled()
	case DocsNone:
		return docs.Empty(), nil
	default:
		return docs.LoadFile(d)
	}
}

// close runs cleanups in reverse registration order.
func (h *Harness) close() {
	for i := len(h.cleanup) - 1; i >= 0; i-- {
		h.cleanup[i]()
	}
}
