package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/bindgen/internal/compiler"
	"github.com/roach88/bindgen/internal/emitter"
	"github.com/roach88/bindgen/internal/generator"
	"github.com/roach88/bindgen/internal/partition"
	"github.com/roach88/bindgen/internal/resolver"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Source       SourceOptions
	Out          string
	Clean        bool
	Docs         string
	Package      string
	Workers      int
	WideCharOnly bool
	Mode         string
	Unit         string
	Depth        int
	Rules        []string // "pattern=unit"

	// IDs overrides the run id generator (for testing).
	IDs generator.IDGenerator
}

// GenerateResult is the summary printed after a run.
type GenerateResult struct {
	RunID        string           `json:"run_id,omitempty"`
	Out          string           `json:"out"`
	Declarations int              `json:"declarations"`
	Units        []UnitSummary    `json:"units"`
	Failures     []RequestFailure `json:"failures,omitempty"`
	Errors       []UnitFailure    `json:"errors,omitempty"`
	Canceled     bool             `json:"canceled,omitempty"`
}

// UnitSummary describes one partition unit and whether it was written.
type UnitSummary struct {
	Name         string `json:"name"`
	File         string `json:"file"`
	Declarations int    `json:"declarations"`
	Written      bool   `json:"written"`
}

// RequestFailure is a request that matched nothing.
type RequestFailure struct {
	Request string `json:"request"`
	Message string `json:"message"`
}

// UnitFailure is a unit that could not be emitted.
type UnitFailure struct {
	Unit    string `json:"unit"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	return newGenerateCommand(&GenerateOptions{RootOptions: rootOpts})
}

func newGenerateCommand(opts *GenerateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [names...]",
		Short: "Generate Go bindings for the requested names",
		Long: `Generate Go bindings for methods and types and everything they reference.

Each argument is an exact method or type name (qualified or short) or a
namespace wildcard ending in ".*". No arguments selects every extern method.

The output directory is cleared of generated files first (--clean=false to
keep them). Ctrl-C stops the run cooperatively: units already written stay,
no unit is ever left half-written.

Exit codes:
  0 - All requests resolved and all units written (or the run was canceled)
  1 - Some requests matched nothing or some units failed
  2 - Command error (bad flags, unreadable metadata, etc.)

Examples:
  bindgen generate --metadata ./metadata --out ./win32 Win32.System.Console.*
  bindgen generate --db ./win32.db --out ./win32 --partition namespace --depth 3
  bindgen generate --config bindgen.yaml MessageBoxW CreateFileW`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, args, cmd)
		},
	}

	addSourceFlags(cmd, &opts.Source)
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output directory (required)")
	cmd.Flags().BoolVar(&opts.Clean, "clean", true, "remove previously generated files from the output directory")
	cmd.Flags().StringVar(&opts.Docs, "docs", DocsBundled, `documentation: "bundled", "none" or a YAML file`)
	cmd.Flags().StringVar(&opts.Package, "package", emitter.DefaultPackage, "package name of generated files")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "units emitted in parallel (0 = GOMAXPROCS)")
	cmd.Flags().BoolVar(&opts.WideCharOnly, "wide-char-only", true, "skip FooA when a wildcard also yields FooW")
	cmd.Flags().StringVar(&opts.Mode, "partition", partition.ModeSingle, "partition mode (single|namespace)")
	cmd.Flags().StringVar(&opts.Unit, "unit", partition.DefaultUnitName, "unit name in single mode")
	cmd.Flags().IntVar(&opts.Depth, "depth", 0, "namespace segments kept in namespace mode (0 = all)")
	cmd.Flags().StringArrayVar(&opts.Rules, "rule", nil, "partition rule pattern=unit (repeatable, first match wins)")

	return cmd
}

// resolveSettings merges the config file into opts and returns the
// partition config.
func (o *GenerateOptions) resolveSettings(cmd *cobra.Command) (partition.Config, error) {
	pc := partition.Config{Mode: o.Mode, Unit: o.Unit, Depth: o.Depth}
	rules, err := parseRules(o.Rules)
	if err != nil {
		return pc, err
	}

	if o.Config != "" {
		cfg, err := LoadConfig(o.Config)
		if err != nil {
			return pc, err
		}
		s := flagSetter{cmd: cmd}
		s.applySource(&o.Source, cfg)
		s.setString("out", &o.Out, cfg.Out)
		s.setString("docs", &o.Docs, cfg.Docs)
		s.setString("package", &o.Package, cfg.Package)
		s.setInt("workers", &o.Workers, cfg.Workers)
		s.setBool("wide-char-only", &o.WideCharOnly, cfg.WideCharOnly)
		s.setString("partition", &pc.Mode, cfg.Partition.Mode)
		s.setString("unit", &pc.Unit, cfg.Partition.Unit)
		s.setInt("depth", &pc.Depth, cfg.Partition.Depth)
		if !s.changed("rule") && len(cfg.Partition.Rules) > 0 {
			rules = cfg.Partition.Rules
		}
	}

	pc.Rules = rules
	if o.Workers < 0 {
		return pc, fmt.Errorf("--workers must be non-negative, got %d", o.Workers)
	}
	if o.Out == "" {
		return pc, errors.New("--out is required")
	}
	return pc, nil
}

func runGenerate(opts *GenerateOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	pc, err := opts.resolveSettings(cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	policy, err := pc.Policy()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	provider, err := loadDocs(opts.Docs)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStartup, err.Error(), nil)
	}

	src, closeSrc, err := openSource(opts.Source)
	if err != nil {
		return sourceFailure(formatter, err)
	}
	defer closeSrc()

	sink := generator.NewDirSink(opts.Out)
	if err := sink.Prepare(); err != nil {
		return formatter.Fail(ExitCommandError, compiler.ErrCodeWriteFailed, err.Error(), nil)
	}
	if opts.Clean {
		removed, err := sink.Clean()
		if err != nil {
			return formatter.Fail(ExitCommandError, compiler.ErrCodeWriteFailed, fmt.Sprintf("cleaning %s: %v", opts.Out, err), nil)
		}
		slog.Info("output directory cleaned", "dir", opts.Out, "removed", removed)
	}

	// Interrupts cancel the run cooperatively.
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	requests := resolver.ParseRequests(args)
	formatter.VerboseLog("Requests: %s", requestList(requests))

	out, err := generator.Run(ctx, generator.Plan{
		Source:   src,
		Requests: requests,
		Resolve:  resolver.Options{WideCharOnly: opts.WideCharOnly},
		Policy:   policy,
		Docs:     provider,
		Package:  opts.Package,
		Sink:     sink,
		Emit:     generator.Options{Workers: opts.Workers, IDs: opts.IDs},
	})

	result := summarize(opts.Out, out)
	if err != nil {
		if errors.Is(err, resolver.ErrCancelled) || errors.Is(err, generator.ErrCancelled) {
			slog.Info("generation canceled", "error", err)
			result.Canceled = true
			return outputCanceled(formatter, result)
		}
		var broken *resolver.BrokenMetadataError
		if errors.As(err, &broken) {
			return formatter.Fail(ExitFailure, ErrCodeBrokenMetadata, broken.Error(),
				map[string]string{"name": broken.Name, "referrer": broken.Referrer})
		}
		return formatter.Fail(ExitFailure, ErrCodeStore, err.Error(), nil)
	}

	return outputGenerate(formatter, result)
}

// summarize converts a run outcome into the printed result. Stages that did
// not run leave their fields empty.
func summarize(dir string, out *generator.Outcome) GenerateResult {
	result := GenerateResult{Out: dir, Units: []UnitSummary{}}
	if out == nil {
		return result
	}
	if out.Resolution != nil {
		result.Declarations = out.Resolution.Set.Len()
		for _, f := range out.Resolution.Failures() {
			result.Failures = append(result.Failures, RequestFailure{Request: f.Request.String(), Message: f.Err.Error()})
		}
	}

	written := make(map[string]bool)
	if out.Report != nil {
		result.RunID = out.Report.RunID
		for _, name := range out.Report.Written {
			written[name] = true
		}
		for _, e := range out.Report.Errors {
			result.Errors = append(result.Errors, UnitFailure{Unit: e.Unit, Stage: string(e.Stage), Message: e.Err.Error()})
		}
	}
	for _, u := range out.Units {
		result.Units = append(result.Units, UnitSummary{
			Name:         u.Name,
			File:         u.FileName,
			Declarations: len(u.Declarations),
			Written:      written[u.Name],
		})
	}
	return result
}

func outputGenerate(f *OutputFormatter, result GenerateResult) error {
	failed := len(result.Failures) > 0 || len(result.Errors) > 0

	if f.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: result, RunID: result.RunID}
		if failed {
			resp.Status = "error"
			resp.Error = generateError(result)
		}
		if err := f.encode(resp); err != nil {
			return err
		}
	} else {
		w := f.Writer
		written := 0
		for _, u := range result.Units {
			mark := "✗"
			if u.Written {
				mark = "✓"
				written++
			}
			fmt.Fprintf(w, "%s %s (%d declarations)\n", mark, u.File, u.Declarations)
		}
		for _, fl := range result.Failures {
			fmt.Fprintf(w, "Error [%s]: %s\n", ErrCodeNameNotFound, fl.Message)
		}
		for _, e := range result.Errors {
			fmt.Fprintf(w, "Error [%s]: unit %s: %s: %s\n", ErrCodeEmission, e.Unit, e.Stage, e.Message)
		}
		fmt.Fprintf(w, "\nGenerated %d of %d file(s), %d declaration(s) in %s (run %s)\n",
			written, len(result.Units), result.Declarations, result.Out, result.RunID)
	}

	if failed {
		return NewExitError(ExitFailure, generateError(result).Message)
	}
	return nil
}

func generateError(result GenerateResult) *CLIError {
	if len(result.Errors) > 0 {
		return &CLIError{Code: ErrCodeEmission, Message: fmt.Sprintf("%d unit(s) failed", len(result.Errors))}
	}
	return &CLIError{Code: ErrCodeNameNotFound, Message: fmt.Sprintf("%d request(s) not found", len(result.Failures))}
}

// outputCanceled reports a user-canceled run. Cancellation is not a failure.
func outputCanceled(f *OutputFormatter, result GenerateResult) error {
	if f.IsJSON() {
		return f.encode(CLIResponse{Status: "ok", Data: result, RunID: result.RunID})
	}
	fmt.Fprintln(f.Writer, "Canceled.")
	return nil
}

func requestList(reqs []resolver.Request) string {
	parts := make([]string, len(reqs))
	for i, r := range reqs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}
