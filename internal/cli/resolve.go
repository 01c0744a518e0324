package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/bindgen/internal/resolver"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Source       SourceOptions
	WideCharOnly bool
}

// ResolveResult is the closure of a set of requests.
type ResolveResult struct {
	Requests     []RequestOutcome `json:"requests"`
	Declarations []ResolvedDecl   `json:"declarations"`
}

// RequestOutcome lists the roots a request seeded, or why it failed.
type RequestOutcome struct {
	Request string   `json:"request"`
	Roots   []string `json:"roots"`
	Error   string   `json:"error,omitempty"`
}

// ResolvedDecl is one member of the closure.
type ResolvedDecl struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve [names...]",
		Short: "Print the dependency closure without generating",
		Long: `Resolve the requested names and print every declaration that would be
generated, in discovery order, followed by the requests that matched nothing.

Examples:
  bindgen resolve --metadata ./metadata MessageBoxW
  bindgen resolve --db ./win32.db "Win32.System.Console.*" --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args, cmd)
		},
	}

	addSourceFlags(cmd, &opts.Source)
	cmd.Flags().BoolVar(&opts.WideCharOnly, "wide-char-only", true, "skip FooA when a wildcard also yields FooW")

	return cmd
}

func runResolve(opts *ResolveOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Config != "" {
		cfg, err := LoadConfig(opts.Config)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
		}
		s := flagSetter{cmd: cmd}
		s.applySource(&opts.Source, cfg)
		s.setBool("wide-char-only", &opts.WideCharOnly, cfg.WideCharOnly)
	}

	src, closeSrc, err := openSource(opts.Source)
	if err != nil {
		return sourceFailure(formatter, err)
	}
	defer closeSrc()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := resolver.New(src, resolver.Options{WideCharOnly: opts.WideCharOnly}).Resolve(ctx, resolver.ParseRequests(args))
	if err != nil {
		var broken *resolver.BrokenMetadataError
		if errors.As(err, &broken) {
			return formatter.Fail(ExitFailure, ErrCodeBrokenMetadata, broken.Error(),
				map[string]string{"name": broken.Name, "referrer": broken.Referrer})
		}
		return formatter.Fail(ExitFailure, ErrCodeStore, err.Error(), nil)
	}

	result := ResolveResult{Requests: []RequestOutcome{}, Declarations: []ResolvedDecl{}}
	for _, o := range res.Outcomes {
		ro := RequestOutcome{Request: o.Request.String(), Roots: o.Roots}
		if o.Err != nil {
			ro.Error = o.Err.Error()
		}
		result.Requests = append(result.Requests, ro)
	}
	for _, d := range res.Set.Declarations() {
		result.Declarations = append(result.Declarations, ResolvedDecl{Name: d.Name, Kind: string(d.Kind)})
	}

	failures := len(res.Failures())
	if formatter.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if failures > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeNameNotFound, Message: fmt.Sprintf("%d request(s) not found", failures)}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		for _, d := range result.Declarations {
			fmt.Fprintf(w, "%-9s %s\n", d.Kind, d.Name)
		}
		for _, r := range result.Requests {
			if r.Error != "" {
				fmt.Fprintf(w, "Error [%s]: %s\n", ErrCodeNameNotFound, r.Error)
			}
		}
		fmt.Fprintf(w, "\n%d declaration(s) from %d request(s)\n", len(result.Declarations), len(result.Requests))
	}

	if failures > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d request(s) not found", failures))
	}
	return nil
}
