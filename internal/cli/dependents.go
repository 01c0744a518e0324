package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/bindgen/internal/store"
)

// DependentsOptions holds flags for the dependents command.
type DependentsOptions struct {
	*RootOptions
	Database string
	Broken   bool
}

// DependentsResult lists the declarations that reference a name.
type DependentsResult struct {
	Name       string            `json:"name,omitempty"`
	Dependents []string          `json:"dependents,omitempty"`
	Broken     []store.BrokenRef `json:"broken,omitempty"`
}

// NewDependentsCommand creates the dependents command.
func NewDependentsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DependentsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dependents [name]",
		Short: "List declarations that reference a name",
		Long: `Query an imported database for the reverse edges of the reference graph.

With a name, prints every declaration whose refs include it. Short names
are qualified first (methods, then types). With --broken, prints every
reference whose target has no declaration.

Examples:
  bindgen dependents --db ./win32.db Win32.Foundation.HANDLE
  bindgen dependents --db ./win32.db --broken`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDependents(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().BoolVar(&opts.Broken, "broken", false, "list references to missing declarations")

	return cmd
}

func runDependents(opts *DependentsOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if len(args) == 0 && !opts.Broken {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "a name or --broken is required", nil)
	}

	st, err := store.OpenReadOnly(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("opening %s: %v", opts.Database, err), nil)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Broken {
		broken, err := st.BrokenRefs(ctx)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeStore, err.Error(), nil)
		}
		return outputDependents(formatter, DependentsResult{Broken: broken})
	}

	name, err := qualifyName(ctx, st, args[0])
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeStore, err.Error(), nil)
	}
	if name == "" {
		return formatter.Fail(ExitFailure, ErrCodeNameNotFound, fmt.Sprintf("name not found: %q", args[0]), nil)
	}
	deps, err := st.Dependents(ctx, name)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeStore, err.Error(), nil)
	}
	return outputDependents(formatter, DependentsResult{Name: name, Dependents: deps})
}

// qualifyName returns the fully-qualified name of a method or type, or ""
// when there is none.
func qualifyName(ctx context.Context, st *store.Store, name string) (string, error) {
	d, ok, err := st.FindMethod(ctx, name)
	if err != nil || ok {
		return d.Name, err
	}
	d, ok, err = st.FindType(ctx, name)
	if err != nil || !ok {
		return "", err
	}
	return d.Name, nil
}

func outputDependents(formatter *OutputFormatter, result DependentsResult) error {
	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if result.Name == "" {
		if len(result.Broken) == 0 {
			fmt.Fprintln(w, "✓ No broken references")
			return nil
		}
		for _, b := range result.Broken {
			fmt.Fprintf(w, "%s → %s\n", b.From, b.To)
		}
		fmt.Fprintf(w, "\n%d broken reference(s)\n", len(result.Broken))
		return nil
	}

	for _, d := range result.Dependents {
		fmt.Fprintln(w, d)
	}
	fmt.Fprintf(w, "\n%d declaration(s) reference %s\n", len(result.Dependents), result.Name)
	return nil
}
