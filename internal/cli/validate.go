package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bindgen/internal/compiler"
	"github.com/roach88/bindgen/internal/ir"
	"github.com/roach88/bindgen/internal/store"
)

// ValidationResult holds validation results. Cycles are informational and
// never make a metadata set invalid.
type ValidationResult struct {
	Valid        bool                       `json:"valid"`
	Declarations int                        `json:"declarations"`
	Errors       []compiler.ValidationError `json:"errors,omitempty"`
	Cycles       []compiler.CycleWarning    `json:"cycles,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <metadata-dir|file.db>",
		Short: "Validate metadata without generating",
		Long: `Validate a CUE metadata directory or an imported SQLite database.

Checks declaration names, kinds, payload consistency and that every
reference resolves. Reference cycles are reported as info: the resolver
terminates on them and they are legal in Win32 metadata.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	var (
		decls []ir.Declaration
		err   error
	)
	if isDatabasePath(path) {
		decls, err = readDatabase(cmd.Context(), path)
	} else {
		decls, err = loadDeclarations(path)
	}
	if err != nil {
		return sourceFailure(formatter, err)
	}
	formatter.VerboseLog("Loaded %d declaration(s) from %s", len(decls), path)

	result := ValidationResult{
		Declarations: len(decls),
		Errors:       compiler.Validate(decls),
		Cycles:       compiler.AnalyzeCycles(decls),
	}
	result.Valid = len(result.Errors) == 0

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// isDatabasePath reports whether path names an imported database rather
// than a CUE directory.
func isDatabasePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

func readDatabase(ctx context.Context, path string) ([]ir.Declaration, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := store.OpenReadOnly(path)
	if err != nil {
		return nil, &sourceError{Code: ErrCodeStore, Err: fmt.Errorf("open %s: %w", path, err)}
	}
	defer st.Close()

	decls, err := st.ReadAll(ctx)
	if err != nil {
		return nil, &sourceError{Code: ErrCodeStore, Err: err}
	}
	return decls, nil
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ %d declaration(s) valid\n", result.Declarations)
	writeCycles(formatter, result.Cycles)
	return nil
}

// outputValidationErrors outputs every validation error.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.IsJSON() {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "%s (%s)\n", err.Name, err.Field)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}
	writeCycles(formatter, result.Cycles)

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

func writeCycles(formatter *OutputFormatter, cycles []compiler.CycleWarning) {
	if len(cycles) == 0 {
		return
	}
	fmt.Fprintf(formatter.Writer, "\nInfo: %d reference cycle(s)\n", len(cycles))
	for _, c := range cycles {
		fmt.Fprintf(formatter.Writer, "  %s\n", strings.Join(c.Path, " → "))
	}
}
