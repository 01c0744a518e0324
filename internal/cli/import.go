package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/bindgen/internal/compiler"
	"github.com/roach88/bindgen/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string
}

// ImportResult summarizes an import.
type ImportResult struct {
	Database     string `json:"database"`
	Declarations int    `json:"declarations"`
	Inserted     int    `json:"inserted"`
	Unchanged    int    `json:"unchanged"`
	Total        int    `json:"total"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <metadata-dir>",
		Short: "Compile CUE metadata into a SQLite database",
		Long: `Compile a CUE metadata directory, validate it and store it in a SQLite
database for fast repeated generation with --db.

Importing the same metadata twice is a no-op; a declaration whose payload
changed under the same name is a conflict.

Example:
  bindgen import ./metadata --db ./win32.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runImport(opts *ImportOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	decls, err := loadDeclarations(dir)
	if err != nil {
		return sourceFailure(formatter, err)
	}
	formatter.VerboseLog("Compiled %d declaration(s) from %s", len(decls), dir)

	// Only consistent metadata reaches the store.
	if errs := compiler.Validate(decls); len(errs) > 0 {
		return outputValidationErrors(formatter, ValidationResult{
			Declarations: len(decls),
			Errors:       errs,
		})
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("opening %s: %v", opts.Database, err), nil)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	stats, err := st.WriteDeclarations(ctx, decls)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeStore, err.Error(), nil)
	}
	total, err := st.Count(ctx)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeStore, err.Error(), nil)
	}

	result := ImportResult{
		Database:     opts.Database,
		Declarations: len(decls),
		Inserted:     stats.Inserted,
		Unchanged:    stats.Unchanged,
		Total:        total,
	}
	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Imported %d declaration(s) into %s (%d new, %d unchanged, %d total)\n",
		result.Declarations, result.Database, result.Inserted, result.Unchanged, result.Total)
	return nil
}
