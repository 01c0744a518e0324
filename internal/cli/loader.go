package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/bindgen/internal/compiler"
	"github.com/roach88/bindgen/internal/docs"
	"github.com/roach88/bindgen/internal/ir"
	"github.com/roach88/bindgen/internal/metadata"
	"github.com/roach88/bindgen/internal/store"
)

// SourceOptions selects where metadata is read from: a CUE directory
// compiled in memory, or a SQLite database written by import.
type SourceOptions struct {
	Metadata  string
	Database  string
	CacheSize int
}

func addSourceFlags(cmd *cobra.Command, o *SourceOptions) {
	cmd.Flags().StringVar(&o.Metadata, "metadata", "", "CUE metadata directory")
	cmd.Flags().StringVar(&o.Database, "db", "", "SQLite metadata database written by import")
	cmd.Flags().IntVar(&o.CacheSize, "cache-size", metadata.DefaultCacheSize, "lookup cache entries for --db")
}

// sourceError is a failure to open the metadata source. Code is one of the
// compiler load codes or ErrCodeStore.
type sourceError struct {
	Code string
	Err  error
}

func (e *sourceError) Error() string { return e.Err.Error() }
func (e *sourceError) Unwrap() error { return e.Err }

// openSource opens the metadata source selected by o. The returned close
// function must be called when the source is no longer needed.
func openSource(o SourceOptions) (metadata.Source, func(), error) {
	switch {
	case o.Metadata != "" && o.Database != "":
		return nil, nil, &sourceError{Code: ErrCodeConfig, Err: errors.New("--metadata and --db are mutually exclusive")}

	case o.Database != "":
		st, err := store.OpenReadOnly(o.Database)
		if err != nil {
			return nil, nil, &sourceError{Code: ErrCodeStore, Err: fmt.Errorf("open %s: %w", o.Database, err)}
		}
		closeStore := func() {
			if err := st.Close(); err != nil {
				slog.Error("error closing database", "path", o.Database, "error", err)
			}
		}
		cached, err := metadata.NewCached(st, o.CacheSize)
		if err != nil {
			closeStore()
			return nil, nil, &sourceError{Code: ErrCodeStore, Err: err}
		}
		slog.Debug("metadata source opened", "db", o.Database)
		return cached, closeStore, nil

	case o.Metadata != "":
		decls, err := loadDeclarations(o.Metadata)
		if err != nil {
			return nil, nil, err
		}
		idx, err := metadata.NewIndex(decls)
		if err != nil {
			return nil, nil, &sourceError{Code: compiler.ErrCodeCompileFailed, Err: err}
		}
		slog.Debug("metadata source opened", "dir", o.Metadata, "declarations", idx.Len())
		return idx, func() {}, nil

	default:
		return nil, nil, &sourceError{Code: ErrCodeConfig, Err: errors.New("one of --metadata or --db is required")}
	}
}

// loadDeclarations compiles a CUE metadata directory.
func loadDeclarations(dir string) ([]ir.Declaration, error) {
	res, err := compiler.LoadDir(dir)
	if err != nil {
		var loadErr *compiler.LoadError
		if errors.As(err, &loadErr) {
			return nil, &sourceError{Code: loadErr.Code, Err: err}
		}
		return nil, &sourceError{Code: compiler.ErrCodeGeneric, Err: err}
	}
	slog.Debug("metadata compiled", "dir", dir, "files", res.FileCount, "declarations", len(res.Declarations))
	return res.Declarations, nil
}

// sourceFailure reports a source error through f.
func sourceFailure(f *OutputFormatter, err error) error {
	var se *sourceError
	if errors.As(err, &se) {
		return f.Fail(ExitCommandError, se.Code, se.Error(), nil)
	}
	return f.Fail(ExitCommandError, compiler.ErrCodeGeneric, err.Error(), nil)
}

// Docs settings accepted by --docs.
const (
	DocsBundled = "bundled"
	DocsNone    = "none"
)

// loadDocs returns the docs provider selected by setting: the bundled
// resource, none, or a YAML file path.
func loadDocs(setting string) (docs.Provider, error) {
	switch setting {
	case "", DocsBundled:
		return docs.LoadBundled()
	case DocsNone:
		return docs.Empty(), nil
	default:
		return docs.LoadFile(setting)
	}
}
