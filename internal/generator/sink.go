package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/bindgen/internal/partition"
)

// UnitWriter receives the bytes of one unit. Nothing is visible at the
// destination until Commit succeeds. Close releases the writer and discards
// uncommitted bytes; it is safe to call after Commit and more than once.
type UnitWriter interface {
	io.Writer
	Commit() error
	Close() error
}

// Sink opens destinations for units. Opening a unit that already exists at
// the destination truncates it on commit.
type Sink interface {
	Open(ctx context.Context, unit partition.Unit) (UnitWriter, error)
}

const tempPattern = ".bindgen-*.tmp"

// DirSink writes each unit to Dir/<FileName>. Bytes go to a temporary file
// in the same directory that is renamed over the target on commit, so a
// failed or cancelled unit never leaves a partial file.
type DirSink struct {
	dir  string
	perm os.FileMode
}

// NewDirSink creates a sink rooted at dir. The directory is created on
// first use.
func NewDirSink(dir string) *DirSink {
	return &DirSink{dir: dir, perm: 0o644}
}

// Dir returns the destination directory.
func (s *DirSink) Dir() string {
	return s.dir
}

// Prepare creates the destination directory.
func (s *DirSink) Prepare() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}

// Clean removes generated Go files and stale temporary files from the
// destination directory. Subdirectories and other files are left alone.
// A missing directory is not an error.
func (s *DirSink) Clean() (removed int, err error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read output directory: %w", err)
	}

	for _, e := range entries {
		if !e.Type().IsRegular() || !isCleanable(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			return removed, fmt.Errorf("clean output directory: %w", err)
		}
		removed++
	}
	slog.Debug("output directory cleaned", "dir", s.dir, "removed", removed)
	return removed, nil
}

func isCleanable(name string) bool {
	if strings.HasPrefix(name, ".bindgen-") && strings.HasSuffix(name, ".tmp") {
		return true
	}
	return strings.HasSuffix(name, ".go")
}

// Open implements Sink.
func (s *DirSink) Open(ctx context.Context, unit partition.Unit) (UnitWriter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if unit.FileName == "" {
		return nil, fmt.Errorf("unit %s has no file name", unit.Name)
	}
	if err := s.Prepare(); err != nil {
		return nil, err
	}

	f, err := os.CreateTemp(s.dir, tempPattern)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return &fileWriter{
		f:      f,
		target: filepath.Join(s.dir, unit.FileName),
		perm:   s.perm,
	}, nil
}

// tempFile is the part of *os.File a fileWriter uses.
type tempFile interface {
	io.Writer
	Chmod(mode os.FileMode) error
	Sync() error
	Close() error
	Name() string
}

type fileWriter struct {
	f         tempFile
	target    string
	perm      os.FileMode
	committed bool
	closed    bool
}

func (w *fileWriter) Write(p []byte) (int, error) {
	if w.closed || w.committed {
		return 0, os.ErrClosed
	}
	return w.f.Write(p)
}

func (w *fileWriter) Commit() error {
	if w.closed || w.committed {
		return os.ErrClosed
	}
	if err := w.f.Chmod(w.perm); err != nil {
		return w.abort(fmt.Errorf("chmod: %w", err))
	}
	if err := w.f.Sync(); err != nil {
		return w.abort(fmt.Errorf("sync temp file: %w", err))
	}
	if err := w.f.Close(); err != nil {
		w.closed = true
		_ = os.Remove(w.f.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	w.closed = true
	if err := os.Rename(w.f.Name(), w.target); err != nil {
		_ = os.Remove(w.f.Name())
		return fmt.Errorf("rename into place: %w", err)
	}
	w.committed = true
	return nil
}

func (w *fileWriter) Close() error {
	if w.closed {
		return nil
	}
	return w.abort(nil)
}

// abort closes and removes the temp file, returning cause if set.
func (w *fileWriter) abort(cause error) error {
	w.closed = true
	closeErr := w.f.Close()
	removeErr := os.Remove(w.f.Name())
	if cause != nil {
		return cause
	}
	if closeErr != nil {
		return closeErr
	}
	if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		return removeErr
	}
	return nil
}

// MemorySink keeps committed units in memory, keyed by file name.
// It is safe for concurrent use.
type MemorySink struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

// Open implements Sink.
func (s *MemorySink) Open(ctx context.Context, unit partition.Unit) (UnitWriter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryWriter{sink: s, name: unit.FileName}, nil
}

// File returns the committed bytes of a file.
func (s *MemorySink) File(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[name]
	return b, ok
}

// FileNames returns the committed file names in sorted order.
func (s *MemorySink) FileNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type memoryWriter struct {
	sink *MemorySink
	name string
	buf  []byte
	done bool
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	if w.done {
		return 0, os.ErrClosed
	}
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *memoryWriter) Commit() error {
	if w.done {
		return os.ErrClosed
	}
	w.done = true
	w.sink.mu.Lock()
	defer w.sink.mu.Unlock()
	w.sink.files[w.name] = w.buf
	return nil
}

func (w *memoryWriter) Close() error {
	w.done = true
	return nil
}
