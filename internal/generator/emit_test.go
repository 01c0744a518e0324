package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bindgen/internal/docs"
	"github.com/roach88/bindgen/internal/emitter"
	"github.com/roach88/bindgen/internal/ir"
	"github.com/roach88/bindgen/internal/partition"
	"github.com/roach88/bindgen/internal/resolver"
)

func testUnits(n int) []partition.Unit {
	set := resolver.NewSet()
	for i := 0; i < n; i++ {
		ns := fmt.Sprintf("Win32.Unit%02d", i)
		d := ir.Declaration{
			Name:      ns + ".S",
			Namespace: ns,
			Kind:      ir.KindStruct,
			Fields:    []ir.Field{{Name: "Value", Type: ir.TypeRef{Name: "uint32"}}},
			Refs:      []string{},
		}
		set.Add(d)
	}
	return partition.Partition(set, partition.PerNamespace{})
}

func unitNames(units []partition.Unit) []string {
	names := make([]string, len(units))
	for i, u := range units {
		names[i] = u.Name
	}
	return names
}

// textPrinter prints the declaration names, one per line.
type textPrinter struct{}

func (textPrinter) Print(unit string, decls []ir.Declaration, _ docs.Overlay) ([]byte, error) {
	var b strings.Builder
	b.WriteString("// " + unit + "\n")
	for _, d := range decls {
		b.WriteString(d.Name + "\n")
	}
	return []byte(b.String()), nil
}

type printerFunc func(unit string, decls []ir.Declaration, overlay docs.Overlay) ([]byte, error)

func (f printerFunc) Print(unit string, decls []ir.Declaration, overlay docs.Overlay) ([]byte, error) {
	return f(unit, decls, overlay)
}

// faultySink fails writes for selected units and records releases.
type faultySink struct {
	inner    Sink
	failOpen string
	failW    string
	closed   sync.Map
}

func (s *faultySink) Open(ctx context.Context, unit partition.Unit) (UnitWriter, error) {
	if unit.Name == s.failOpen {
		return nil, errors.New("disk full")
	}
	w, err := s.inner.Open(ctx, unit)
	if err != nil {
		return nil, err
	}
	return &faultyWriter{UnitWriter: w, sink: s, unit: unit.Name, fail: unit.Name == s.failW}, nil
}

type faultyWriter struct {
	UnitWriter
	sink *faultySink
	unit string
	fail bool
}

func (w *faultyWriter) Write(p []byte) (int, error) {
	if w.fail {
		return 0, errors.New("i/o error")
	}
	return w.UnitWriter.Write(p)
}

func (w *faultyWriter) Close() error {
	w.sink.closed.Store(w.unit, true)
	return w.UnitWriter.Close()
}

func TestEmitAll_WritesEveryUnit(t *testing.T) {
	units := testUnits(5)
	sink := NewMemorySink()
	c := New(Options{Workers: 3, IDs: NewFixedGenerator("run-1")})

	report, err := c.EmitAll(context.Background(), units, docs.Empty(), textPrinter{}, sink)
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, unitNames(units), report.Written)
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.NotStarted)
	assert.True(t, report.OK())

	for _, u := range units {
		data, ok := sink.File(u.FileName)
		require.True(t, ok, u.FileName)
		assert.Equal(t, "// "+u.Name+"\n"+u.Declarations[0].Name+"\n", string(data))
	}
}

func TestEmitAll_NoUnits(t *testing.T) {
	report, err := EmitAll(context.Background(), nil, nil, textPrinter{}, NewMemorySink())
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.NotEmpty(t, report.RunID)
}

func TestEmitAll_IOFailureIsolated(t *testing.T) {
	units := testUnits(4)
	sink := &faultySink{inner: NewMemorySink(), failW: units[1].Name, failOpen: units[2].Name}

	report, err := New(Options{Workers: 2}).EmitAll(context.Background(), units, nil, textPrinter{}, sink)
	require.NoError(t, err, "unit failures are not fatal")

	assert.Equal(t, []string{units[0].Name, units[3].Name}, report.Written)
	require.Len(t, report.Errors, 2)

	assert.Equal(t, units[1].Name, report.Errors[0].Unit)
	assert.Equal(t, StageWrite, report.Errors[0].Stage)
	assert.Contains(t, report.Errors[0].Error(), units[1].Name)

	assert.Equal(t, units[2].Name, report.Errors[1].Unit)
	assert.Equal(t, StageOpen, report.Errors[1].Stage)

	// The writer is released even though writing failed.
	_, released := sink.closed.Load(units[1].Name)
	assert.True(t, released)

	mem := sink.inner.(*MemorySink)
	assert.Equal(t, []string{units[0].FileName, units[3].FileName}, mem.FileNames())
}

func TestEmitAll_PrintFailure(t *testing.T) {
	units := testUnits(3)
	printer := printerFunc(func(unit string, decls []ir.Declaration, overlay docs.Overlay) ([]byte, error) {
		if unit == units[0].Name {
			return nil, errors.New("bad declaration")
		}
		return textPrinter{}.Print(unit, decls, overlay)
	})

	report, err := New(Options{}).EmitAll(context.Background(), units, nil, printer, NewMemorySink())
	require.NoError(t, err)

	require.Len(t, report.Errors, 1)
	assert.Equal(t, StagePrint, report.Errors[0].Stage)
	assert.EqualError(t, errors.Unwrap(report.Errors[0]), "bad declaration")
	assert.Equal(t, unitNames(units[1:]), report.Written)
}

func TestEmitAll_CancelledBeforeStart(t *testing.T) {
	units := testUnits(3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := NewMemorySink()
	report, err := New(Options{}).EmitAll(ctx, units, nil, textPrinter{}, sink)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, unitNames(units), report.NotStarted)
	assert.Empty(t, report.Written)
	assert.Empty(t, sink.FileNames())
}

func TestEmitAll_CancelledMidRun(t *testing.T) {
	units := testUnits(6)
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var printed atomic.Int32
	printer := printerFunc(func(unit string, decls []ir.Declaration, overlay docs.Overlay) ([]byte, error) {
		if unit == units[2].Name {
			cancel()
		}
		printed.Add(1)
		return textPrinter{}.Print(unit, decls, overlay)
	})

	report, err := New(Options{Workers: 1}).EmitAll(ctx, units, nil, printer, NewDirSink(dir))
	require.ErrorIs(t, err, ErrCancelled)

	assert.Equal(t, unitNames(units[:2]), report.Written)
	assert.Empty(t, report.Errors)
	assert.Contains(t, report.Interrupted, units[2].Name)
	assert.Len(t, append(report.Interrupted, report.NotStarted...), 4)
	assert.False(t, report.OK())

	// Every file present is complete, and nothing else is left behind.
	var files []string
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	for _, e := range entries {
		files = append(files, e.Name())
	}
	assert.Equal(t, []string{units[0].FileName, units[1].FileName}, files)
	for _, u := range units[:2] {
		want, _ := textPrinter{}.Print(u.Name, u.Declarations, nil)
		got, readErr := os.ReadFile(filepath.Join(dir, u.FileName))
		require.NoError(t, readErr)
		assert.Equal(t, string(want), string(got))
	}
}

func TestEmitAll_DocsOverlayPassedToPrinter(t *testing.T) {
	units := testUnits(1)
	provider := docs.New(map[string]docs.APIDetails{
		"S": {Description: "A struct."},
	})

	var got docs.Overlay
	printer := printerFunc(func(unit string, decls []ir.Declaration, overlay docs.Overlay) ([]byte, error) {
		got = overlay
		return []byte("x"), nil
	})

	_, err := New(Options{Workers: 1}).EmitAll(context.Background(), units, provider, printer, NewMemorySink())
	require.NoError(t, err)

	name := units[0].Declarations[0].Name
	require.Contains(t, got, name)
	assert.Equal(t, "A struct.", got[name].Description)
}

func TestEmitAll_Deterministic(t *testing.T) {
	units := testUnits(8)
	var decls []ir.Declaration
	for _, u := range units {
		decls = append(decls, u.Declarations...)
	}
	printer := emitter.New("", decls)

	run := func() string {
		dir := t.TempDir()
		_, err := New(Options{Workers: 4}).EmitAll(context.Background(), units, docs.Empty(), printer, NewDirSink(dir))
		require.NoError(t, err)

		var b strings.Builder
		for _, u := range units {
			data, err := os.ReadFile(filepath.Join(dir, u.FileName))
			require.NoError(t, err)
			b.WriteString(u.FileName + "\n")
			b.Write(data)
		}
		return b.String()
	}

	first := run()
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, run())
	}
	assert.Contains(t, first, "type Unit00_S struct")
}
