package resolver

import (
	"context"
	"testing"

	"github.com/roach88/bindgen/internal/ir"
	"github.com/roach88/bindgen/internal/metadata"
)

// method creates an extern method declaration referencing refs.
func method(ns, name string, refs ...string) ir.Declaration {
	d := ir.Declaration{
		Name:      ir.Qualify(ns, name),
		Namespace: ns,
		Kind:      ir.KindMethod,
		DLL:       "test",
		Extern:    true,
		Refs:      refs,
	}
	if d.Refs == nil {
		d.Refs = []string{}
	}
	return d
}

// typ creates a struct declaration referencing refs.
func typ(ns, name string, refs ...string) ir.Declaration {
	d := ir.Declaration{
		Name:      ir.Qualify(ns, name),
		Namespace: ns,
		Kind:      ir.KindStruct,
		Refs:      refs,
	}
	if d.Refs == nil {
		d.Refs = []string{}
	}
	return d
}

// resolve runs a resolution that must succeed.
func resolve(t *testing.T, src metadata.Source, opts Options, reqs ...Request) *Result {
	t.Helper()
	res, err := New(src, opts).Resolve(context.Background(), reqs)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	return res
}

// cancellingSource cancels its context after a number of lookups.
type cancellingSource struct {
	metadata.Source
	cancel context.CancelFunc
	after  int
	calls  int
}

func (c *cancellingSource) tick() {
	c.calls++
	if c.calls == c.after {
		c.cancel()
	}
}

func (c *cancellingSource) FindMethod(ctx context.Context, name string) (ir.Declaration, bool, error) {
	c.tick()
	return c.Source.FindMethod(ctx, name)
}

func (c *cancellingSource) FindType(ctx context.Context, name string) (ir.Declaration, bool, error) {
	c.tick()
	return c.Source.FindType(ctx, name)
}
