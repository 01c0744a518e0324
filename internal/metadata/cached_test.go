package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bindgen/internal/ir"
)

type countingSource struct {
	Source
	methodCalls int
	typeCalls   int
	fail        error
}

func (c *countingSource) FindMethod(ctx context.Context, name string) (ir.Declaration, bool, error) {
	c.methodCalls++
	if c.fail != nil {
		return ir.Declaration{}, false, c.fail
	}
	return c.Source.FindMethod(ctx, name)
}

func (c *countingSource) FindType(ctx context.Context, name string) (ir.Declaration, bool, error) {
	c.typeCalls++
	return c.Source.FindType(ctx, name)
}

func TestCached_HitsAndMisses(t *testing.T) {
	src := &countingSource{Source: MustIndex(typ("Ns", "Widget"))}
	c, err := NewCached(src, 0)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, ok, err := c.FindMethod(ctx, "Widget")
		require.NoError(t, err)
		assert.False(t, ok)

		d, ok, err := c.FindType(ctx, "Widget")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "Ns.Widget", d.Name)
	}

	assert.Equal(t, 1, src.methodCalls, "negative lookups are cached")
	assert.Equal(t, 1, src.typeCalls, "positive lookups are cached")
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	src := &countingSource{Source: MustIndex(), fail: errors.New("disk gone")}
	c, err := NewCached(src, 8)
	require.NoError(t, err)

	_, _, err = c.FindMethod(context.Background(), "X")
	require.Error(t, err)
	_, _, err = c.FindMethod(context.Background(), "X")
	require.Error(t, err)
	assert.Equal(t, 2, src.methodCalls)
}

func TestCached_EnumeratePassesThrough(t *testing.T) {
	c, err := NewCached(MustIndex(method("Ns", "A", true)), 8)
	require.NoError(t, err)

	decls, err := c.EnumerateExternMethods(context.Background(), "Ns")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ns.A"}, names(decls))
}
