package metadata

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/bindgen/internal/ir"
)

// DefaultCacheSize is the default number of lookups kept by Cached.
const DefaultCacheSize = 4096

// Cached fronts a Source with an LRU cache of exact lookups.
//
// Both hits and misses are cached; store errors never are. Enumeration is
// passed through because the resolver calls it at most once per request.
// Safe for concurrent use.
type Cached struct {
	src   Source
	cache *lru.Cache[lookupKey, lookupResult]
}

type lookupKey struct {
	method bool
	name   string
}

type lookupResult struct {
	decl ir.Declaration
	ok   bool
}

// NewCached wraps src. A size <= 0 selects DefaultCacheSize.
func NewCached(src Source, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[lookupKey, lookupResult](size)
	if err != nil {
		return nil, fmt.Errorf("create lookup cache: %w", err)
	}
	return &Cached{src: src, cache: cache}, nil
}

// FindMethod implements Source.
func (c *Cached) FindMethod(ctx context.Context, name string) (ir.Declaration, bool, error) {
	return c.lookup(ctx, lookupKey{method: true, name: name}, c.src.FindMethod)
}

// FindType implements Source.
func (c *Cached) FindType(ctx context.Context, name string) (ir.Declaration, bool, error) {
	return c.lookup(ctx, lookupKey{name: name}, c.src.FindType)
}

// EnumerateExternMethods implements Source.
func (c *Cached) EnumerateExternMethods(ctx context.Context, prefix string) ([]ir.Declaration, error) {
	return c.src.EnumerateExternMethods(ctx, prefix)
}

func (c *Cached) lookup(
	ctx context.Context,
	key lookupKey,
	fn func(context.Context, string) (ir.Declaration, bool, error),
) (ir.Declaration, bool, error) {
	if r, hit := c.cache.Get(key); hit {
		return r.decl, r.ok, nil
	}
	d, ok, err := fn(ctx, key.name)
	if err != nil {
		return ir.Declaration{}, false, err
	}
	c.cache.Add(key, lookupResult{decl: d, ok: ok})
	return d, ok, nil
}
