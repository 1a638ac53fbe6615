package cache

import (
	"context"
	"time"
)

// NullCache stores nothing. The CLI uses it for --no-cache and when no
// cache directory can be determined, so every listing is fetched fresh.
type NullCache struct{}

var _ Cache = NullCache{}

// NewNullCache returns a NullCache.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                     { return nil }
func (NullCache) Close() error                                             { return nil }
