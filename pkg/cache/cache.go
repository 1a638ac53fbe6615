// Package cache provides byte-oriented caches for repository listings and
// resolution results.
//
// Three backends implement [Cache]:
//
//   - [NullCache]: never stores anything (--no-cache, tests)
//   - [FileCache]: one JSON file per entry under ~/.cache/fsm
//   - [RedisCache]: a shared redis instance, used by "fsm serve"
//
// Keys are produced by a [Keyer] so that every component names its entries
// the same way regardless of backend.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Keyer generates cache keys.
type Keyer interface {
	// HTTPKey names a cached HTTP response body.
	HTTPKey(namespace, key string) string
	// ResolutionKey names a cached resolution of the listing with the
	// given content digest.
	ResolutionKey(digest string, opts ResolutionKeyOpts) string
}

// ResolutionKeyOpts holds the options that change a resolution result.
type ResolutionKeyOpts struct {
	Root          string `json:"root"`
	CheckVersions bool   `json:"check_versions"`
	MaxDepth      int    `json:"max_depth"`
	Repository    string `json:"repository,omitempty"` // digest of the target repository, if any
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default Keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// HTTPKey returns "http:<namespace>:<key>".
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// ResolutionKey returns "resolve:<hash>" over the digest and options.
func (DefaultKeyer) ResolutionKey(digest string, opts ResolutionKeyOpts) string {
	return hashKey("resolve", digest, opts)
}
