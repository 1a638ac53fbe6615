package cache

// ScopedKeyer wraps a Keyer with a prefix so that several processes can
// share one backend without colliding, e.g. the API server and CLI users
// pointed at the same redis instance.
//
//	serverKeyer := NewScopedKeyer(NewDefaultKeyer(), "server:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// A nil inner keyer means the DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// HTTPKey generates a prefixed key for HTTP response caching.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// ResolutionKey generates a prefixed key for resolution caching.
func (k *ScopedKeyer) ResolutionKey(digest string, opts ResolutionKeyOpts) string {
	return k.prefix + k.inner.ResolutionKey(digest, opts)
}
