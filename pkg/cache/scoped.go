package cache

// ScopedKeyer wraps a Keyer with a prefix so several consumers can share one
// backend without colliding. The HTTP service scopes its keys this way when
// it shares a Redis instance with other deployments.
//
//	k := NewScopedKeyer(NewDefaultKeyer(), "serve:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// A nil inner keyer means DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// DumpKey generates a prefixed dump key.
func (k *ScopedKeyer) DumpKey(snapshotHash string, opts DumpKeyOpts) string {
	return k.prefix + k.inner.DumpKey(snapshotHash, opts)
}

// RenderKey generates a prefixed render key.
func (k *ScopedKeyer) RenderKey(snapshotHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(snapshotHash, opts)
}
