package cache

import "github.com/matzehuels/schemaplot/pkg/layout"

// ScopedKeyer prefixes every key of an inner keyer, giving callers that
// share one backend separate namespaces:
//
//	api := NewScopedKeyer(NewDefaultKeyer(), "api:")
//	cli := NewScopedKeyer(NewDefaultKeyer(), "cli:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner, or a [DefaultKeyer] when inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) SchemaKey(source string) string {
	return k.prefix + k.inner.SchemaKey(source)
}

func (k *ScopedKeyer) LayoutKey(schemaHash string, cfg layout.Config) string {
	return k.prefix + k.inner.LayoutKey(schemaHash, cfg)
}

func (k *ScopedKeyer) ArtifactKey(diagramHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(diagramHash, opts)
}
