package cache

import "github.com/matzehuels/schemaplot/pkg/layout"

// ArtifactKeyOpts are the render options that change an artifact's bytes.
type ArtifactKeyOpts struct {
	Format  string  `json:"format"`
	Compact bool    `json:"compact,omitempty"`
	Scale   float64 `json:"scale,omitempty"`
}

// Keyer derives cache keys.
type Keyer interface {
	// SchemaKey names the keys loaded from a live source.
	SchemaKey(source string) string
	// LayoutKey names the diagram computed from keys with a configuration.
	LayoutKey(schemaHash string, cfg layout.Config) string
	// ArtifactKey names a rendering of a diagram.
	ArtifactKey(diagramHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes inputs into "<kind>:<sha256>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) SchemaKey(source string) string {
	return "schema:" + source
}

func (DefaultKeyer) LayoutKey(schemaHash string, cfg layout.Config) string {
	return hashKey("layout", schemaHash, cfg)
}

func (DefaultKeyer) ArtifactKey(diagramHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", diagramHash, opts)
}
