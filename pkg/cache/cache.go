// Package cache stores pipeline results keyed by content hashes.
//
// Layouts are deterministic: the same keys and the same layout configuration
// always produce the same diagram. The pipeline therefore caches a computed
// diagram under a hash of its inputs and reuses it until the inputs change.
// Rendered artifacts are cached under a hash of the diagram and the render
// options.
//
// # Backends
//
//   - [NullCache]: caching disabled
//   - [MemoryCache]: process-local map, used by the HTTP server and tests
//   - [FileCache]: one JSON file per entry, used by the CLI
//   - [RedisCache]: shared cache for several server instances
//
// # Keys
//
// A [Keyer] derives keys from content hashes and options. [DefaultKeyer]
// produces keys of the form "<kind>:<sha256>"; [ScopedKeyer] prepends a
// namespace.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the stored value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Default lifetimes per entry kind.
const (
	TTLSchema   = time.Hour
	TTLLayout   = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)
