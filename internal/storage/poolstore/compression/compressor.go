// Package compression provides the payload compressors available to the pool
// store. Compressors are stateless and registered once at init time.
package compression

import (
	"fmt"
	"sync"
)

// Compressor encodes and decodes stored payloads. Implementations must be
// safe for concurrent use.
type Compressor interface {
	// Name returns the registry name of the algorithm.
	Name() string

	// Compress encodes data at the given level. Levels outside the
	// algorithm's range are clamped.
	Compress(data []byte, level int) ([]byte, error)

	// Decompress decodes a payload produced by Compress.
	Decompress(data []byte) ([]byte, error)

	// MaxCompressedSize returns the worst-case encoded size for an input
	// of the given length.
	MaxCompressedSize(uncompressedSize int) int
}

var (
	mu       sync.RWMutex
	registry = make(map[string]Compressor)
)

// Register makes a compressor available under its Name. Registering the same
// name twice replaces the earlier entry.
func Register(c Compressor) {
	mu.Lock()
	defer mu.Unlock()
	registry[c.Name()] = c
}

// Get returns the compressor registered under name.
func Get(name string) (Compressor, error) {
	mu.RLock()
	c, ok := registry[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown compressor: %s", name)
	}
	return c, nil
}

// Available returns the registered compressor names.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// IsAvailable reports whether a compressor is registered under name.
func IsAvailable(name string) bool {
	mu.RLock()
	_, ok := registry[name]
	mu.RUnlock()
	return ok
}

func init() {
	Register(NoCompressor{})
	Register(LZ4Compressor{})
}
