package fabricante

import (
	"fmt"
	"os"
)

type Resolver struct {
	registry *Registry
	exists   func(path string) bool
}

func NewResolver(registry *Registry) *Resolver {
	return &Resolver{registry: registry, exists: fileExists}
}

// Resolve returns the primary library path if present on disk, else the
// fallback one.
func (r *Resolver) Resolve(id ID) (string, error) {
	entry, ok := r.registry.Lookup(id)
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrInvalidManufacturer, int(id))
	}
	if r.exists(entry.PrimaryPath) {
		return entry.PrimaryPath, nil
	}
	if r.exists(entry.FallbackPath) {
		return entry.FallbackPath, nil
	}
	return "", fmt.Errorf("%w %s: tried %s and %s", ErrUnresolved, id, entry.PrimaryPath, entry.FallbackPath)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
