package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/ghcr-tools/pkgsweep/client"
)

// Registry is the interface implemented by all registry backends.
type Registry interface {
	// Kind returns the backend identifier (e.g., "ghcr").
	Kind() string

	// ListVersions retrieves every stored version of a package, paging
	// through the registry API. The sequence is complete: a failed page
	// fails the whole listing.
	ListVersions(ctx context.Context, owner, pkg string) ([]RawVersion, error)

	// DeleteVersion permanently deletes one version by id. A version that
	// is already gone counts as deleted.
	DeleteVersion(ctx context.Context, owner, pkg, id string) error

	// URLs returns the URL builder for this registry.
	URLs() client.URLBuilder
}

// Factory creates a registry backend for a given base URL.
type Factory func(baseURL string, d client.Doer) Registry

var (
	factories = make(map[string]Factory)
	defaults  = make(map[string]string)
	mu        sync.RWMutex
)

// Register adds a registry factory to the global registry.
// kind is the backend identifier; defaultURL its default API URL.
func Register(kind string, defaultURL string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = factory
	defaults[kind] = defaultURL
}

// New creates a new registry backend of the given kind.
// If baseURL is empty, the default API URL is used.
func New(kind string, baseURL string, d client.Doer) (Registry, error) {
	mu.RLock()
	factory, ok := factories[kind]
	defaultURL := defaults[kind]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown registry kind: %s", kind)
	}

	if baseURL == "" {
		baseURL = defaultURL
	}

	if d == nil {
		d = client.DefaultClient()
	}

	return factory(baseURL, d), nil
}

// SupportedKinds returns all registered backend kinds.
func SupportedKinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	kinds := make([]string, 0, len(factories))
	for kind := range factories {
		kinds = append(kinds, kind)
	}
	return kinds
}

// DefaultURL returns the default API URL for a backend kind.
func DefaultURL(kind string) string {
	mu.RLock()
	defer mu.RUnlock()
	return defaults[kind]
}
