// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package macro

import (
	"log/slog"
	"sort"
	"sync"
)

// Registry holds the known macro providers keyed by name. The first
// provider registered under a name wins; later registrations of the
// same name are dropped with a warning.
//
// Registry is safe for concurrent use. Expansion reads far outnumber
// registrations, so lookups share a read lock.
type Registry struct {
	logger *slog.Logger

	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		providers: make(map[string]Provider),
	}
}

// Register adds providers. A provider whose name is already
// registered, or whose name is not a single ${...} token, is skipped
// and logged. Registration never fails, so independent components can
// contribute overlapping provider sets without coordinating.
func (r *Registry) Register(providers ...Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, provider := range providers {
		if provider == nil {
			continue
		}
		name := provider.Name()
		if !IsToken(name) {
			r.logger.Warn("ignoring command macro with malformed name", "macro", name)
			continue
		}
		if _, exists := r.providers[name]; exists {
			r.logger.Warn("command macro already registered", "macro", name)
			continue
		}
		r.providers[name] = provider
	}
}

// Unregister removes whatever is registered under provider's name.
// The stored provider need not be the same value: removal is by name.
func (r *Registry) Unregister(provider Provider) {
	if provider == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, provider.Name())
}

// Provider returns the provider registered under name.
func (r *Registry) Provider(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, exists := r.providers[name]
	return provider, exists
}

// Providers returns a snapshot of the registered providers, sorted by
// name.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	providers := make([]Provider, 0, len(r.providers))
	for _, provider := range r.providers {
		providers = append(providers, provider)
	}
	sort.Slice(providers, func(i, j int) bool {
		return providers[i].Name() < providers[j].Name()
	})
	return providers
}

// Keys returns the registered macro names, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.providers))
	for name := range r.providers {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys
}

// lookup resolves names against a single snapshot of the registry.
// The result is indexed like names; unregistered names map to nil.
func (r *Registry) lookup(names []string) []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	providers := make([]Provider, len(names))
	for i, name := range names {
		providers[i] = r.providers[name]
	}
	return providers
}
