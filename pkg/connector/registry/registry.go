// Package registry manages connector registration and instantiation. Source
// packages register a factory from their init function; the CLI creates
// connectors by name without importing the source packages directly.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/retailstream/harvester/pkg/config"
	"github.com/retailstream/harvester/pkg/connector/core"
	"github.com/retailstream/harvester/pkg/errors"
	"github.com/retailstream/harvester/pkg/logger"
	"go.uber.org/zap"
)

// Factory creates a configured connector instance for a source.
type Factory func(cfg *config.Config) (core.Connector, error)

// Registry manages connector registration and instantiation.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
	logger    *zap.Logger
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a new connector registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		logger:    logger.Get().With(zap.String("component", "connector_registry")),
	}
}

// Register registers a connector factory under the given source name.
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("connector %s already registered", name))
	}

	r.factories[name] = factory
	r.logger.Debug("connector registered", zap.String("name", name))
	return nil
}

// Create creates a connector instance by source name.
func (r *Registry) Create(name string, cfg *config.Config) (core.Connector, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("connector %s not found", name))
	}

	conn, err := factory(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create connector %s", name))
	}

	return conn, nil
}

// List returns the registered source names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has checks whether a connector is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[name]
	return exists
}

// Clear removes all registered connectors (mainly for testing).
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = make(map[string]Factory)
}

// Global registry functions

// Register registers a connector in the global registry.
func Register(name string, factory Factory) error {
	return globalRegistry.Register(name, factory)
}

// MustRegister registers a connector and panics on conflict. Intended for
// init-time registration where a duplicate name is a programming error.
func MustRegister(name string, factory Factory) {
	if err := globalRegistry.Register(name, factory); err != nil {
		panic(err)
	}
}

// Create creates a connector from the global registry.
func Create(name string, cfg *config.Config) (core.Connector, error) {
	return globalRegistry.Create(name, cfg)
}

// List returns registered sources from the global registry.
func List() []string {
	return globalRegistry.List()
}

// Has checks if a source is registered in the global registry.
func Has(name string) bool {
	return globalRegistry.Has(name)
}

// GetRegistry returns the global registry instance.
func GetRegistry() *Registry {
	return globalRegistry
}
