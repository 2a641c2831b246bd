// Package provider holds the event source adapters and the static registry
// that maps a configured module name to its implementation.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/berlin-events-service/internal/domain"
)

// ErrUnknownModule is returned by Lookup for a module that was never registered.
var ErrUnknownModule = errors.New("unknown provider module")

// Adapter fetches the current events of one source.
type Adapter interface {
	FetchEvents(ctx context.Context, cfg domain.ProviderConfig) ([]domain.Event, error)
}

// AdapterFunc adapts a plain function to the Adapter interface.
type AdapterFunc func(ctx context.Context, cfg domain.ProviderConfig) ([]domain.Event, error)

func (f AdapterFunc) FetchEvents(ctx context.Context, cfg domain.ProviderConfig) ([]domain.Event, error) {
	return f(ctx, cfg)
}

// Registry is a fixed set of adapters keyed by module name. It is filled
// once at startup and only read afterwards.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter under module. Registering a module twice panics,
// since it can only happen through a wiring mistake.
func (r *Registry) Register(module string, a Adapter) {
	if _, dup := r.adapters[module]; dup {
		panic(fmt.Sprintf("provider: module %q registered twice", module))
	}
	r.adapters[module] = a
}

// Lookup returns the adapter for module.
func (r *Registry) Lookup(module string) (Adapter, error) {
	a, ok := r.adapters[module]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, module)
	}
	return a, nil
}

// Modules lists the registered module names in order.
func (r *Registry) Modules() []string {
	out := make([]string, 0, len(r.adapters))
	for m := range r.adapters {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Builtin returns a registry with every adapter shipped with the service.
func Builtin(httpClient *http.Client, clock clockwork.Clock) *Registry {
	r := NewRegistry()
	r.Register("example", NewExampleAdapter(clock))
	r.Register("jsonfeed", NewJSONFeedAdapter(httpClient))
	return r
}
