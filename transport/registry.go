package transport

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-reauth/core"
	"golang.org/x/time/rate"
)

// Adapter is a core.Transport that reports the kind it was registered under.
type Adapter interface {
	core.Transport
	Kind() string
}

type AdapterFactory func(cfg core.Config) (Adapter, error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]AdapterFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]AdapterFactory{}}
}

// NewDefaultRegistry knows the rest and retrying_rest kinds.
func NewDefaultRegistry() *Registry {
	registry := NewRegistry()
	_ = registry.RegisterFactory(KindREST, restFactory(NewHTTPClient))
	_ = registry.RegisterFactory(KindRetryingREST, restFactory(NewRetryingHTTPClient))
	return registry
}

func (r *Registry) RegisterFactory(kind string, factory AdapterFactory) error {
	if r == nil {
		return fmt.Errorf("transport: registry is nil")
	}
	kind = normalizeKind(kind)
	if kind == "" {
		return fmt.Errorf("transport: adapter kind is required")
	}
	if factory == nil {
		return fmt.Errorf("transport: adapter factory is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("transport: adapter factory kind %q already registered", kind)
	}
	r.factories[kind] = factory
	return nil
}

// Build creates the adapter for cfg.Transport.Kind.
func (r *Registry) Build(cfg core.Config) (Adapter, error) {
	if r == nil {
		return nil, fmt.Errorf("transport: registry is nil")
	}
	kind := normalizeKind(cfg.Transport.Kind)
	if kind == "" {
		kind = core.DefaultTransportKind
	}

	r.mu.RLock()
	factory := r.factories[kind]
	r.mu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("transport: adapter kind %q not registered", kind)
	}
	built, err := factory(cfg)
	if err != nil {
		return nil, err
	}
	if built == nil {
		return nil, fmt.Errorf("transport: factory for %q returned nil adapter", kind)
	}
	return built, nil
}

func (r *Registry) Kinds() []string {
	if r == nil {
		return []string{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func normalizeKind(kind string) string {
	return strings.TrimSpace(strings.ToLower(kind))
}

func restFactory(newClient func(core.TransportConfig) (*http.Client, error)) AdapterFactory {
	return func(cfg core.Config) (Adapter, error) {
		client, err := newClient(cfg.Transport)
		if err != nil {
			return nil, err
		}
		adapter := NewRESTAdapter(client, cfg.BaseURL)
		if cfg.Transport.MaxResponseBodyBytes > 0 {
			adapter.MaxResponseBodyBytes = cfg.Transport.MaxResponseBodyBytes
		}
		if cfg.Transport.RateLimit > 0 {
			adapter.Limiter = rate.NewLimiter(rate.Limit(cfg.Transport.RateLimit), max(cfg.Transport.RateBurst, 1))
		}
		return kindAdapter{Adapter: adapter, kind: normalizeKind(cfg.Transport.Kind)}, nil
	}
}

// kindAdapter reports the registry kind it was built for.
type kindAdapter struct {
	Adapter
	kind string
}

func (a kindAdapter) Kind() string {
	if a.kind == "" {
		return a.Adapter.Kind()
	}
	return a.kind
}
