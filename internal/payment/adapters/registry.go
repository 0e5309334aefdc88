package adapters

import (
	"strings"

	"github.com/mcofie/itinero-web-sub003/internal/payment/domain"
)

// Registry resolves payment adapters by provider name.
type Registry struct {
	adapters map[string]domain.PaymentAdapter
}

func NewRegistry(adapters ...domain.PaymentAdapter) *Registry {
	registry := &Registry{adapters: make(map[string]domain.PaymentAdapter, len(adapters))}
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		registry.adapters[strings.ToLower(adapter.Provider())] = adapter
	}
	return registry
}

func (r *Registry) Get(provider string) (domain.PaymentAdapter, bool) {
	if r == nil {
		return nil, false
	}
	adapter, ok := r.adapters[strings.ToLower(strings.TrimSpace(provider))]
	return adapter, ok
}
