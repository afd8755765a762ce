package features

import (
	"reflect"
	"sync"
)

// Provider lazily produces feature instances. Providers are queried in
// registration order the first time a feature type is requested; the first
// provider that can produce the type wins.
type Provider interface {
	TryCreate(t reflect.Type) (interface{}, bool)
}

// ProviderFunc is an adapter to allow functions to be used as providers
type ProviderFunc func(t reflect.Type) (interface{}, bool)

// TryCreate implements Provider
func (f ProviderFunc) TryCreate(t reflect.Type) (interface{}, bool) {
	return f(t)
}

// Collection is a typed map from capability type to capability instance.
// One collection lives per invocation; lazily-produced features are cached
// for the invocation's lifetime.
type Collection struct {
	mu        sync.RWMutex
	items     map[reflect.Type]interface{}
	providers []Provider
}

// NewCollection creates a collection backed by the given providers
func NewCollection(providers ...Provider) *Collection {
	return &Collection{
		items:     make(map[reflect.Type]interface{}),
		providers: providers,
	}
}

// Set stores a feature instance for t, replacing any existing one
func (c *Collection) Set(t reflect.Type, instance interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[t] = instance
}

// Get returns the feature for t, consulting providers on first request
func (c *Collection) Get(t reflect.Type) (interface{}, bool) {
	c.mu.RLock()
	if instance, ok := c.items[t]; ok {
		c.mu.RUnlock()
		return instance, true
	}
	providers := c.providers
	c.mu.RUnlock()

	for _, p := range providers {
		if instance, ok := p.TryCreate(t); ok {
			c.mu.Lock()
			// A concurrent Get may have populated the slot first.
			if existing, ok := c.items[t]; ok {
				c.mu.Unlock()
				return existing, true
			}
			c.items[t] = instance
			c.mu.Unlock()
			return instance, true
		}
	}
	return nil, false
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Put stores a typed feature instance
func Put[T any](c *Collection, instance T) {
	c.Set(typeOf[T](), instance)
}

// Of returns the typed feature, if present or producible
func Of[T any](c *Collection) (T, bool) {
	var zero T
	instance, ok := c.Get(typeOf[T]())
	if !ok {
		return zero, false
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
