package common

import "sync"

// Properties is the cross-invocation shared state bag. One instance lives
// for the whole execution environment and may be accessed concurrently by
// lifecycle hooks and in-flight invocations.
type Properties struct {
	values sync.Map
}

// NewProperties creates an empty properties bag
func NewProperties() *Properties {
	return &Properties{}
}

// Get returns the value stored under key
func (p *Properties) Get(key string) (interface{}, bool) {
	return p.values.Load(key)
}

// Set stores a value under key
func (p *Properties) Set(key string, value interface{}) {
	p.values.Store(key, value)
}

// Delete removes the value stored under key
func (p *Properties) Delete(key string) {
	p.values.Delete(key)
}

// GetOrSet returns the existing value for key, storing and returning value
// when no entry exists yet.
func (p *Properties) GetOrSet(key string, value interface{}) (interface{}, bool) {
	return p.values.LoadOrStore(key, value)
}

// Range iterates over all entries until fn returns false
func (p *Properties) Range(fn func(key string, value interface{}) bool) {
	p.values.Range(func(k, v interface{}) bool {
		return fn(k.(string), v)
	})
}
