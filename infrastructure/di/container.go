package di

import (
	"io"
	"reflect"
	"sync"
)

// Lifetime defines the sharing behavior of a registered service.
type Lifetime int

const (
	// Singleton shares one instance across the whole process
	Singleton Lifetime = iota
	// Scoped shares one instance within a single scope
	Scoped
	// Transient creates a new instance for each resolution
	Transient
)

// Constructor builds a service instance, resolving its own dependencies
// through the supplied resolver.
type Constructor func(r Resolver) (interface{}, error)

// Resolver resolves services by type. Implemented by *Scope.
type Resolver interface {
	// GetService returns the service for t, or (nil, nil) when t is not registered
	GetService(t reflect.Type) (interface{}, error)
	// GetRequiredService returns the service for t, failing when t is not registered
	GetRequiredService(t reflect.Type) (interface{}, error)
	// GetKeyedService returns the named service for t
	GetKeyedService(t reflect.Type, name string) (interface{}, error)
}

type serviceKey struct {
	t    reflect.Type
	name string
}

type registration struct {
	lifetime Lifetime
	ctor     Constructor
}

// Container holds service registrations and singleton instances.
// Registrations happen during application construction; resolution is
// thread-safe afterwards.
type Container struct {
	mu         sync.RWMutex
	regs       map[serviceKey]*registration
	singletons map[serviceKey]interface{}
	closers    []io.Closer
	closed     bool
}

// NewContainer creates an empty container
func NewContainer() *Container {
	return &Container{
		regs:       make(map[serviceKey]*registration),
		singletons: make(map[serviceKey]interface{}),
	}
}

// RegisterType registers a constructor for t with the given lifetime
func (c *Container) RegisterType(t reflect.Type, lifetime Lifetime, ctor Constructor) {
	c.RegisterNamedType(t, "", lifetime, ctor)
}

// RegisterNamedType registers a keyed constructor for t
func (c *Container) RegisterNamedType(t reflect.Type, name string, lifetime Lifetime, ctor Constructor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regs[serviceKey{t: t, name: name}] = &registration{lifetime: lifetime, ctor: ctor}
}

// RegisterInstance registers an already-built singleton instance for t
func (c *Container) RegisterInstance(t reflect.Type, instance interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := serviceKey{t: t}
	c.regs[key] = &registration{lifetime: Singleton}
	c.singletons[key] = instance
	if closer, ok := instance.(io.Closer); ok {
		c.closers = append(c.closers, closer)
	}
}

// CreateScope creates a fresh resolution scope. The scope owns every scoped
// and transient instance it creates and releases them on Close.
func (c *Container) CreateScope() *Scope {
	return &Scope{
		container: c,
		instances: make(map[serviceKey]interface{}),
		resolving: make(map[serviceKey]bool),
	}
}

// Close releases singleton instances that implement io.Closer.
// Safe to call multiple times.
func (c *Container) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	closers := c.closers
	c.closers = nil
	c.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return combine(errs)
}

func (c *Container) lookup(key serviceKey) (*registration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	reg, ok := c.regs[key]
	return reg, ok
}

func (c *Container) singleton(key serviceKey, build func() (interface{}, error)) (interface{}, error) {
	c.mu.RLock()
	if instance, ok := c.singletons[key]; ok {
		c.mu.RUnlock()
		return instance, nil
	}
	c.mu.RUnlock()

	instance, err := build()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another goroutine may have built the instance in the meantime; keep
	// the first one so singletons stay single.
	if existing, ok := c.singletons[key]; ok {
		return existing, nil
	}
	c.singletons[key] = instance
	if closer, ok := instance.(io.Closer); ok {
		c.closers = append(c.closers, closer)
	}
	return instance, nil
}

func combine(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	combined := errs[0]
	for _, err := range errs[1:] {
		combined = &multiCloseError{first: combined, next: err}
	}
	return combined
}

type multiCloseError struct {
	first error
	next  error
}

func (e *multiCloseError) Error() string {
	return e.first.Error() + "; " + e.next.Error()
}

func (e *multiCloseError) Unwrap() error {
	return e.first
}

// Generic registration helpers

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Register registers a typed constructor with the given lifetime
func Register[T any](c *Container, lifetime Lifetime, ctor func(r Resolver) (T, error)) {
	c.RegisterType(typeOf[T](), lifetime, func(r Resolver) (interface{}, error) {
		return ctor(r)
	})
}

// RegisterNamed registers a typed keyed constructor with the given lifetime
func RegisterNamed[T any](c *Container, name string, lifetime Lifetime, ctor func(r Resolver) (T, error)) {
	c.RegisterNamedType(typeOf[T](), name, lifetime, func(r Resolver) (interface{}, error) {
		return ctor(r)
	})
}

// RegisterInstance registers an already-built singleton
func RegisterInstance[T any](c *Container, instance T) {
	c.RegisterInstance(typeOf[T](), instance)
}

// Resolve resolves a typed service from a resolver
func Resolve[T any](r Resolver) (T, error) {
	var zero T
	instance, err := r.GetRequiredService(typeOf[T]())
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, &TypeMismatchError{Expected: typeOf[T]().String(), Got: reflect.TypeOf(instance).String()}
	}
	return typed, nil
}

// ResolveNamed resolves a typed keyed service from a resolver
func ResolveNamed[T any](r Resolver, name string) (T, error) {
	var zero T
	instance, err := r.GetKeyedService(typeOf[T](), name)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, &TypeMismatchError{Expected: typeOf[T]().String(), Got: reflect.TypeOf(instance).String()}
	}
	return typed, nil
}
