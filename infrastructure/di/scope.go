package di

import (
	"io"
	"reflect"
	"sync"
)

// Scope is a resolution scope. Each invocation and each lifecycle hook
// execution owns exactly one scope; scopes are never shared.
type Scope struct {
	container *Container
	mu        sync.Mutex
	instances map[serviceKey]interface{}
	resolving map[serviceKey]bool
	closers   []io.Closer
	closed    bool
}

// GetService returns the service registered for t, or (nil, nil) when t is
// not registered.
func (s *Scope) GetService(t reflect.Type) (interface{}, error) {
	instance, err := s.resolve(serviceKey{t: t})
	if err != nil {
		if _, ok := err.(*BindingNotFoundError); ok {
			return nil, nil
		}
		return nil, err
	}
	return instance, nil
}

// GetRequiredService returns the service registered for t, failing when t is
// not registered.
func (s *Scope) GetRequiredService(t reflect.Type) (interface{}, error) {
	return s.resolve(serviceKey{t: t})
}

// GetKeyedService returns the service registered for t under the given name.
func (s *Scope) GetKeyedService(t reflect.Type, name string) (interface{}, error) {
	return s.resolve(serviceKey{t: t, name: name})
}

// Close releases every scoped and transient instance created through this
// scope that implements io.Closer, in reverse creation order.
// Safe to call multiple times; calls after the first are no-ops.
func (s *Scope) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return combine(errs)
}

func (s *Scope) resolve(key serviceKey) (interface{}, error) {
	reg, ok := s.container.lookup(key)
	if !ok {
		return nil, &BindingNotFoundError{Type: key.t.String(), Name: key.name}
	}

	switch reg.lifetime {
	case Singleton:
		return s.container.singleton(key, func() (interface{}, error) {
			return s.construct(key, reg)
		})

	case Scoped:
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, &ScopeClosedError{Type: key.t.String()}
		}
		if instance, ok := s.instances[key]; ok {
			s.mu.Unlock()
			return instance, nil
		}
		s.mu.Unlock()

		instance, err := s.construct(key, reg)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.instances[key]; ok {
			return existing, nil
		}
		s.instances[key] = instance
		s.trackLocked(instance)
		return instance, nil

	default: // Transient
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, &ScopeClosedError{Type: key.t.String()}
		}
		s.mu.Unlock()

		instance, err := s.construct(key, reg)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		s.trackLocked(instance)
		return instance, nil
	}
}

// construct runs the registered constructor with circular-dependency tracking.
func (s *Scope) construct(key serviceKey, reg *registration) (interface{}, error) {
	s.mu.Lock()
	if s.resolving[key] {
		s.mu.Unlock()
		return nil, &CircularDependencyError{Type: key.t.String()}
	}
	s.resolving[key] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.resolving, key)
		s.mu.Unlock()
	}()

	instance, err := reg.ctor(s)
	if err != nil {
		return nil, &InitializationError{Type: key.t.String(), Err: err}
	}
	return instance, nil
}

func (s *Scope) trackLocked(instance interface{}) {
	if closer, ok := instance.(io.Closer); ok {
		s.closers = append(s.closers, closer)
	}
}
