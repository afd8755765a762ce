package di

import "fmt"

// BindingNotFoundError is returned when no registration exists for a type.
type BindingNotFoundError struct {
	Type string
	Name string
}

func (e *BindingNotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("no service registered for type %s with key %q", e.Type, e.Name)
	}
	return fmt.Sprintf("no service registered for type %s", e.Type)
}

// InitializationError is returned when a constructor fails.
type InitializationError struct {
	Type string
	Err  error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("failed to construct service %s: %v", e.Type, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// TypeMismatchError is returned when a resolved instance does not satisfy
// the requested type.
type TypeMismatchError struct {
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("service type mismatch: expected %s, got %s", e.Expected, e.Got)
}

// CircularDependencyError is returned when constructors form a resolution cycle.
type CircularDependencyError struct {
	Type string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency detected while resolving %s", e.Type)
}

// ScopeClosedError is returned when resolving through a closed scope.
type ScopeClosedError struct {
	Type string
}

func (e *ScopeClosedError) Error() string {
	return fmt.Sprintf("cannot resolve %s: scope is closed", e.Type)
}
