package pipeline

import (
	"sync"

	"lambdahost/invocation"
	pkgerrors "lambdahost/pkg/errors"
)

// HandlerFunc is the unit the pipeline composes: middleware wrap it, the
// handler terminates it.
type HandlerFunc = invocation.HandlerFunc

// Middleware wraps the next element of the pipeline
type Middleware func(next HandlerFunc) HandlerFunc

// Builder collects the registered handler and middleware during application
// construction. Registration order determines wrap order: the
// first-registered middleware is outermost. Build freezes the builder;
// further registration is rejected.
type Builder struct {
	mu          sync.Mutex
	handler     HandlerFunc
	handlerSet  bool
	middlewares []Middleware
	frozen      bool
}

// NewBuilder creates an empty pipeline builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Use appends a middleware to the pipeline
func (b *Builder) Use(m Middleware) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return pkgerrors.NewConfigurationError("cannot register middleware after the pipeline was built")
	}
	b.middlewares = append(b.middlewares, m)
	return nil
}

// SetHandler registers the terminal handler. At most one handler may be
// registered.
func (b *Builder) SetHandler(h HandlerFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return pkgerrors.NewConfigurationError("cannot register a handler after the pipeline was built")
	}
	if b.handlerSet {
		return pkgerrors.NewConfigurationError("a handler is already registered")
	}
	b.handler = h
	b.handlerSet = true
	return nil
}

// Build composes the registered middleware around the handler and freezes
// the builder. Composition is deterministic; calling Build again yields an
// equivalent pipeline.
func (b *Builder) Build() (HandlerFunc, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.handlerSet {
		return nil, pkgerrors.NewConfigurationError("cannot build a pipeline without a handler")
	}
	b.frozen = true

	composed := b.handler
	for i := len(b.middlewares) - 1; i >= 0; i-- {
		composed = b.middlewares[i](composed)
	}
	return composed, nil
}
