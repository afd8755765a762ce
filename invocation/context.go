package invocation

import (
	"context"
	"sync"

	"lambdahost/infrastructure/di"
	"lambdahost/pkg/common"
	"lambdahost/pkg/features"
)

// Context carries the per-invocation state through the middleware pipeline
// and handler. A fresh Context is created for every platform invocation and
// closed when the invocation finishes; closing releases the DI scope.
type Context struct {
	ctx        context.Context
	scope      *di.Scope
	features   *features.Collection
	items      map[string]interface{}
	properties *common.Properties

	closeOnce sync.Once
	closeErr  error
}

// NewContext creates an invocation context
func NewContext(ctx context.Context, scope *di.Scope, fc *features.Collection, properties *common.Properties) *Context {
	return &Context{
		ctx:        ctx,
		scope:      scope,
		features:   fc,
		items:      make(map[string]interface{}),
		properties: properties,
	}
}

// Context returns the cancellation context for this invocation. It is
// canceled when the remaining-time budget elapses or the process is stopping.
func (c *Context) Context() context.Context {
	return c.ctx
}

// Scope returns the invocation-owned DI scope
func (c *Context) Scope() *di.Scope {
	return c.scope
}

// Features returns the typed feature collection for this invocation
func (c *Context) Features() *features.Collection {
	return c.features
}

// Items is the invocation-local key/value bag. Invocations never overlap
// within one execution environment, so no locking is required.
func (c *Context) Items() map[string]interface{} {
	return c.items
}

// Properties returns the shared cross-invocation bag. Unlike Items, it must
// tolerate concurrent access from lifecycle hooks.
func (c *Context) Properties() *common.Properties {
	return c.properties
}

// Close releases the invocation's DI scope. Calls after the first return the
// first result.
func (c *Context) Close() error {
	c.closeOnce.Do(func() {
		if c.scope != nil {
			c.closeErr = c.scope.Close()
		}
	})
	return c.closeErr
}
