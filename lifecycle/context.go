package lifecycle

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"

	"lambdahost/infrastructure/di"
	"lambdahost/pkg/common"
)

// Platform holds the read-only execution-environment metadata exposed to
// lifecycle hooks. One Platform is computed per phase and shared by every
// hook invocation within it.
type Platform struct {
	Region             string
	FunctionName       string
	MemorySizeMB       int
	LogGroupName       string
	LogStreamName      string
	InitializationType string

	// SinceStart is the time elapsed since the execution environment
	// started (cold start), captured when the phase began
	SinceStart time.Duration
}

// newPlatform reads the runtime-provided environment, reusing the values the
// Lambda SDK already extracts.
func newPlatform(startedAt time.Time) *Platform {
	return &Platform{
		Region:             os.Getenv("AWS_REGION"),
		FunctionName:       lambdacontext.FunctionName,
		MemorySizeMB:       lambdacontext.MemoryLimitInMB,
		LogGroupName:       lambdacontext.LogGroupName,
		LogStreamName:      lambdacontext.LogStreamName,
		InitializationType: os.Getenv("AWS_LAMBDA_INITIALIZATION_TYPE"),
		SinceStart:         time.Since(startedAt),
	}
}

// Context is the per-hook-execution context. Every hook invocation receives
// its own fresh DI scope; the platform metadata and properties bag are
// shared across the phase.
type Context struct {
	ctx        context.Context
	scope      *di.Scope
	properties *common.Properties
	platform   *Platform

	closeOnce sync.Once
	closeErr  error
}

func newContext(ctx context.Context, scope *di.Scope, properties *common.Properties, platform *Platform) *Context {
	return &Context{
		ctx:        ctx,
		scope:      scope,
		properties: properties,
		platform:   platform,
	}
}

// Context returns the phase cancellation context shared by all hooks
func (c *Context) Context() context.Context {
	return c.ctx
}

// Scope returns the hook-owned DI scope
func (c *Context) Scope() *di.Scope {
	return c.scope
}

// Properties returns the shared cross-invocation bag
func (c *Context) Properties() *common.Properties {
	return c.properties
}

// Platform returns the read-only execution-environment metadata
func (c *Context) Platform() *Platform {
	return c.platform
}

// Close releases the hook's DI scope. Calls after the first return the first
// result.
func (c *Context) Close() error {
	c.closeOnce.Do(func() {
		if c.scope != nil {
			c.closeErr = c.scope.Close()
		}
	})
	return c.closeErr
}
