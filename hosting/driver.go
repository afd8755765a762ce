package hosting

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
)

// Driver is the platform runtime bootstrap loop. The default implementation
// delegates to the Lambda runtime SDK; tests substitute in-process fakes.
type Driver interface {
	// Run drives the invocation loop until ctx is canceled or the loop
	// fails. The handler receives the raw payload of each invocation.
	Run(ctx context.Context, handler lambda.Handler) error
}

// DriverFunc is an adapter to allow functions to be used as drivers
type DriverFunc func(ctx context.Context, handler lambda.Handler) error

// Run implements Driver
func (f DriverFunc) Run(ctx context.Context, handler lambda.Handler) error {
	return f(ctx, handler)
}

type lambdaDriver struct{}

// NewLambdaDriver returns the production driver backed by the Lambda
// runtime SDK's bootstrap loop.
func NewLambdaDriver() Driver {
	return lambdaDriver{}
}

func (lambdaDriver) Run(ctx context.Context, handler lambda.Handler) error {
	// StartWithOptions blocks for the lifetime of the execution
	// environment. ctx becomes the base context of every invocation, and
	// SIGTERM delivery lets the host run its shutdown phase in the window
	// the platform grants before SIGKILL.
	lambda.StartWithOptions(handler, lambda.WithContext(ctx), lambda.WithEnableSIGTERM())
	return nil
}
