package hosting

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lambdahost/infrastructure/config"
	"lambdahost/invocation"
	"lambdahost/lifecycle"
)

// idleDriver blocks until the host cancels it, like the real bootstrap loop.
func idleDriver() Driver {
	return DriverFunc(func(ctx context.Context, handler lambda.Handler) error {
		<-ctx.Done()
		return nil
	})
}

func testOptions() *config.Options {
	opts := config.DefaultOptions()
	opts.InitTimeout = time.Second
	opts.ShutdownDuration = 200 * time.Millisecond
	opts.ShutdownDurationBuffer = 20 * time.Millisecond
	return opts
}

func TestStartRunsInitBeforeDriver(t *testing.T) {
	var order []string
	driverStarted := make(chan struct{})

	b := New(testOptions()).
		WithLogger(zap.NewNop()).
		OnInit(func(c *lifecycle.Context) (bool, error) {
			order = append(order, "init")
			return true, nil
		}).
		Handle(func(c *invocation.Context) error { return nil }).
		WithDriver(DriverFunc(func(ctx context.Context, handler lambda.Handler) error {
			close(driverStarted)
			<-ctx.Done()
			return nil
		}))

	svc, err := b.Build()
	require.NoError(t, err)
	defer svc.Close()

	require.NoError(t, svc.Start(context.Background()))
	order = append(order, "started")

	select {
	case <-driverStarted:
	case <-time.After(time.Second):
		t.Fatal("driver did not start")
	}

	assert.Equal(t, []string{"init", "started"}, order)
	require.NoError(t, svc.Stop(context.Background()))
}

func TestStartFailsWhenInitHookFails(t *testing.T) {
	initErr := errors.New("warmup failed")
	var driverRan atomic.Bool

	svc, err := New(testOptions()).
		WithLogger(zap.NewNop()).
		OnInit(func(c *lifecycle.Context) (bool, error) { return false, initErr }).
		Handle(func(c *invocation.Context) error { return nil }).
		WithDriver(DriverFunc(func(ctx context.Context, handler lambda.Handler) error {
			driverRan.Store(true)
			return nil
		})).
		Build()
	require.NoError(t, err)
	defer svc.Close()

	err = svc.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, initErr)
	assert.False(t, driverRan.Load(), "a failed init must prevent the bootstrap loop")
}

func TestStartAbortedByFalseInitResult(t *testing.T) {
	svc, err := New(testOptions()).
		WithLogger(zap.NewNop()).
		OnInit(func(c *lifecycle.Context) (bool, error) { return false, nil }).
		Handle(func(c *invocation.Context) error { return nil }).
		WithDriver(idleDriver()).
		Build()
	require.NoError(t, err)
	defer svc.Close()

	err = svc.Start(context.Background())
	assert.ErrorIs(t, err, ErrStartAborted)
}

func TestStopRunsShutdownHooksAndAggregatesErrors(t *testing.T) {
	hookErr := errors.New("drain failed")
	var hooksRan atomic.Int32

	svc, err := New(testOptions()).
		WithLogger(zap.NewNop()).
		OnShutdown(func(c *lifecycle.Context) error {
			hooksRan.Add(1)
			return hookErr
		}).
		OnShutdown(func(c *lifecycle.Context) error {
			hooksRan.Add(1)
			return nil
		}).
		Handle(func(c *invocation.Context) error { return nil }).
		WithDriver(idleDriver()).
		Build()
	require.NoError(t, err)
	defer svc.Close()

	require.NoError(t, svc.Start(context.Background()))

	err = svc.Stop(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, hookErr)
	assert.Equal(t, int32(2), hooksRan.Load())
}

func TestStopSurfacesDriverFailure(t *testing.T) {
	driverErr := errors.New("runtime api unreachable")

	svc, err := New(testOptions()).
		WithLogger(zap.NewNop()).
		Handle(func(c *invocation.Context) error { return nil }).
		WithDriver(DriverFunc(func(ctx context.Context, handler lambda.Handler) error {
			return driverErr
		})).
		Build()
	require.NoError(t, err)
	defer svc.Close()

	require.NoError(t, svc.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)

	err = svc.Stop(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, driverErr)
}

func TestRunReturnsAfterBootstrapFailure(t *testing.T) {
	driverErr := errors.New("runtime api unreachable")

	svc, err := New(testOptions()).
		WithLogger(zap.NewNop()).
		Handle(func(c *invocation.Context) error { return nil }).
		WithDriver(DriverFunc(func(ctx context.Context, handler lambda.Handler) error {
			return driverErr
		})).
		Build()
	require.NoError(t, err)
	defer svc.Close()

	done := make(chan error, 1)
	go func() {
		done <- svc.Run(context.Background())
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, driverErr)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the bootstrap loop failed")
	}
}

func TestStopKeepsCancellationErrorRaisedByLoop(t *testing.T) {
	loopErr := fmt.Errorf("poll loop gave up: %w", context.Canceled)

	svc, err := New(testOptions()).
		WithLogger(zap.NewNop()).
		Handle(func(c *invocation.Context) error { return nil }).
		WithDriver(DriverFunc(func(ctx context.Context, handler lambda.Handler) error {
			return loopErr
		})).
		Build()
	require.NoError(t, err)
	defer svc.Close()

	require.NoError(t, svc.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)

	// The loop failed on its own before Stop canceled anything, so its
	// cancellation error is a real failure, not a benign shutdown.
	err = svc.Stop(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, loopErr)
}

func TestStopIgnoresBenignCancellation(t *testing.T) {
	svc, err := New(testOptions()).
		WithLogger(zap.NewNop()).
		Handle(func(c *invocation.Context) error { return nil }).
		WithDriver(DriverFunc(func(ctx context.Context, handler lambda.Handler) error {
			<-ctx.Done()
			return ctx.Err()
		})).
		Build()
	require.NoError(t, err)
	defer svc.Close()

	require.NoError(t, svc.Start(context.Background()))
	assert.NoError(t, svc.Stop(context.Background()))
}

func TestStartTwiceFails(t *testing.T) {
	svc, err := New(testOptions()).
		WithLogger(zap.NewNop()).
		Handle(func(c *invocation.Context) error { return nil }).
		WithDriver(idleDriver()).
		Build()
	require.NoError(t, err)
	defer svc.Close()

	require.NoError(t, svc.Start(context.Background()))
	assert.Error(t, svc.Start(context.Background()))
	require.NoError(t, svc.Stop(context.Background()))
}

func TestCloseIsIdempotent(t *testing.T) {
	svc, err := New(testOptions()).
		WithLogger(zap.NewNop()).
		Handle(func(c *invocation.Context) error { return nil }).
		WithDriver(idleDriver()).
		Build()
	require.NoError(t, err)

	require.NoError(t, svc.Close())
	require.NoError(t, svc.Close())
	require.NoError(t, svc.Close())
}

func TestBuildWithoutHandlerFails(t *testing.T) {
	_, err := New(testOptions()).
		WithLogger(zap.NewNop()).
		WithDriver(idleDriver()).
		Build()
	assert.Error(t, err)
}
