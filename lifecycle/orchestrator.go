package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"lambdahost/infrastructure/config"
	"lambdahost/infrastructure/di"
	"lambdahost/pkg/common"
	pkgerrors "lambdahost/pkg/errors"
)

// InitHook runs during cold start, before any invocation is served.
// Returning false aborts startup without an error; returning an error marks
// the init phase as faulted.
type InitHook func(*Context) (bool, error)

// ShutdownHook runs when the execution environment is terminating. Hook
// errors are collected, never raised, and never prevent sibling hooks from
// running.
type ShutdownHook func(*Context) error

// Orchestrator fans out init and shutdown hooks. All hooks of a phase run
// concurrently, each in its own fresh DI scope, under a shared token derived
// from the phase budget; the phase waits for every hook to finish before
// concluding.
type Orchestrator struct {
	container     *di.Container
	properties    *common.Properties
	opts          *config.Options
	logger        *zap.Logger
	startedAt     time.Time
	initHooks     []InitHook
	shutdownHooks []ShutdownHook
}

// NewOrchestrator creates an orchestrator over frozen hook lists
func NewOrchestrator(
	container *di.Container,
	properties *common.Properties,
	opts *config.Options,
	logger *zap.Logger,
	startedAt time.Time,
	initHooks []InitHook,
	shutdownHooks []ShutdownHook,
) *Orchestrator {
	return &Orchestrator{
		container:     container,
		properties:    properties,
		opts:          opts,
		logger:        logger,
		startedAt:     startedAt,
		initHooks:     initHooks,
		shutdownHooks: shutdownHooks,
	}
}

// RunInit runs all init hooks concurrently, bounded by InitTimeout. It waits
// for every hook to finish, then either raises every hook failure as one
// combined error, or reports the logical AND of the hook results.
func (o *Orchestrator) RunInit(ctx context.Context) (bool, error) {
	if len(o.initHooks) == 0 {
		return true, nil
	}

	tctx, cancel := context.WithTimeout(ctx, o.opts.InitTimeout)
	defer cancel()

	platform := newPlatform(o.startedAt)
	start := time.Now()

	type result struct {
		ok  bool
		err error
	}
	results := make([]result, len(o.initHooks))

	var wg sync.WaitGroup
	wg.Add(len(o.initHooks))
	for i, hook := range o.initHooks {
		go func(i int, hook InitHook) {
			defer wg.Done()
			ok, err := o.runInitHook(tctx, platform, i, hook)
			results[i] = result{ok: ok, err: err}
		}(i, hook)
	}
	wg.Wait()

	var errs []error
	allOK := true
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
		} else if !r.ok {
			allOK = false
		}
	}

	o.logger.Info("init phase completed",
		zap.Int("hooks", len(o.initHooks)),
		zap.Int("failed", len(errs)),
		zap.Duration("duration", time.Since(start)),
	)

	if len(errs) > 0 {
		return false, pkgerrors.NewLifecycleError(
			fmt.Sprintf("%d of %d init hooks failed", len(errs), len(o.initHooks)),
			pkgerrors.Combine(errs...))
	}
	return allOK, nil
}

// RunShutdown runs all shutdown hooks concurrently, bounded by the
// SIGTERM-to-SIGKILL budget. Every error, including cancellation errors, is
// collected rather than raised; the phase always completes.
func (o *Orchestrator) RunShutdown(ctx context.Context) []error {
	if len(o.shutdownHooks) == 0 {
		return nil
	}

	tctx, cancel := context.WithTimeout(ctx, o.opts.ShutdownBudget())
	defer cancel()

	platform := newPlatform(o.startedAt)
	start := time.Now()

	results := make([]error, len(o.shutdownHooks))

	var wg sync.WaitGroup
	wg.Add(len(o.shutdownHooks))
	for i, hook := range o.shutdownHooks {
		go func(i int, hook ShutdownHook) {
			defer wg.Done()
			results[i] = o.runShutdownHook(tctx, platform, i, hook)
		}(i, hook)
	}
	wg.Wait()

	var errs []error
	for _, err := range results {
		if err != nil {
			errs = append(errs, err)
		}
	}

	o.logger.Info("shutdown phase completed",
		zap.Int("hooks", len(o.shutdownHooks)),
		zap.Int("failed", len(errs)),
		zap.Duration("duration", time.Since(start)),
	)

	return errs
}

func (o *Orchestrator) runInitHook(ctx context.Context, platform *Platform, index int, hook InitHook) (ok bool, err error) {
	scope := o.container.CreateScope()
	c := newContext(ctx, scope, o.properties, platform)
	defer func() {
		if cerr := c.Close(); cerr != nil {
			o.logger.Warn("failed to release init hook scope",
				zap.Int("hook", index), zap.Error(cerr))
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = pkgerrors.NewLifecycleError(fmt.Sprintf("init hook %d panicked: %v", index, r), nil)
		}
	}()

	return hook(c)
}

func (o *Orchestrator) runShutdownHook(ctx context.Context, platform *Platform, index int, hook ShutdownHook) (err error) {
	scope := o.container.CreateScope()
	c := newContext(ctx, scope, o.properties, platform)
	defer func() {
		if cerr := c.Close(); cerr != nil {
			o.logger.Warn("failed to release shutdown hook scope",
				zap.Int("hook", index), zap.Error(cerr))
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			err = pkgerrors.NewLifecycleError(fmt.Sprintf("shutdown hook %d panicked: %v", index, r), nil)
		}
	}()

	return hook(c)
}
