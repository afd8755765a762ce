package hosting

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"lambdahost/infrastructure/config"
	"lambdahost/infrastructure/di"
	"lambdahost/invocation"
	"lambdahost/lifecycle"
	pkgerrors "lambdahost/pkg/errors"
)

// ErrStartAborted is returned by Start when an init hook reports false,
// signalling that startup should be abandoned without an error being raised
// by the hook itself.
var ErrStartAborted = errors.New("startup aborted by init hook")

// Service ties the lifecycle orchestrator, the invocation processor and the
// runtime driver into one start/stop unit.
type Service struct {
	opts         *config.Options
	logger       *zap.Logger
	orchestrator *lifecycle.Orchestrator
	container    *di.Container
	driver       Driver
	newProcessor func(stopping context.Context) *invocation.Processor

	mu       sync.Mutex
	started  bool
	cancel   context.CancelFunc
	loopDone chan struct{}
	loopErr  error

	closeOnce sync.Once
}

// Start runs the init phase and, when it succeeds, launches the runtime
// bootstrap loop in the background bound to an internal token linked to ctx.
// A failed or aborted init phase prevents the service from starting.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return pkgerrors.NewConfigurationError("service already started")
	}

	internal, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	ok, err := s.orchestrator.RunInit(internal)
	if err != nil {
		cancel()
		return err
	}
	if !ok {
		cancel()
		s.logger.Warn("init hook requested startup abort")
		return ErrStartAborted
	}

	// Processor satisfies lambda.Handler, so the raw payload reaches the
	// pipeline without the runtime deserializing it first.
	var handler lambda.Handler = s.newProcessor(internal)

	loopDone := make(chan struct{})
	s.loopDone = loopDone
	go func() {
		err := s.driver.Run(internal, handler)
		s.mu.Lock()
		s.loopErr = err
		s.mu.Unlock()
		if err != nil {
			// An unrecoverable bootstrap failure is fatal: request
			// application shutdown and surface the error in Stop.
			s.logger.Error("runtime bootstrap loop failed", zap.Error(err))
			cancel()
		}
		close(loopDone)
	}()

	s.started = true
	s.logger.Info("host started")
	return nil
}

// Stop cancels the internal token, awaits the bootstrap loop bounded by ctx,
// and always runs the shutdown phase. Loop and hook failures are combined
// into a single error; a cancellation error caused by Stop's own token
// cancellation is ignored, one raised by the loop on its own is not.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	loopDone := s.loopDone
	started := s.started
	s.started = false
	s.mu.Unlock()

	// A loop that already exited failed on its own; only errors produced
	// after this cancellation can be blamed on it.
	exitedEarly := false
	if loopDone != nil {
		select {
		case <-loopDone:
			exitedEarly = true
		default:
		}
	}
	if cancel != nil {
		cancel()
	}

	var loopErr error
	if started && loopDone != nil {
		select {
		case <-loopDone:
			s.mu.Lock()
			loopErr = s.loopErr
			s.mu.Unlock()
		case <-ctx.Done():
			s.logger.Warn("bootstrap loop did not exit before the stop deadline")
		}
	}

	hookErrs := s.orchestrator.RunShutdown(ctx)

	errs := hookErrs
	if loopErr != nil && !(errors.Is(loopErr, context.Canceled) && !exitedEarly) {
		errs = append(errs, loopErr)
	}
	if len(errs) > 0 {
		return pkgerrors.NewLifecycleError("shutdown completed with failures", pkgerrors.Combine(errs...))
	}

	s.logger.Info("host stopped")
	return nil
}

// Run starts the service and blocks until ctx is canceled, a termination
// signal arrives or the bootstrap loop exits, then stops the service within
// the configured shutdown window. A loop failure therefore triggers shutdown
// immediately and surfaces through the returned error.
func (s *Service) Run(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Start(sigCtx); err != nil {
		return err
	}

	s.mu.Lock()
	loopDone := s.loopDone
	s.mu.Unlock()

	select {
	case <-sigCtx.Done():
	case <-loopDone:
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownDuration)
	defer cancel()
	return s.Stop(stopCtx)
}

// Close releases the internal cancellation source and the container's
// singleton services. Safe to call multiple times.
func (s *Service) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		cancel := s.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		err = s.container.Close()
	})
	return err
}
