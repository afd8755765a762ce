package invocation

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"

	"lambdahost/infrastructure/di"
	"lambdahost/pkg/common"
	pkgerrors "lambdahost/pkg/errors"
	"lambdahost/pkg/features"
	"lambdahost/pkg/serializer"
)

// HandlerFunc is the composed invocation pipeline produced by the pipeline
// builder.
type HandlerFunc func(*Context) error

// Processor drives a single invocation: it derives the cancellation budget,
// creates the per-invocation DI scope and feature collection, runs the
// composed pipeline and serializes the response.
type Processor struct {
	handler    HandlerFunc
	container  *di.Container
	serializer serializer.Serializer
	providers  []features.Provider
	properties *common.Properties
	buffer     time.Duration
	stopping   context.Context
	logger     *zap.Logger
}

// NewProcessor creates a processor around a composed pipeline
func NewProcessor(
	handler HandlerFunc,
	container *di.Container,
	ser serializer.Serializer,
	providers []features.Provider,
	properties *common.Properties,
	cancellationBuffer time.Duration,
	stopping context.Context,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		handler:    handler,
		container:  container,
		serializer: ser,
		providers:  providers,
		properties: properties,
		buffer:     cancellationBuffer,
		stopping:   stopping,
		logger:     logger,
	}
}

// Invoke handles one raw platform invocation. Exactly one DI scope and one
// cancellation source are created and released per call, on every exit path.
// Handler and middleware errors propagate to the platform loop unmodified.
func (p *Processor) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	ictx, cancel, err := p.invocationContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	fc := features.NewCollection(p.providers...)

	event := &EventFeature{Raw: payload}
	features.Put(fc, event)

	response := &ResponseFeature{}
	features.Put(fc, response)

	features.Put[serializer.Serializer](fc, p.serializer)

	if lc, ok := lambdacontext.FromContext(ctx); ok {
		deadline, _ := ctx.Deadline()
		features.Put(fc, &PlatformFeature{LambdaContext: lc, Deadline: deadline})
	}

	scope := p.container.CreateScope()
	c := NewContext(ictx, scope, fc, p.properties)
	defer func() {
		if cerr := c.Close(); cerr != nil {
			p.logger.Warn("failed to release invocation scope", zap.Error(cerr))
		}
	}()

	start := time.Now()
	if err := p.handler(c); err != nil {
		p.logger.Debug("invocation pipeline failed",
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}

	p.logger.Debug("invocation pipeline completed",
		zap.Duration("duration", time.Since(start)),
	)

	if raw, ok := response.RawValue(); ok {
		return raw, nil
	}

	value, ok := response.Value()
	if !ok {
		return nil, nil
	}

	out, err := p.serializer.Serialize(value)
	if err != nil {
		return nil, pkgerrors.NewInvocationError("failed to serialize response", err)
	}
	return out, nil
}

// invocationContext builds the budgeted cancellation context. Invocations
// without a platform deadline (local runs, tests) fall back to a context
// canceled only by the stopping token.
func (p *Processor) invocationContext(ctx context.Context) (context.Context, context.CancelFunc, error) {
	deadline, ok := ctx.Deadline()
	if ok {
		return NewCancellationSource(ctx, p.stopping, time.Until(deadline), p.buffer)
	}

	ictx, cancel := context.WithCancel(ctx)
	if p.stopping == nil {
		return ictx, cancel, nil
	}
	stop := context.AfterFunc(p.stopping, cancel)
	return ictx, func() {
		stop()
		cancel()
	}, nil
}
