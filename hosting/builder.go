package hosting

import (
	"context"
	"time"

	"go.uber.org/zap"

	"lambdahost/infrastructure/config"
	"lambdahost/infrastructure/di"
	"lambdahost/invocation"
	"lambdahost/lifecycle"
	"lambdahost/pipeline"
	"lambdahost/pkg/common"
	pkgerrors "lambdahost/pkg/errors"
	"lambdahost/pkg/features"
	"lambdahost/pkg/serializer"
)

// Builder assembles a hosted Lambda application: services, middleware,
// handler, lifecycle hooks and collaborators. Registration state is explicit
// and frozen by Build; the builder must not be mutated afterwards.
type Builder struct {
	opts          *config.Options
	logger        *zap.Logger
	container     *di.Container
	pipeline      *pipeline.Builder
	initHooks     []lifecycle.InitHook
	shutdownHooks []lifecycle.ShutdownHook
	providers     []features.Provider
	serializer    serializer.Serializer
	driver        Driver
	startedAt     time.Time
	err           error
}

// New creates a builder. A nil opts uses the documented defaults.
func New(opts *config.Options) *Builder {
	if opts == nil {
		opts = config.DefaultOptions()
	}
	return &Builder{
		opts:       opts,
		container:  di.NewContainer(),
		pipeline:   pipeline.NewBuilder(),
		serializer: serializer.NewJSON(),
		driver:     NewLambdaDriver(),
		startedAt:  time.Now(),
	}
}

// Use appends a middleware; the first-registered middleware is outermost
func (b *Builder) Use(m pipeline.Middleware) *Builder {
	b.record(b.pipeline.Use(m))
	return b
}

// Handle registers the terminal handler of the pipeline
func (b *Builder) Handle(h pipeline.HandlerFunc) *Builder {
	b.record(b.pipeline.SetHandler(h))
	return b
}

// OnInit registers an init hook
func (b *Builder) OnInit(h lifecycle.InitHook) *Builder {
	b.initHooks = append(b.initHooks, h)
	return b
}

// OnShutdown registers a shutdown hook
func (b *Builder) OnShutdown(h lifecycle.ShutdownHook) *Builder {
	b.shutdownHooks = append(b.shutdownHooks, h)
	return b
}

// ConfigureServices exposes the container for service registration
func (b *Builder) ConfigureServices(configure func(*di.Container)) *Builder {
	configure(b.container)
	return b
}

// WithFeatureProvider appends a feature provider; providers are queried in
// registration order
func (b *Builder) WithFeatureProvider(p features.Provider) *Builder {
	b.providers = append(b.providers, p)
	return b
}

// WithSerializer replaces the default JSON serializer
func (b *Builder) WithSerializer(s serializer.Serializer) *Builder {
	b.serializer = s
	return b
}

// WithDriver replaces the runtime bootstrap loop
func (b *Builder) WithDriver(d Driver) *Builder {
	b.driver = d
	return b
}

// WithLogger replaces the environment-derived default logger
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// Build validates the configuration, composes the pipeline and wires the
// hosted service. Registration errors collected along the way surface here.
func (b *Builder) Build() (*Service, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.opts.Validate(); err != nil {
		return nil, pkgerrors.NewConfigurationError("invalid options: %v", err)
	}

	logger := b.logger
	if logger == nil {
		var err error
		if b.opts.IsProduction() {
			logger, err = zap.NewProduction()
		} else {
			logger, err = zap.NewDevelopment()
		}
		if err != nil {
			return nil, err
		}
	}

	composed, err := b.pipeline.Build()
	if err != nil {
		return nil, err
	}

	properties := common.NewProperties()
	di.RegisterInstance(b.container, properties)
	di.RegisterInstance(b.container, logger)
	di.RegisterInstance(b.container, b.serializer)

	orchestrator := lifecycle.NewOrchestrator(
		b.container,
		properties,
		b.opts,
		logger,
		b.startedAt,
		b.initHooks,
		b.shutdownHooks,
	)

	container := b.container
	ser := b.serializer
	providers := b.providers
	buffer := b.opts.InvocationCancellationBuffer

	return &Service{
		opts:         b.opts,
		logger:       logger,
		orchestrator: orchestrator,
		container:    container,
		driver:       b.driver,
		newProcessor: func(stopping context.Context) *invocation.Processor {
			return invocation.NewProcessor(
				composed, container, ser, providers, properties,
				buffer, stopping, logger,
			)
		},
	}, nil
}

func (b *Builder) record(err error) {
	if b.err == nil && err != nil {
		b.err = err
	}
}
