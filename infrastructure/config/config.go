package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
)

// Default timeout budgets for the hosting layer.
//
// ShutdownDuration mirrors the window Lambda grants an execution environment
// between SIGTERM and SIGKILL; the buffer leaves room to report hook results
// before the process is killed.
const (
	DefaultInitTimeout                  = 5 * time.Second
	DefaultInvocationCancellationBuffer = 3 * time.Second
	DefaultShutdownDuration             = 500 * time.Millisecond
	DefaultShutdownDurationBuffer       = 50 * time.Millisecond
)

var validate = validator.New()

// Options holds all hosting configuration
type Options struct {
	// Environment selects logger construction (development/production)
	Environment string `validate:"required"`

	// LogLevel is the minimum level emitted by the host logger
	LogLevel string

	// InitTimeout bounds the concurrent execution of all init hooks
	InitTimeout time.Duration `validate:"gt=0"`

	// InvocationCancellationBuffer is subtracted from the platform's
	// remaining-time budget when deriving the per-invocation token
	InvocationCancellationBuffer time.Duration `validate:"gte=0"`

	// ShutdownDuration is the expected SIGTERM to SIGKILL window
	ShutdownDuration time.Duration `validate:"gt=0"`

	// ShutdownDurationBuffer is subtracted from ShutdownDuration when
	// deriving the shutdown-phase token
	ShutdownDurationBuffer time.Duration `validate:"gte=0"`
}

// DefaultOptions returns options populated with the documented defaults
func DefaultOptions() *Options {
	return &Options{
		Environment:                  "development",
		LogLevel:                     "info",
		InitTimeout:                  DefaultInitTimeout,
		InvocationCancellationBuffer: DefaultInvocationCancellationBuffer,
		ShutdownDuration:             DefaultShutdownDuration,
		ShutdownDurationBuffer:       DefaultShutdownDurationBuffer,
	}
}

// LoadOptions loads options from environment variables on top of the defaults
func LoadOptions() (*Options, error) {
	opts := &Options{
		Environment:                  getEnv("ENVIRONMENT", "development"),
		LogLevel:                     getEnv("LOG_LEVEL", "info"),
		InitTimeout:                  getEnvDuration("HOST_INIT_TIMEOUT", DefaultInitTimeout),
		InvocationCancellationBuffer: getEnvDuration("HOST_INVOCATION_CANCELLATION_BUFFER", DefaultInvocationCancellationBuffer),
		ShutdownDuration:             getEnvDuration("HOST_SHUTDOWN_DURATION", DefaultShutdownDuration),
		ShutdownDurationBuffer:       getEnvDuration("HOST_SHUTDOWN_DURATION_BUFFER", DefaultShutdownDurationBuffer),
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return opts, nil
}

// Validate checks that the options form a usable budget
func (o *Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		if fields, ok := err.(validator.ValidationErrors); ok && len(fields) > 0 {
			f := fields[0]
			return fmt.Errorf("invalid option %s: failed %q constraint", f.Field(), f.Tag())
		}
		return err
	}

	if o.ShutdownDurationBuffer >= o.ShutdownDuration {
		return fmt.Errorf("ShutdownDurationBuffer (%v) must be less than ShutdownDuration (%v)",
			o.ShutdownDurationBuffer, o.ShutdownDuration)
	}

	return nil
}

// ShutdownBudget returns the usable shutdown-phase duration
func (o *Options) ShutdownBudget() time.Duration {
	return o.ShutdownDuration - o.ShutdownDurationBuffer
}

// IsProduction checks if running in production mode
func (o *Options) IsProduction() bool {
	return o.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
