package invocation

import (
	"context"
	"time"

	pkgerrors "lambdahost/pkg/errors"
)

// NewCancellationSource derives the per-invocation cancellation context from
// the platform's remaining-time budget minus a safety buffer, linked with the
// process-wide stopping context so that either source cancels it.
//
// remaining must be strictly greater than buffer; remaining equal to buffer
// is rejected as a configuration error.
func NewCancellationSource(parent, stopping context.Context, remaining, buffer time.Duration) (context.Context, context.CancelFunc, error) {
	if remaining <= 0 {
		return nil, nil, pkgerrors.NewConfigurationError(
			"remaining time must be positive, got %v", remaining)
	}
	if buffer < 0 {
		return nil, nil, pkgerrors.NewConfigurationError(
			"cancellation buffer must not be negative, got %v", buffer)
	}
	if buffer >= remaining {
		return nil, nil, pkgerrors.NewConfigurationError(
			"cancellation buffer (%v) must be less than remaining time (%v)", buffer, remaining)
	}

	ctx, cancel := context.WithTimeout(parent, remaining-buffer)
	if stopping == nil {
		return ctx, cancel, nil
	}

	stop := context.AfterFunc(stopping, cancel)
	return ctx, func() {
		stop()
		cancel()
	}, nil
}
