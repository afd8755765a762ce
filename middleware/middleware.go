// Package middleware provides stock pipeline middleware for hosted Lambda
// applications.
package middleware

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lambdahost/invocation"
	"lambdahost/pipeline"
	"lambdahost/pkg/features"
)

// ItemRequestID is the Items key under which RequestID stores the id.
const ItemRequestID = "request_id"

// RequestID stamps each invocation with the platform request id, falling
// back to a generated uuid when the platform metadata is unavailable.
func RequestID() pipeline.Middleware {
	return func(next pipeline.HandlerFunc) pipeline.HandlerFunc {
		return func(c *invocation.Context) error {
			id := ""
			if platform, ok := features.Of[*invocation.PlatformFeature](c.Features()); ok {
				id = platform.LambdaContext.AwsRequestID
			}
			if id == "" {
				id = uuid.NewString()
			}
			c.Items()[ItemRequestID] = id
			return next(c)
		}
	}
}

// Logging logs entry and exit of every invocation with its duration and
// outcome.
func Logging(logger *zap.Logger) pipeline.Middleware {
	return func(next pipeline.HandlerFunc) pipeline.HandlerFunc {
		return func(c *invocation.Context) error {
			start := time.Now()
			requestID, _ := c.Items()[ItemRequestID].(string)

			logger.Info("invocation started",
				zap.String("request_id", requestID),
			)

			err := next(c)

			if err != nil {
				logger.Error("invocation failed",
					zap.String("request_id", requestID),
					zap.Duration("duration", time.Since(start)),
					zap.Error(err),
				)
			} else {
				logger.Info("invocation completed",
					zap.String("request_id", requestID),
					zap.Duration("duration", time.Since(start)),
				)
			}

			return err
		}
	}
}

// Recovery converts handler panics into errors. The framework itself never
// swallows handler failures; this middleware is opt-in for applications that
// prefer an error report over a crashed execution environment.
func Recovery(logger *zap.Logger) pipeline.Middleware {
	return func(next pipeline.HandlerFunc) pipeline.HandlerFunc {
		return func(c *invocation.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("handler panicked", zap.Any("panic", r))
					err = fmt.Errorf("handler panicked: %v", r)
				}
			}()
			return next(c)
		}
	}
}
