// Command example-echo hosts a minimal typed handler: it upper-cases the
// incoming message and reports the request id assigned by the middleware
// pipeline.
package main

import (
	"context"
	"log"
	"strings"

	"go.uber.org/zap"

	"lambdahost/hosting"
	"lambdahost/infrastructure/config"
	"lambdahost/invocation"
	"lambdahost/lifecycle"
	"lambdahost/middleware"
	"lambdahost/pipeline"
)

type echoRequest struct {
	Message string `json:"message"`
}

type echoResponse struct {
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

func main() {
	opts, err := config.LoadOptions()
	if err != nil {
		log.Fatalf("failed to load options: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	handler := pipeline.Typed(func(c *invocation.Context, req echoRequest) (echoResponse, error) {
		requestID, _ := c.Items()[middleware.ItemRequestID].(string)
		return echoResponse{
			Message:   strings.ToUpper(req.Message),
			RequestID: requestID,
		}, nil
	})

	svc, err := hosting.New(opts).
		WithLogger(logger).
		OnInit(func(c *lifecycle.Context) (bool, error) {
			logger.Info("warming up",
				zap.String("function", c.Platform().FunctionName),
				zap.Duration("since_start", c.Platform().SinceStart),
			)
			return true, nil
		}).
		OnShutdown(func(c *lifecycle.Context) error {
			logger.Info("draining before environment shutdown")
			return nil
		}).
		Use(middleware.RequestID()).
		Use(middleware.Logging(logger)).
		Handle(handler).
		Build()
	if err != nil {
		log.Fatalf("failed to build host: %v", err)
	}
	defer svc.Close()

	if err := svc.Run(context.Background()); err != nil {
		logger.Fatal("host exited with error", zap.Error(err))
	}
}
