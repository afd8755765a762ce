package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lambdahost/invocation"
	"lambdahost/pkg/common"
	"lambdahost/pkg/features"
)

func newMiddlewareContext(platform *invocation.PlatformFeature) *invocation.Context {
	fc := features.NewCollection()
	if platform != nil {
		features.Put(fc, platform)
	}
	return invocation.NewContext(context.Background(), nil, fc, common.NewProperties())
}

func TestRequestIDUsesPlatformRequestID(t *testing.T) {
	c := newMiddlewareContext(&invocation.PlatformFeature{
		LambdaContext: &lambdacontext.LambdaContext{AwsRequestID: "req-123"},
	})

	h := RequestID()(func(c *invocation.Context) error { return nil })
	require.NoError(t, h(c))
	assert.Equal(t, "req-123", c.Items()[ItemRequestID])
}

func TestRequestIDFallsBackToGeneratedID(t *testing.T) {
	c := newMiddlewareContext(nil)

	h := RequestID()(func(c *invocation.Context) error { return nil })
	require.NoError(t, h(c))

	id, ok := c.Items()[ItemRequestID].(string)
	require.True(t, ok)
	assert.NotEmpty(t, id)
}

func TestLoggingPassesErrorsThrough(t *testing.T) {
	boom := errors.New("boom")
	h := Logging(zap.NewNop())(func(c *invocation.Context) error { return boom })

	err := h(newMiddlewareContext(nil))
	assert.ErrorIs(t, err, boom)
}

func TestRecoveryConvertsPanicsToErrors(t *testing.T) {
	h := Recovery(zap.NewNop())(func(c *invocation.Context) error {
		panic("handler bug")
	})

	err := h(newMiddlewareContext(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler bug")
}

func TestRecoveryLeavesNormalErrorsAlone(t *testing.T) {
	boom := errors.New("plain failure")
	h := Recovery(zap.NewNop())(func(c *invocation.Context) error { return boom })

	err := h(newMiddlewareContext(nil))
	assert.Same(t, boom, err)
}
