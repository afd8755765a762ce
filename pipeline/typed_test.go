package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lambdahost/invocation"
	"lambdahost/pkg/common"
	"lambdahost/pkg/features"
	"lambdahost/pkg/serializer"
)

func newTypedContext(payload []byte) *invocation.Context {
	fc := features.NewCollection()
	features.Put(fc, &invocation.EventFeature{Raw: payload})
	features.Put(fc, &invocation.ResponseFeature{})
	features.Put[serializer.Serializer](fc, serializer.NewJSON())
	return invocation.NewContext(context.Background(), nil, fc, common.NewProperties())
}

func TestTypedDecodesEventAndRecordsResponse(t *testing.T) {
	h := Typed(func(c *invocation.Context, in string) (string, error) {
		return strings.ToUpper(in), nil
	})

	c := newTypedContext([]byte(`"hello"`))
	require.NoError(t, h(c))

	response, ok := features.Of[*invocation.ResponseFeature](c.Features())
	require.True(t, ok)
	value, ok := response.Value()
	require.True(t, ok)
	assert.Equal(t, "HELLO", value)
}

func TestTypedPropagatesHandlerError(t *testing.T) {
	boom := errors.New("boom")
	h := Typed(func(c *invocation.Context, in string) (string, error) {
		return "", boom
	})

	err := h(newTypedContext([]byte(`"hello"`)))
	assert.ErrorIs(t, err, boom)
}

func TestTypedEmptyPayloadSkipsDeserialization(t *testing.T) {
	h := Typed(func(c *invocation.Context, in struct{ Name string }) (string, error) {
		return in.Name, nil
	})

	c := newTypedContext(nil)
	require.NoError(t, h(c))

	response, _ := features.Of[*invocation.ResponseFeature](c.Features())
	value, ok := response.Value()
	require.True(t, ok)
	assert.Equal(t, "", value)
}

func TestTypedInvalidPayloadFails(t *testing.T) {
	h := Typed(func(c *invocation.Context, in int) (int, error) {
		return in, nil
	})

	err := h(newTypedContext([]byte(`"not a number"`)))
	assert.Error(t, err)
}

func TestRawBypassesSerializer(t *testing.T) {
	h := Raw(func(c *invocation.Context, payload []byte) ([]byte, error) {
		return append([]byte("echo:"), payload...), nil
	})

	// No serializer feature seeded: raw handlers must not need one.
	fc := features.NewCollection()
	features.Put(fc, &invocation.EventFeature{Raw: []byte("ping")})
	features.Put(fc, &invocation.ResponseFeature{})
	c := invocation.NewContext(context.Background(), nil, fc, common.NewProperties())

	require.NoError(t, h(c))

	response, _ := features.Of[*invocation.ResponseFeature](c.Features())
	raw, ok := response.RawValue()
	require.True(t, ok)
	assert.Equal(t, []byte("echo:ping"), raw)
}

func TestConsumerRecordsNoResponse(t *testing.T) {
	var got string
	h := Consumer(func(c *invocation.Context, in string) error {
		got = in
		return nil
	})

	c := newTypedContext([]byte(`"payload"`))
	require.NoError(t, h(c))
	assert.Equal(t, "payload", got)

	response, _ := features.Of[*invocation.ResponseFeature](c.Features())
	_, ok := response.Value()
	assert.False(t, ok)
}
