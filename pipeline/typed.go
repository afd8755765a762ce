package pipeline

import (
	"lambdahost/invocation"
	pkgerrors "lambdahost/pkg/errors"
	"lambdahost/pkg/features"
	"lambdahost/pkg/serializer"
)

// Typed adapts a strongly typed handler into a pipeline HandlerFunc. The
// event payload is deserialized into TIn through the invocation's serializer
// and the returned TOut is recorded as the response.
func Typed[TIn any, TOut any](fn func(*invocation.Context, TIn) (TOut, error)) HandlerFunc {
	return func(c *invocation.Context) error {
		in, err := decodeEvent[TIn](c)
		if err != nil {
			return err
		}

		out, err := fn(c, in)
		if err != nil {
			return err
		}

		if response, ok := features.Of[*invocation.ResponseFeature](c.Features()); ok {
			response.Set(out)
		}
		return nil
	}
}

// Consumer adapts a typed handler that produces no response
func Consumer[TIn any](fn func(*invocation.Context, TIn) error) HandlerFunc {
	return func(c *invocation.Context) error {
		in, err := decodeEvent[TIn](c)
		if err != nil {
			return err
		}
		return fn(c, in)
	}
}

// Raw adapts a handler that works directly on the wire payload. No
// deserialization or serialization happens for raw handlers.
func Raw(fn func(c *invocation.Context, payload []byte) ([]byte, error)) HandlerFunc {
	return func(c *invocation.Context) error {
		event, ok := features.Of[*invocation.EventFeature](c.Features())
		if !ok {
			return pkgerrors.NewInvocationError("no event feature available", nil)
		}

		out, err := fn(c, event.Raw)
		if err != nil {
			return err
		}

		if response, ok := features.Of[*invocation.ResponseFeature](c.Features()); ok {
			response.SetRaw(out)
		}
		return nil
	}
}

func decodeEvent[TIn any](c *invocation.Context) (TIn, error) {
	var in TIn

	event, ok := features.Of[*invocation.EventFeature](c.Features())
	if !ok {
		return in, pkgerrors.NewInvocationError("no event feature available", nil)
	}
	if len(event.Raw) == 0 {
		return in, nil
	}

	ser, ok := features.Of[serializer.Serializer](c.Features())
	if !ok {
		return in, pkgerrors.NewInvocationError("no serializer available", nil)
	}
	if err := ser.Deserialize(event.Raw, &in); err != nil {
		return in, pkgerrors.NewInvocationError("failed to deserialize event", err)
	}
	return in, nil
}
