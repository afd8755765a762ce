package invocation

import (
	"bytes"
	"io"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
)

// EventFeature exposes the raw invocation payload. Typed handlers decode it
// through the serializer; raw handlers read the bytes directly.
type EventFeature struct {
	Raw []byte
}

// Reader returns a fresh reader over the raw payload
func (f *EventFeature) Reader() io.Reader {
	return bytes.NewReader(f.Raw)
}

// ResponseFeature collects the value to serialize as the invocation response.
// Raw bytes set through SetRaw bypass the serializer. When nothing is set the
// invocation produces an empty response.
type ResponseFeature struct {
	value  interface{}
	raw    []byte
	set    bool
	rawSet bool
}

// Set records the response value
func (f *ResponseFeature) Set(v interface{}) {
	f.value = v
	f.set = true
}

// SetRaw records an already-serialized response
func (f *ResponseFeature) SetRaw(data []byte) {
	f.raw = data
	f.rawSet = true
}

// Value returns the recorded response value, if any
func (f *ResponseFeature) Value() (interface{}, bool) {
	return f.value, f.set
}

// RawValue returns the recorded raw response, if any
func (f *ResponseFeature) RawValue() ([]byte, bool) {
	return f.raw, f.rawSet
}

// PlatformFeature exposes the host platform's per-invocation metadata.
type PlatformFeature struct {
	// LambdaContext carries the request id, invoked function ARN and
	// client context reported by the runtime
	LambdaContext *lambdacontext.LambdaContext

	// Deadline is the moment the platform will forcibly terminate the
	// invocation
	Deadline time.Time
}

// RemainingTime reports the time left before the platform deadline
func (f *PlatformFeature) RemainingTime() time.Duration {
	return time.Until(f.Deadline)
}
