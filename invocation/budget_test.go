package invocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "lambdahost/pkg/errors"
)

func TestNewCancellationSourceRejectsNonPositiveRemaining(t *testing.T) {
	_, _, err := NewCancellationSource(context.Background(), nil, 0, 0)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConfigurationError(err))

	_, _, err = NewCancellationSource(context.Background(), nil, -time.Second, 0)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConfigurationError(err))
}

func TestNewCancellationSourceRejectsBufferEqualToRemaining(t *testing.T) {
	// The boundary is strict: remaining == buffer is a configuration error.
	_, _, err := NewCancellationSource(context.Background(), nil, 3*time.Second, 3*time.Second)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConfigurationError(err))
}

func TestNewCancellationSourceRejectsBufferAboveRemaining(t *testing.T) {
	_, _, err := NewCancellationSource(context.Background(), nil, time.Second, 2*time.Second)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConfigurationError(err))
}

func TestNewCancellationSourceFiresAfterRemainingMinusBuffer(t *testing.T) {
	buffer := 50 * time.Millisecond
	ctx, cancel, err := NewCancellationSource(context.Background(), nil, buffer+20*time.Millisecond, buffer)
	require.NoError(t, err)
	defer cancel()

	select {
	case <-ctx.Done():
		t.Fatal("token fired before the budget elapsed")
	case <-time.After(5 * time.Millisecond):
	}

	select {
	case <-ctx.Done():
	case <-time.After(200 * time.Millisecond):
		t.Fatal("token did not fire after the budget elapsed")
	}
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
}

func TestNewCancellationSourceLinksStoppingContext(t *testing.T) {
	stopping, stop := context.WithCancel(context.Background())
	ctx, cancel, err := NewCancellationSource(context.Background(), stopping, time.Minute, time.Second)
	require.NoError(t, err)
	defer cancel()

	select {
	case <-ctx.Done():
		t.Fatal("token fired before either source")
	default:
	}

	stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("stopping signal did not propagate")
	}
}
