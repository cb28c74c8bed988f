package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTransport struct {
	calls   int
	results []error // error per attempt; nil means success
}

func (f *fakeTransport) Query(ctx context.Context, operation string, params url.Values) (json.RawMessage, error) {
	var err error
	if f.calls < len(f.results) {
		err = f.results[f.calls]
	}
	f.calls++
	if err != nil {
		return nil, err
	}
	return json.RawMessage(`{}`), nil
}

func newTestCaller(t *fakeTransport, sleeps *[]time.Duration) *RetryingCaller {
	c := NewRetryingCaller(t, RetryPolicy{MaxAttempts: 3, Delay: 2 * time.Second}, zap.NewNop())
	c.sleep = func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	return c
}

func TestRetryingCaller_SucceedsFirstAttempt(t *testing.T) {
	ft := &fakeTransport{results: []error{nil}}
	var sleeps []time.Duration
	c := newTestCaller(ft, &sleeps)

	_, err := c.Call(context.Background(), "Ticker", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, ft.calls)
	assert.Empty(t, sleeps)
}

func TestRetryingCaller_TransientErrorRetriedThreeTimes(t *testing.T) {
	transient := errors.New("EService:Timeout")
	ft := &fakeTransport{results: []error{transient, transient, transient}}
	var sleeps []time.Duration
	c := newTestCaller(ft, &sleeps)

	_, err := c.Call(context.Background(), "AddOrder", nil)
	require.Error(t, err)
	assert.Equal(t, transient, err)
	assert.Equal(t, 3, ft.calls)
	// A delay between each pair of attempts, none after the last.
	require.Len(t, sleeps, 2)
	assert.Equal(t, 2*time.Second, sleeps[0])
	assert.Equal(t, 2*time.Second, sleeps[1])
}

func TestRetryingCaller_RecoversAfterTransientError(t *testing.T) {
	ft := &fakeTransport{results: []error{errors.New("EGeneral:Temporary lockout"), nil}}
	var sleeps []time.Duration
	c := newTestCaller(ft, &sleeps)

	_, err := c.Call(context.Background(), "Balance", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, ft.calls)
	assert.Len(t, sleeps, 1)
}

func TestRetryingCaller_NonRetryableFailsImmediately(t *testing.T) {
	cases := []string{
		"EAPI:Invalid key",
		"EAPI:Invalid nonce",
		"EGeneral:Invalid arguments",
		"EGeneral:Permission denied",
	}
	for _, msg := range cases {
		t.Run(msg, func(t *testing.T) {
			ft := &fakeTransport{results: []error{errors.New(msg)}}
			var sleeps []time.Duration
			c := newTestCaller(ft, &sleeps)

			_, err := c.Call(context.Background(), "AddOrder", nil)
			require.Error(t, err)
			assert.Equal(t, 1, ft.calls, "non-retryable error must be attempted exactly once")
			assert.Empty(t, sleeps)
		})
	}
}

func TestRetryingCaller_CancelledContextStopsRetries(t *testing.T) {
	transient := errors.New("connection reset")
	ft := &fakeTransport{results: []error{transient, transient, transient}}
	c := NewRetryingCaller(ft, RetryPolicy{MaxAttempts: 3, Delay: 2 * time.Second}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Call(ctx, "OHLC", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, ft.calls)
}
