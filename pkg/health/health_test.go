package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probeBody struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
	Checks map[string]struct {
		Healthy bool   `json:"healthy"`
		Error   string `json:"error"`
	} `json:"checks"`
}

func probe(t *testing.T, fn http.HandlerFunc) (int, probeBody) {
	t.Helper()
	w := httptest.NewRecorder()
	fn(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body probeBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func ok(context.Context) error { return nil }

func TestLiveEndpoint_AllPassing(t *testing.T) {
	h := New()
	h.Add(Liveness, "goroutines", time.Second, GoroutineCountCheck(1_000_000))
	h.RunOnce(context.Background())

	code, body := probe(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	assert.True(t, body.Checks["goroutines"].Healthy)
}

func TestCheck_FailsAfterThreshold(t *testing.T) {
	h := New()
	h.Add(Liveness, "db", time.Second, func(context.Context) error {
		return errors.New("connection refused")
	})
	ctx := context.Background()

	h.RunOnce(ctx)
	code, _ := probe(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code, "one failure is tolerated")

	h.RunOnce(ctx)
	code, body := probe(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.False(t, body.Checks["db"].Healthy)
	assert.Contains(t, body.Checks["db"].Error, "connection refused")
}

func TestCheck_RecoversOnSuccess(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)

	h := New()
	h.Add(Readiness, "redis", time.Second, func(context.Context) error {
		if failing.Load() {
			return errors.New("down")
		}
		return nil
	})
	h.SetReady(true)
	ctx := context.Background()

	h.RunOnce(ctx)
	h.RunOnce(ctx)
	assert.False(t, h.IsReady())

	failing.Store(false)
	h.RunOnce(ctx)
	assert.True(t, h.IsReady())
}

func TestReadyEndpoint_NotMarkedReady(t *testing.T) {
	h := New()
	h.Add(Readiness, "postgres", time.Second, ok)

	code, body := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "service is not ready", body.Reason)

	h.SetReady(true)
	code, body = probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, body.Reason)
}

func TestReadyEndpoint_IgnoresLivenessChecks(t *testing.T) {
	h := New()
	h.Add(Liveness, "broken", time.Second, func(context.Context) error { return errors.New("x") })
	h.Add(Readiness, "postgres", time.Second, ok)
	h.SetReady(true)
	h.RunOnce(context.Background())
	h.RunOnce(context.Background())

	code, body := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.NotContains(t, body.Checks, "broken")
}

func TestCheck_Timeout(t *testing.T) {
	h := New()
	h.Add(Readiness, "slow", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	h.RunOnce(context.Background())
	h.RunOnce(context.Background())

	res := h.Results(Readiness)
	require.Len(t, res, 1)
	assert.False(t, res[0].Healthy)
	assert.Contains(t, res[0].Err, "deadline exceeded")
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestPingCheck(t *testing.T) {
	require.NoError(t, PingCheck(pingerFunc(ok))(context.Background()))

	err := PingCheck(pingerFunc(func(context.Context) error { return errors.New("refused") }))(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

func TestStartStop(t *testing.T) {
	var calls atomic.Int32
	h := New()
	h.Add(Liveness, "count", time.Second, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	h.Start(context.Background(), 5*time.Millisecond)
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
	h.Stop()
	h.Stop()

	n := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, calls.Load())
}
