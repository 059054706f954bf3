package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingObserver) ObserveRequest(_ string, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func testConfig(client *http.Client, obs Observer) HTTPClientConfig {
	return HTTPClientConfig{
		Client:    client,
		UserAgent: "wildfire-analysis-test",
		Observer:  obs,
		Backoff: BackoffConfig{
			MaxRetries:      2,
			InitialInterval: time.Millisecond,
			MaxInterval:     2 * time.Millisecond,
		},
	}
}

func getter(url string) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, url, nil)
	}
}

func TestResilienceRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "wildfire-analysis-test", r.Header.Get("User-Agent"))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	resp, err := doRequestWithResilience(context.Background(), "test", testConfig(srv.Client(), obs), newCircuit("t1"), getter(srv.URL))
	require.NoError(t, err)
	resp.Body.Close()
	require.EqualValues(t, 3, calls.Load())
	require.Equal(t, []string{"server_error", "server_error", "ok"}, obs.outcomes)
}

func TestResilienceDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := doRequestWithResilience(context.Background(), "test", testConfig(srv.Client(), nil), newCircuit("t2"), getter(srv.URL))
	require.ErrorIs(t, err, errClientError)
	require.EqualValues(t, 1, calls.Load())
}

func TestResilienceGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := doRequestWithResilience(context.Background(), "test", testConfig(srv.Client(), nil), newCircuit("t3"), getter(srv.URL))
	require.ErrorIs(t, err, errRateLimited)
	require.EqualValues(t, 3, calls.Load())
}

func TestResilienceRejectsBadConfig(t *testing.T) {
	_, err := doRequestWithResilience(context.Background(), "test", HTTPClientConfig{}, newCircuit("t4"), getter("http://unused"))
	require.ErrorIs(t, err, errNoHTTPClient)

	_, err = doRequestWithResilience(context.Background(), "test", HTTPClientConfig{Client: http.DefaultClient}, newCircuit("t5"), getter("http://unused"))
	require.ErrorIs(t, err, errInvalidConfig)
}

func TestResilienceHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := doRequestWithResilience(ctx, "test", testConfig(http.DefaultClient, nil), newCircuit("t6"), getter("http://unused"))
	require.ErrorIs(t, err, context.Canceled)
}
