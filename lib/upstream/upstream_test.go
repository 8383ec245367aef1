package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"steamharvest-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		status int
		err    error
		want   Kind
	}{
		{status: 429, want: KindTransient},
		{status: 500, want: KindTransient},
		{status: 503, want: KindTransient},
		{status: 404, want: KindPermanent},
		{status: 400, want: KindPermanent},
		{status: 0, err: errors.New("connection reset"), want: KindTransient},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%d_%v", c.status, c.err), func(t *testing.T) {
			require.Equal(t, c.want, Classify(c.status, c.err))
		})
	}
}

func newTestClient(baseURL string, retries int) *Client {
	return NewClient(Options{
		BaseURL:      baseURL,
		MaxRetries:   retries,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: time.Millisecond * 5,
		Timeout:      time.Second * 5,
	})
}

func TestRetriesTransientThenSucceeds(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:upstream")
	defer cleanup()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"value": 42}`)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 3)

	var out struct {
		Value int `json:"value"`
	}
	err := client.GetJSON(context.Background(), "/", nil, &out)
	require.NoError(t, err)
	require.Equal(t, 42, out.Value)
	require.EqualValues(t, 3, hits.Load())
}

func TestPermanentFailureIsNotRetried(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 3)

	var out map[string]any
	err := client.GetJSON(context.Background(), "/", nil, &out)
	require.True(t, IsPermanent(err))
	require.False(t, IsTransient(err))
	require.EqualValues(t, 1, hits.Load())

	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	require.Equal(t, http.StatusNotFound, ferr.Status)
}

func TestTransientExhaustedSurfacesTransient(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 2)

	var out map[string]any
	err := client.GetJSON(context.Background(), "/", nil, &out)
	require.True(t, IsTransient(err))
	// initial attempt + 2 retries
	require.EqualValues(t, 3, hits.Load())
}

func TestMalformedPayloadIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>definitely not json</html>")
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 3)

	var out map[string]any
	err := client.GetJSON(context.Background(), "/", nil, &out)
	require.True(t, IsPermanent(err))
}

func TestLimiterEnforcesMinimumInterval(t *testing.T) {
	limiter := NewLimiter(time.Millisecond * 20)

	start := time.Now()
	for i := 0; i < 3; i++ {
		err := limiter.Wait(context.Background())
		require.NoError(t, err)
	}
	require.GreaterOrEqual(t, time.Since(start), time.Millisecond*40)
}

func TestLimiterRespectsCancellation(t *testing.T) {
	limiter := NewLimiter(time.Second * 10)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*10)
	defer cancel()
	err := limiter.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNilLimiterNeverBlocks(t *testing.T) {
	var limiter *Limiter
	require.NoError(t, limiter.Wait(context.Background()))
}
