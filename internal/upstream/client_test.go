package upstream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-tolls/internal/environment"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	resolver, err := environment.NewResolver(environment.Development, map[environment.Name]string{
		environment.Development: server.URL + "/api",
		environment.Production:  server.URL + "/prod-api",
	})
	require.NoError(t, err)

	logger := log.New()
	logger.SetOutput(io.Discard)
	return New(Options{
		Resolver: resolver,
		Retry:    RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
		Logger:   logger,
	})
}

func TestClient_InjectsHeaders(t *testing.T) {
	var got *http.Request
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Write([]byte(`[]`))
	}))

	call := Call{Environment: environment.Production, Token: "tok-123", RequestID: "req-1"}
	_, err := client.Do(context.Background(), call, http.MethodGet, "/tolls", url.Values{"plate": {"ABC123"}}, nil)
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/prod-api/tolls", got.URL.Path)
	assert.Equal(t, "ABC123", got.URL.Query().Get("plate"))
	assert.Equal(t, "Bearer tok-123", got.Header.Get("Authorization"))
	assert.Equal(t, "production", got.Header.Get(environment.Header))
	assert.Equal(t, "req-1", got.Header.Get("X-Request-ID"))
}

func TestClient_NoAuthorizationWithoutToken(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{}`))
	}))
	_, err := client.Do(context.Background(), Call{Environment: environment.Development}, http.MethodGet, "/status", nil, nil)
	assert.NoError(t, err)
}

func TestClient_RateLimited(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"Too many requests"}`))
	}))

	_, err := client.Do(context.Background(), Call{Environment: environment.Development, Token: "t"}, http.MethodGet, "/tolls", nil, nil)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, KindRateLimited, apiErr.Kind)
	assert.Equal(t, 30*time.Second, apiErr.RetryAfter)
	assert.Equal(t, "Too many requests", apiErr.Message)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "429 must not be retried")
}

func TestClient_DoesNotRetryAuthFailures(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var calls int32
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(status)
			}))

			_, err := client.Do(context.Background(), Call{Environment: environment.Development}, http.MethodGet, "/tolls", nil, nil)
			apiErr, ok := AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, status, apiErr.Status)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
		})
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[{"id":"1"}]`))
	}))

	resp, err := client.Do(context.Background(), Call{Environment: environment.Development}, http.MethodGet, "/tolls", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"}]`, string(resp.Body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := client.Do(context.Background(), Call{Environment: environment.Development}, http.MethodGet, "/tolls", nil, nil)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, KindServer, apiErr.Kind)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_DoesNotRetryPost(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	err := client.SendJSON(context.Background(), Call{Environment: environment.Development}, http.MethodPost, "/companies", map[string]string{"name": "Acme"}, nil)
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	resolver, err := environment.NewResolver(environment.Development, map[environment.Name]string{environment.Development: base})
	require.NoError(t, err)
	client := New(Options{Resolver: resolver, Retry: RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond}})

	_, err = client.Do(context.Background(), Call{Environment: environment.Development}, http.MethodGet, "/tolls", nil, nil)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, KindNetwork, apiErr.Kind)
}

func TestClient_SharesConcurrentGets(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		w.Write([]byte(`[]`))
	}))

	call := Call{Environment: environment.Development, Token: "shared"}
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Do(context.Background(), call, http.MethodGet, "/tolls", nil, nil)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_CancelledCallerDoesNotFailSharedGet(t *testing.T) {
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		w.Write([]byte(`[]`))
	}))
	call := Call{Environment: environment.Development, Token: "shared"}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := client.Do(ctxA, call, http.MethodGet, "/tolls", nil, nil)
		errA <- err
	}()
	<-started

	errB := make(chan error, 1)
	go func() {
		_, err := client.Do(context.Background(), call, http.MethodGet, "/tolls", nil, nil)
		errB <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(release)
	select {
	case err := <-errB:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiting caller did not return")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_MalformedBodyIsServerError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unexpected": true}`))
	}))

	_, err := GetList[struct{}](context.Background(), client, Call{Environment: environment.Development}, "/tolls", nil)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, KindServer, apiErr.Kind)
	assert.Equal(t, ServiceRydora, apiErr.Service)

	var out []int
	err = client.GetJSON(context.Background(), Call{Environment: environment.Development}, "/tolls/1", nil, &out)
	apiErr, ok = AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, KindServer, apiErr.Kind)
}

func TestClient_SendJSON(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.JSONEq(t, `{"name":"Acme","note":null}`, string(body))
		w.Write([]byte(`{"id":"7"}`))
	}))

	in := struct {
		Name string  `json:"name"`
		Note *string `json:"note"`
	}{Name: "Acme"}
	var out struct {
		ID string `json:"id"`
	}
	err := client.SendJSON(context.Background(), Call{Environment: environment.Development}, http.MethodPut, "/companies/7", in, &out)
	require.NoError(t, err)
	assert.Equal(t, "7", out.ID)
}

func TestDecodeList(t *testing.T) {
	type row struct {
		ID string `json:"id"`
	}
	tests := []struct {
		name string
		body string
		want int
		err  bool
	}{
		{"bare array", `[{"id":"1"},{"id":"2"}]`, 2, false},
		{"data envelope", `{"data":[{"id":"1"}],"total":1}`, 1, false},
		{"items envelope", `{"items":[]}`, 0, false},
		{"null data", `{"data":null}`, 0, false},
		{"empty body", ``, 0, false},
		{"object without list", `{"id":"1"}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := DecodeList[row]([]byte(tt.body))
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, rows)
			assert.Len(t, rows, tt.want)
		})
	}
}
