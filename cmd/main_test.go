package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-tolls/internal/config"
	"github.com/ukydev/fleet-tolls/internal/environment"
	"github.com/ukydev/fleet-tolls/internal/upstream"
)

func testConfig(devURL string) config.Config {
	return config.Config{
		Port:               "0",
		DevURL:             devURL,
		DefaultEnvironment: environment.Development,
		UpstreamTimeout:    time.Second,
		Retry:              upstream.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
		PageSize:           25,
		MaxPageSize:        500,
		OpenDataURL:        "http://127.0.0.1:1/opendata",
		RateLimitRequests:  100,
		RateLimitWindow:    time.Minute,
		CORSOrigins:        []string{"*"},
	}
}

func quietLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestBuildHandler_Health(t *testing.T) {
	handler, cleanup, err := buildHandler(context.Background(), testConfig("https://dev.example.com"), quietLogger())
	require.NoError(t, err)
	defer cleanup()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBuildHandler_ProxiesToDefaultEnvironment(t *testing.T) {
	var path, env string
	upstreamServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		env = r.Header.Get(environment.Header)
		w.Write([]byte(`[]`))
	}))
	defer upstreamServer.Close()

	handler, cleanup, err := buildHandler(context.Background(), testConfig(upstreamServer.URL+"/api/v1"), quietLogger())
	require.NoError(t, err)
	defer cleanup()

	req := httptest.NewRequest("GET", "/api/ezpass", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "/api/v1/ezpass", path)
	assert.Equal(t, "development", env)
}

func TestBuildHandler_Errors(t *testing.T) {
	t.Run("default environment without url", func(t *testing.T) {
		cfg := testConfig("")
		cfg.ProdURL = "https://prod.example.com"
		_, _, err := buildHandler(context.Background(), cfg, quietLogger())
		assert.Error(t, err)
	})

	t.Run("redis unreachable", func(t *testing.T) {
		cfg := testConfig("https://dev.example.com")
		cfg.RedisAddr = "127.0.0.1:1"
		_, cleanup, err := buildHandler(context.Background(), cfg, quietLogger())
		assert.Error(t, err)
		cleanup()
	})
}

func TestBuildHandler_MQTTUnavailableIsNotFatal(t *testing.T) {
	if testing.Short() {
		t.Skip("dials a closed port")
	}
	cfg := testConfig("https://dev.example.com")
	cfg.MQTTBroker = "tcp://127.0.0.1:1"
	handler, cleanup, err := buildHandler(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	defer cleanup()
	assert.NotNil(t, handler)
}
