package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebAPI_Routes(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "lakespend_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	api := NewWebAPI(logger, Config{Addr: ":0"}, func(r chi.Router) {
		r.Handle("/metrics", MetricsHandler(reg))
		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/echo", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(r.URL.Query().Get("v")))
			})
			r.Get("/panic", func(http.ResponseWriter, *http.Request) {
				panic("boom")
			})
		})
	})
	testServer := httptest.NewServer(api.Handler())
	defer testServer.Close()

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		check          func(t *testing.T, body []byte)
	}{
		{
			name:           "Health",
			path:           "/health",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var got map[string]string
				require.NoError(t, json.Unmarshal(body, &got))
				assert.Equal(t, "ok", got["status"])
			},
		},
		{
			name:           "MountedRoute",
			path:           "/api/v1/echo?v=hello",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				assert.Equal(t, "hello", string(body))
			},
		},
		{
			name:           "Metrics",
			path:           "/metrics",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), "lakespend_test_total 1")
			},
		},
		{
			name:           "PanicRecovered",
			path:           "/api/v1/panic",
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "UnknownRoute",
			path:           "/api/v1/missing",
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(testServer.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}
}

func TestNewWebAPI_DefaultShutdownTimeout(t *testing.T) {
	api := NewWebAPI(zerolog.Nop(), Config{Addr: ":0"}, nil)
	assert.Equal(t, defaultShutdownTimeout, api.config.ShutdownTimeout)

	api = NewWebAPI(zerolog.Nop(), Config{Addr: ":0", ShutdownTimeout: time.Second}, nil)
	assert.Equal(t, time.Second, api.config.ShutdownTimeout)
}
