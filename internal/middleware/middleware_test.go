package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/metrics"
)

func withLogger(r *http.Request) *http.Request {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339Nano})
	return r.WithContext(logger.WithContext(r.Context()))
}

func TestLogging(t *testing.T) {
	var gotRequestID, gotBody string
	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRequestID = log.RequestIDFromContext(r.Context())
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotBody = body["token"]
	}))

	t.Run("given request id header should propagate it", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/session", strings.NewReader(`{"token":"secret"}`))
		req.Header.Set("X-Request-Id", "req-7")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, withLogger(req))

		assert.Equal(t, "req-7", gotRequestID)
		assert.Equal(t, "req-7", rec.Header().Get("X-Request-Id"))
		assert.Equal(t, "secret", gotBody, "handler should still read the original body")
	})

	t.Run("given no request id header should generate one", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/session", strings.NewReader(`{"token":"secret"}`))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, withLogger(req))

		assert.NotEmpty(t, gotRequestID)
	})
}

func TestRecoverPanic(t *testing.T) {
	for _, value := range []any{"boom", assert.AnError} {
		handler := RecoverPanic(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic(value)
		}))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, withLogger(httptest.NewRequest(http.MethodGet, "/cart", nil)))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		var body map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "failed", body["status"])
	}
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name          string
		authenticated bool
		expected      int
	}{
		{name: "given signed in visitor should pass", authenticated: true, expected: http.StatusNoContent},
		{name: "given anonymous visitor should be rejected", authenticated: false, expected: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Auth(func(context.Context) bool { return tt.authenticated })(
				http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusNoContent)
				}),
			)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, withLogger(httptest.NewRequest(http.MethodPost, "/checkout/submit", nil)))

			assert.Equal(t, tt.expected, rec.Code)
		})
	}
}

func TestMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	router := mux.NewRouter()
	router.Use(Metrics(m))
	router.HandleFunc("/cart/items/{productId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}).Methods(http.MethodDelete)

	for _, path := range []string{"/cart/items/1", "/cart/items/2"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodDelete, "/cart/items/{productId}", "202")))
}
