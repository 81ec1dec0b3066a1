package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocks struct {
	locked map[string]bool
	ttls   map[string]int64
}

func (f *fakeLocks) IsLocked(_ context.Context, name string) bool {
	return f.locked[name]
}

func (f *fakeLocks) LockTTL(_ context.Context, name string) int64 {
	if ttl, ok := f.ttls[name]; ok {
		return ttl
	}
	return -1
}

func doRequest(t *testing.T, handler http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestServer_Healthz(t *testing.T) {
	server := NewServer(&fakeLocks{}, nil)

	rec := doRequest(t, server.Router(), http.MethodGet, "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, true, decodeBody(t, rec)["ok"])
}

func TestServer_Readyz(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		server := NewServer(&fakeLocks{}, func(ctx context.Context) error { return nil })

		rec := doRequest(t, server.Router(), http.MethodGet, "/readyz")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decodeBody(t, rec)["ok"])
	})

	t.Run("no readiness check configured", func(t *testing.T) {
		server := NewServer(&fakeLocks{}, nil)

		rec := doRequest(t, server.Router(), http.MethodGet, "/readyz")

		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("backend unavailable", func(t *testing.T) {
		server := NewServer(&fakeLocks{}, func(ctx context.Context) error {
			return errors.New("connection refused")
		})

		rec := doRequest(t, server.Router(), http.MethodGet, "/readyz")

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "NOT_READY", body["error"])
		assert.Contains(t, body["message"], "connection refused")
	})
}

func TestServer_GetLock(t *testing.T) {
	t.Run("held lock", func(t *testing.T) {
		locks := &fakeLocks{
			locked: map[string]bool{"expire_requested_bookings": true},
			ttls:   map[string]int64{"expire_requested_bookings": 42},
		}
		server := NewServer(locks, nil)

		rec := doRequest(t, server.Router(), http.MethodGet, "/v1/locks/expire_requested_bookings")

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "expire_requested_bookings", body["name"])
		assert.Equal(t, true, body["locked"])
		assert.Equal(t, float64(42), body["ttlSeconds"])
	})

	t.Run("absent lock", func(t *testing.T) {
		server := NewServer(&fakeLocks{}, nil)

		rec := doRequest(t, server.Router(), http.MethodGet, "/v1/locks/unknown")

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, false, body["locked"])
		assert.Equal(t, float64(-1), body["ttlSeconds"])
	})
}

func TestServer_UnknownRoute(t *testing.T) {
	server := NewServer(&fakeLocks{}, nil)

	rec := doRequest(t, server.Router(), http.MethodGet, "/v1/bookings")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
