package toplogger

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"toplogger-backend/lib/telemetry"
	"toplogger-backend/lib/toplogger/respcache"

	"github.com/stretchr/testify/require"
)

func TestCachedSend(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:toplogger")
	defer cleanup()

	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		fmt.Fprintf(w, `{"hit": %d}`, n)
	}))
	defer server.Close()

	c := NewClient(Options{BaseURL: server.URL, Cache: respcache.NewMemoryStore()})

	res, err := c.Gyms().Execute(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"hit": float64(1)}, res)
	require.EqualValues(t, 1, hits.Load())

	// identical request served from cache
	res, err = c.Gyms().Execute(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"hit": float64(1)}, res)
	require.EqualValues(t, 1, hits.Load())

	// different signature misses
	_, err = c.Gym(1).Include("holds").Execute(context.Background(), true)
	require.NoError(t, err)
	require.EqualValues(t, 2, hits.Load())
}

func TestForceRefreshBypassesCacheReadButWrites(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:toplogger")
	defer cleanup()

	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		fmt.Fprintf(w, `{"hit": %d}`, n)
	}))
	defer server.Close()

	c := NewClient(Options{BaseURL: server.URL, Cache: respcache.NewMemoryStore()})
	ctx := context.Background()

	_, err := c.Gyms().Execute(ctx, true)
	require.NoError(t, err)
	require.EqualValues(t, 1, hits.Load())

	// force refresh hits the network even though the entry is fresh
	res, err := c.Gyms().Execute(ctx, false)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"hit": float64(2)}, res)
	require.EqualValues(t, 2, hits.Load())

	// and the cache entry was overwritten, not deleted
	res, err = c.Gyms().Execute(ctx, true)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"hit": float64(2)}, res)
	require.EqualValues(t, 2, hits.Load())
}

func TestCacheTTLExpiry(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:toplogger")
	defer cleanup()

	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	store := respcache.NewMemoryStore()
	// negative ttl writes already-expired entries
	c := NewClient(Options{BaseURL: server.URL, Cache: store, CacheTTL: -time.Hour})
	ctx := context.Background()

	_, err := c.Gyms().Execute(ctx, true)
	require.NoError(t, err)
	_, err = c.Gyms().Execute(ctx, true)
	require.NoError(t, err)
	require.EqualValues(t, 2, hits.Load())
}

func TestRemoteError(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:toplogger")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal failure", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(Options{BaseURL: server.URL})
	_, err := c.Gyms().Execute(context.Background(), true)
	require.Error(t, err)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	require.Equal(t, http.StatusInternalServerError, remoteErr.StatusCode)
	require.Contains(t, remoteErr.Body, "internal failure")

	// error responses are never cached
	store := respcache.NewMemoryStore()
	c = NewClient(Options{BaseURL: server.URL, Cache: store})
	_, err = c.Gyms().Execute(context.Background(), true)
	require.Error(t, err)
	require.Equal(t, 0, store.Len())
}

func TestJSONParamsReachTheWire(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:toplogger")
	defer cleanup()

	var gotParams string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotParams = r.URL.Query().Get("json_params")
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	c := NewClient(Options{BaseURL: server.URL})
	_, err := c.UserAscends(42).Include("climb").Execute(context.Background(), false)
	require.NoError(t, err)
	require.JSONEq(t, `{"includes":["climb"],"filters":{"user":{"uid":42}}}`, gotParams)
}
