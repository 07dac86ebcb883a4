package repository

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/imroc/req/v3"
	"github.com/stretchr/testify/require"
	"github.com/youfak/plaud-bridge/internal/service"
	"github.com/youfak/plaud-bridge/internal/util/plauderror"
)

var testCreds = service.Credentials{ClientID: "client-id", SecretKey: "secret-key"}

func newTestTokenProvider(baseURL string, now time.Time) *PlaudTokenProvider {
	return &PlaudTokenProvider{
		baseURL: baseURL,
		cache:   newTestTokenCache(),
		client:  req.C().SetTimeout(5 * time.Second),
		now:     func() time.Time { return now },
	}
}

func TestGetTokenExchangesAndCaches(t *testing.T) {
	var exchanges atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges.Add(1)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, tokenEndpoint, r.URL.Path)

		wantAuth := "Bearer " + base64.StdEncoding.EncodeToString([]byte("client-id:secret-key"))
		require.Equal(t, wantAuth, r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"api_token":"tok-123","expires_in":3600}`)
	}))
	defer srv.Close()

	p := newTestTokenProvider(srv.URL, time.Now())

	token, err := p.GetToken(context.Background(), testCreds)
	require.NoError(t, err)
	require.Equal(t, "tok-123", token)

	// Second call within the freshness window must not hit the upstream.
	token, err = p.GetToken(context.Background(), testCreds)
	require.NoError(t, err)
	require.Equal(t, "tok-123", token)
	require.EqualValues(t, 1, exchanges.Load())
}

func TestGetTokenConcurrentCallsShareOneExchange(t *testing.T) {
	var exchanges atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges.Add(1)
		// Slow enough that every caller arrives while the exchange is in
		// flight.
		time.Sleep(100 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"api_token":"tok-shared","expires_in":3600}`)
	}))
	defer srv.Close()

	p := newTestTokenProvider(srv.URL, time.Now())

	const callers = 16
	tokens := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = p.GetToken(context.Background(), testCreds)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, "tok-shared", tokens[i])
	}
	require.EqualValues(t, 1, exchanges.Load())
}

func TestGetTokenRefreshesInsideBufferWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"api_token":"tok-new","expires_in":3600}`)
	}))
	defer srv.Close()

	now := time.Now()
	p := newTestTokenProvider(srv.URL, now)

	// Expires in 4 minutes, inside the 5 minute refresh buffer.
	p.cache.Set(testCreds.CacheKey(), service.CachedToken{
		Token:     "tok-stale",
		ExpiresAt: now.Add(4 * time.Minute),
	})

	token, err := p.GetToken(context.Background(), testCreds)
	require.NoError(t, err)
	require.Equal(t, "tok-new", token)
}

func TestGetTokenServesCachedOutsideBufferWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("upstream must not be called for a fresh cached token")
	}))
	defer srv.Close()

	now := time.Now()
	p := newTestTokenProvider(srv.URL, now)
	p.cache.Set(testCreds.CacheKey(), service.CachedToken{
		Token:     "tok-cached",
		ExpiresAt: now.Add(10 * time.Minute),
	})

	token, err := p.GetToken(context.Background(), testCreds)
	require.NoError(t, err)
	require.Equal(t, "tok-cached", token)
}

func TestGetTokenDefaultsExpiry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"api_token":"tok-123"}`)
	}))
	defer srv.Close()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := newTestTokenProvider(srv.URL, now)

	_, err := p.GetToken(context.Background(), testCreds)
	require.NoError(t, err)

	cached, ok := p.cache.Get(testCreds.CacheKey())
	require.True(t, ok)
	require.Equal(t, now.Add(time.Hour), cached.ExpiresAt)
}

func TestGetTokenMissingTokenIsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	p := newTestTokenProvider(srv.URL, time.Now())

	_, err := p.GetToken(context.Background(), testCreds)
	var authErr *plauderror.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	require.Contains(t, authErr.Message, "No API token returned")

	_, ok := p.cache.Get(testCreds.CacheKey())
	require.False(t, ok)
}

func TestGetTokenUnauthorizedIsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"code":"INVALID_CREDENTIALS"}`)
	}))
	defer srv.Close()

	p := newTestTokenProvider(srv.URL, time.Now())

	_, err := p.GetToken(context.Background(), testCreds)
	var authErr *plauderror.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	require.Contains(t, authErr.Message, "Client ID and Secret Key")
}

func TestGetTokenServerErrorDeletesCacheEntry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	now := time.Now()
	p := newTestTokenProvider(srv.URL, now)
	p.cache.Set(testCreds.CacheKey(), service.CachedToken{
		Token:     "tok-stale",
		ExpiresAt: now.Add(time.Minute),
	})

	_, err := p.GetToken(context.Background(), testCreds)
	var reqErr *plauderror.RequestError
	require.ErrorAs(t, err, &reqErr)
	require.Equal(t, http.StatusInternalServerError, reqErr.StatusCode)

	_, ok := p.cache.Get(testCreds.CacheKey())
	require.False(t, ok)
}
