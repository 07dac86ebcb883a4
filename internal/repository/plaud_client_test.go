package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/imroc/req/v3"
	"github.com/stretchr/testify/require"
	"github.com/youfak/plaud-bridge/internal/service"
	"github.com/youfak/plaud-bridge/internal/util/plauderror"
)

// stubTokenProvider hands out sequential tokens and counts invalidations.
type stubTokenProvider struct {
	mu          sync.Mutex
	calls       int
	invalidated int
	err         error
}

func (s *stubTokenProvider) GetToken(ctx context.Context, creds service.Credentials) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.calls++
	return fmt.Sprintf("tok-%d", s.calls), nil
}

func (s *stubTokenProvider) Invalidate(creds service.Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated++
}

func newTestClient(baseURL string) (*PlaudAPIClient, *stubTokenProvider, *[]time.Duration) {
	tokens := &stubTokenProvider{}
	var delays []time.Duration
	c := &PlaudAPIClient{
		baseURL: baseURL,
		creds:   testCreds,
		tokens:  tokens,
		client:  req.C().SetTimeout(5 * time.Second),
		sleep: func(ctx context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	}
	return c, tokens, &delays
}

func TestDoSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/devices/dev-1", r.URL.Path)
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"id":"dev-1","status":"active"}`)
	}))
	defer srv.Close()

	c, _, _ := newTestClient(srv.URL)

	data, err := c.Do(context.Background(), service.DeviceGet{DeviceID: "dev-1"})
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"dev-1","status":"active"}`, string(data))
}

func TestDoRateLimitBackoffDelays(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c, _, delays := newTestClient(srv.URL)

	data, err := c.Do(context.Background(), service.DeviceGet{DeviceID: "dev-1"})
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(data))
	require.Equal(t, 4, attempts)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, *delays)
}

func TestDoRateLimitBudgetExhausted(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"code":"RATE_LIMIT_EXCEEDED"}`)
	}))
	defer srv.Close()

	c, _, delays := newTestClient(srv.URL)

	_, err := c.Do(context.Background(), service.DeviceGet{DeviceID: "dev-1"})
	var reqErr *plauderror.RequestError
	require.ErrorAs(t, err, &reqErr)
	require.Equal(t, http.StatusTooManyRequests, reqErr.StatusCode)
	require.Contains(t, reqErr.Message, "Rate limit exceeded")

	// Initial request plus exactly three retries.
	require.Equal(t, 4, attempts)
	require.Len(t, *delays, 3)
}

func TestDoUnauthorizedRefreshReplay(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		require.Equal(t, "Bearer tok-2", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c, tokens, _ := newTestClient(srv.URL)

	data, err := c.Do(context.Background(), service.DeviceGet{DeviceID: "dev-1"})
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(data))
	require.Equal(t, 2, attempts)
	require.Equal(t, 1, tokens.invalidated)
}

func TestDoUnauthorizedTwiceIsFatal(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"code":"TOKEN_EXPIRED"}`)
	}))
	defer srv.Close()

	c, tokens, _ := newTestClient(srv.URL)

	_, err := c.Do(context.Background(), service.DeviceGet{DeviceID: "dev-1"})
	var authErr *plauderror.AuthenticationError
	require.ErrorAs(t, err, &authErr)

	// One refresh replay, never more.
	require.Equal(t, 2, attempts)
	require.Equal(t, 1, tokens.invalidated)
}

func TestDoClassifiesUpstreamErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"code":"DEVICE_NOT_FOUND"}`)
	}))
	defer srv.Close()

	c, _, _ := newTestClient(srv.URL)

	_, err := c.Do(context.Background(), service.DeviceGet{DeviceID: "dev-missing"})
	var reqErr *plauderror.RequestError
	require.ErrorAs(t, err, &reqErr)
	require.Equal(t, http.StatusNotFound, reqErr.StatusCode)
	require.Equal(t, "The specified device was not found.", reqErr.Message)
}

func TestDoTransportErrorPropagatesUnchanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c, _, _ := newTestClient(srv.URL)

	_, err := c.Do(context.Background(), service.DeviceGet{DeviceID: "dev-1"})
	require.Error(t, err)

	var reqErr *plauderror.RequestError
	require.False(t, errors.As(err, &reqErr))
	var authErr *plauderror.AuthenticationError
	require.False(t, errors.As(err, &authErr))
}

func TestDoTokenFailureShortCircuits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called when no token is available")
	}))
	defer srv.Close()

	c, tokens, _ := newTestClient(srv.URL)
	tokens.err = &plauderror.AuthenticationError{Message: "Authentication failed."}

	_, err := c.Do(context.Background(), service.DeviceGet{DeviceID: "dev-1"})
	var authErr *plauderror.AuthenticationError
	require.ErrorAs(t, err, &authErr)
}

func TestDoForwardsDecodedPartList(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c, _, _ := newTestClient(srv.URL)

	op := service.FileCompleteUpload{
		OwnerID:  "owner-1",
		FileID:   "file-1",
		UploadID: "upload-1",
		PartList: json.RawMessage(`[{"PartNumber":1,"ETag":"abc"}]`),
		FileType: "audio/mpeg",
		FileMD5:  "d41d8cd98f00b204e9800998ecf8427e",
		Name:     "memo.mp3",
	}
	_, err := c.Do(context.Background(), op)
	require.NoError(t, err)

	// part_list must arrive as a JSON array, not a re-encoded string.
	parts, ok := captured["part_list"].([]any)
	require.True(t, ok, "part_list should be an array, got %T", captured["part_list"])
	require.Len(t, parts, 1)
	first, ok := parts[0].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "abc", first["ETag"])
}
