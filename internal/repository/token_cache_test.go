package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/youfak/plaud-bridge/internal/config"
	"github.com/youfak/plaud-bridge/internal/service"
)

func newTestTokenCache() *MemoryTokenCache {
	return NewMemoryTokenCache(&config.Config{})
}

func TestMemoryTokenCacheSetGetDelete(t *testing.T) {
	cache := newTestTokenCache()
	defer cache.Stop()

	key := service.Credentials{ClientID: "client-a", SecretKey: "secret-a"}.CacheKey()

	_, ok := cache.Get(key)
	require.False(t, ok)

	token := service.CachedToken{Token: "tok-1", ExpiresAt: time.Now().Add(time.Hour)}
	cache.Set(key, token)

	got, ok := cache.Get(key)
	require.True(t, ok)
	require.Equal(t, token, got)

	cache.Delete(key)
	_, ok = cache.Get(key)
	require.False(t, ok)
}

func TestMemoryTokenCacheKeysAreDistinctPerIdentity(t *testing.T) {
	a := service.Credentials{ClientID: "client-a", SecretKey: "secret"}.CacheKey()
	b := service.Credentials{ClientID: "client-b", SecretKey: "secret"}.CacheKey()
	require.NotEqual(t, a, b)

	again := service.Credentials{ClientID: "client-a", SecretKey: "secret"}.CacheKey()
	require.Equal(t, a, again)
}

func TestMemoryTokenCachePruneExpired(t *testing.T) {
	cache := newTestTokenCache()
	defer cache.Stop()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return base }

	cache.Set("expired", service.CachedToken{Token: "old", ExpiresAt: base.Add(-time.Minute)})
	cache.Set("boundary", service.CachedToken{Token: "edge", ExpiresAt: base})
	cache.Set("fresh", service.CachedToken{Token: "new", ExpiresAt: base.Add(time.Hour)})

	cache.pruneExpired()

	_, ok := cache.Get("expired")
	require.False(t, ok)
	_, ok = cache.Get("boundary")
	require.False(t, ok)
	got, ok := cache.Get("fresh")
	require.True(t, ok)
	require.Equal(t, "new", got.Token)
}
