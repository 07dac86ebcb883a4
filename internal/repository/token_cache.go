package repository

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/youfak/plaud-bridge/internal/config"
	"github.com/youfak/plaud-bridge/internal/pkg/logger"
	"github.com/youfak/plaud-bridge/internal/service"
	"go.uber.org/zap"
)

// MemoryTokenCache is the process-wide token cache. Entries live until they
// are deleted, overwritten, or pruned by the sweep job; nothing survives a
// restart. Last-writer-wins on Set is fine since token exchange is idempotent
// per identity.
type MemoryTokenCache struct {
	mu      sync.RWMutex
	entries map[string]service.CachedToken
	now     func() time.Time
	cron    *cron.Cron
}

func NewMemoryTokenCache(cfg *config.Config) *MemoryTokenCache {
	c := &MemoryTokenCache{
		entries: make(map[string]service.CachedToken),
		now:     time.Now,
	}
	if spec := cfg.Plaud.TokenCacheSweep; spec != "" {
		c.cron = cron.New()
		if _, err := c.cron.AddFunc(spec, c.pruneExpired); err != nil {
			logger.With(zap.String("component", "token_cache")).
				Warn("invalid token cache sweep spec, sweeper disabled",
					zap.String("spec", spec), zap.Error(err))
			c.cron = nil
		} else {
			c.cron.Start()
		}
	}
	return c
}

func (c *MemoryTokenCache) Get(key string) (service.CachedToken, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	token, ok := c.entries[key]
	return token, ok
}

func (c *MemoryTokenCache) Set(key string, token service.CachedToken) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = token
}

func (c *MemoryTokenCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Stop halts the sweep job.
func (c *MemoryTokenCache) Stop() {
	if c.cron != nil {
		c.cron.Stop()
	}
}

// pruneExpired drops entries whose expiry has passed. Growth is bounded by
// the handful of credential pairs one process realistically sees, so this is
// housekeeping rather than capacity management.
func (c *MemoryTokenCache) pruneExpired() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, token := range c.entries {
		if !token.ExpiresAt.After(now) {
			delete(c.entries, key)
		}
	}
}

// ProvideTokenCache exposes the memory cache as the service-layer interface.
func ProvideTokenCache(c *MemoryTokenCache) service.TokenCache {
	return c
}
