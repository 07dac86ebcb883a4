package repository

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/imroc/req/v3"
	"github.com/youfak/plaud-bridge/internal/config"
	"github.com/youfak/plaud-bridge/internal/pkg/logger"
	"github.com/youfak/plaud-bridge/internal/service"
	"github.com/youfak/plaud-bridge/internal/util/plauderror"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	tokenEndpoint          = "/api/oauth/api-token"
	defaultTokenTTLSeconds = 3600
)

// PlaudTokenProvider exchanges credential pairs for API tokens and caches
// them until they approach expiry. Concurrent requests for the same identity
// share one exchange through singleflight.
type PlaudTokenProvider struct {
	baseURL string
	cache   service.TokenCache
	client  *req.Client
	sf      singleflight.Group
	now     func() time.Time
}

func NewPlaudTokenProvider(cfg *config.Config, cache service.TokenCache) *PlaudTokenProvider {
	return &PlaudTokenProvider{
		baseURL: cfg.Plaud.BaseURL,
		cache:   cache,
		client:  req.C().SetTimeout(cfg.Plaud.Timeout()),
		now:     time.Now,
	}
}

func (p *PlaudTokenProvider) GetToken(ctx context.Context, creds service.Credentials) (string, error) {
	key := creds.CacheKey()
	if cached, ok := p.cache.Get(key); ok && p.fresh(cached) {
		return cached.Token, nil
	}

	v, err, _ := p.sf.Do(key, func() (any, error) {
		// A concurrent flight may have refreshed the entry already.
		if cached, ok := p.cache.Get(key); ok && p.fresh(cached) {
			return cached.Token, nil
		}
		return p.exchange(ctx, creds, key)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (p *PlaudTokenProvider) Invalidate(creds service.Credentials) {
	p.cache.Delete(creds.CacheKey())
}

// fresh reports whether the token is still usable with the refresh buffer
// applied, so it cannot expire mid-request.
func (p *PlaudTokenProvider) fresh(token service.CachedToken) bool {
	return p.now().Add(service.TokenRefreshBuffer).Before(token.ExpiresAt)
}

func (p *PlaudTokenProvider) exchange(ctx context.Context, creds service.Credentials, key string) (string, error) {
	authString := base64.StdEncoding.EncodeToString([]byte(creds.ClientID + ":" + creds.SecretKey))

	var tokenResp struct {
		APIToken  string `json:"api_token"`
		ExpiresIn int64  `json:"expires_in"`
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+authString).
		SetHeader("Content-Type", "application/json").
		SetSuccessResult(&tokenResp).
		Post(p.baseURL + tokenEndpoint)

	if err != nil {
		// Never leave an entry behind that might be invalid.
		p.cache.Delete(key)
		return "", fmt.Errorf("token exchange request failed: %w", err)
	}

	if !resp.IsSuccessState() {
		p.cache.Delete(key)
		logger.FromContext(ctx).Warn("plaud token exchange rejected",
			zap.String("component", "plaud.token"),
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", plauderror.TruncateBody(resp.Bytes(), 512)))
		if resp.StatusCode == http.StatusUnauthorized {
			return "", &plauderror.AuthenticationError{
				Message: "Authentication failed. Please verify your Plaud API Client ID and Secret Key.",
			}
		}
		return "", &plauderror.RequestError{
			StatusCode: resp.StatusCode,
			Message:    plauderror.Classify(resp.StatusCode, resp.Bytes()),
		}
	}

	if tokenResp.APIToken == "" {
		p.cache.Delete(key)
		return "", &plauderror.AuthenticationError{
			Message: "No API token returned from Plaud. Please verify your credentials.",
		}
	}

	expiresIn := tokenResp.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultTokenTTLSeconds
	}
	p.cache.Set(key, service.CachedToken{
		Token:     tokenResp.APIToken,
		ExpiresAt: p.now().Add(time.Duration(expiresIn) * time.Second),
	})
	return tokenResp.APIToken, nil
}

// ProvideTokenProvider exposes the provider as the service-layer interface.
func ProvideTokenProvider(p *PlaudTokenProvider) service.TokenProvider {
	return p
}
