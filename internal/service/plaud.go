package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// TokenRefreshBuffer is subtracted from a token's expiry when deciding
// freshness, so a token is never used that could expire mid-request.
const TokenRefreshBuffer = 5 * time.Minute

// Credentials is one Plaud API credential pair.
type Credentials struct {
	ClientID  string
	SecretKey string
}

// CacheKey derives the cache identity for this credential pair. Distinct
// pairs never collide and the key is stable within a process.
func (c Credentials) CacheKey() string {
	sum := sha256.Sum256([]byte(c.ClientID + ":" + c.SecretKey))
	return hex.EncodeToString(sum[:])
}

// CachedToken is a bearer token with its absolute expiry.
type CachedToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenCache maps credential identities to cached bearer tokens. Entries are
// process-lifetime only; there is no eviction beyond Delete and the sweeper.
type TokenCache interface {
	Get(key string) (CachedToken, bool)
	Set(key string, token CachedToken)
	Delete(key string)
}

// TokenProvider returns a usable bearer token for a credential pair, serving
// from cache while fresh and exchanging credentials otherwise.
type TokenProvider interface {
	GetToken(ctx context.Context, creds Credentials) (string, error)
	// Invalidate drops any cached token for the pair, forcing a fresh
	// exchange on the next GetToken.
	Invalidate(creds Credentials)
}

// PlaudClient executes one Plaud API operation end to end, inclusive of token
// acquisition, rate-limit backoff and the single auth-refresh replay.
type PlaudClient interface {
	Do(ctx context.Context, op Operation) (json.RawMessage, error)
}
