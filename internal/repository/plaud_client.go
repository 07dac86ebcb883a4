package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/imroc/req/v3"
	"github.com/youfak/plaud-bridge/internal/config"
	"github.com/youfak/plaud-bridge/internal/pkg/logger"
	"github.com/youfak/plaud-bridge/internal/service"
	"github.com/youfak/plaud-bridge/internal/util/plauderror"
	"go.uber.org/zap"
)

// maxRateLimitRetries bounds 429 retries per logical request; the single
// auth-refresh replay is budgeted separately so a persistently invalid
// credential cannot trigger repeated token exchanges.
const maxRateLimitRetries = 3

// PlaudAPIClient executes Plaud API operations with token acquisition,
// rate-limit backoff and a one-shot token refresh on 401.
type PlaudAPIClient struct {
	baseURL string
	creds   service.Credentials
	tokens  service.TokenProvider
	client  *req.Client
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewPlaudAPIClient(cfg *config.Config, tokens service.TokenProvider) *PlaudAPIClient {
	return &PlaudAPIClient{
		baseURL: cfg.Plaud.BaseURL,
		creds: service.Credentials{
			ClientID:  cfg.Plaud.ClientID,
			SecretKey: cfg.Plaud.SecretKey,
		},
		tokens: tokens,
		client: req.C().SetTimeout(cfg.Plaud.Timeout()),
		sleep:  sleepContext,
	}
}

// Do runs one logical request. Transport failures without a status code
// propagate unchanged; everything else surfaces as a classified error.
func (c *PlaudAPIClient) Do(ctx context.Context, op service.Operation) (json.RawMessage, error) {
	body, err := op.Body()
	if err != nil {
		return nil, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.Reset()

	rateRetries := 0
	authRetried := false
	for {
		token, err := c.tokens.GetToken(ctx, c.creds)
		if err != nil {
			return nil, err
		}

		resp, err := c.send(ctx, op, token, body)
		if err != nil {
			return nil, err
		}
		if resp.IsSuccessState() {
			return json.RawMessage(resp.Bytes()), nil
		}

		status := resp.StatusCode
		respBody := resp.Bytes()
		switch {
		case status == http.StatusTooManyRequests && rateRetries < maxRateLimitRetries:
			delay := bo.NextBackOff()
			logger.FromContext(ctx).Warn("plaud api rate limited, backing off",
				zap.String("component", "plaud.client"),
				zap.String("endpoint", op.Endpoint()),
				zap.Duration("delay", delay),
				zap.Int("retry", rateRetries+1))
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			rateRetries++
		case status == http.StatusUnauthorized && !authRetried:
			// One silent cache-invalidating replay with a fresh token.
			authRetried = true
			c.tokens.Invalidate(c.creds)
		case status == http.StatusUnauthorized:
			return nil, &plauderror.AuthenticationError{
				Message: plauderror.Classify(status, respBody),
			}
		default:
			return nil, &plauderror.RequestError{
				StatusCode: status,
				Message:    plauderror.Classify(status, respBody),
			}
		}
	}
}

func (c *PlaudAPIClient) send(ctx context.Context, op service.Operation, token string, body map[string]any) (*req.Response, error) {
	r := c.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token).
		SetHeader("Content-Type", "application/json")
	if len(body) > 0 {
		r.SetBody(body)
	}
	return r.Send(op.Method(), c.baseURL+op.Endpoint())
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ProvidePlaudClient exposes the client as the service-layer interface.
func ProvidePlaudClient(c *PlaudAPIClient) service.PlaudClient {
	return c
}
