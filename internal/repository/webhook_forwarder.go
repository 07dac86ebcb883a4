package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/youfak/plaud-bridge/internal/config"
	"github.com/youfak/plaud-bridge/internal/pkg/httpclient"
	"github.com/youfak/plaud-bridge/internal/pkg/logger"
	"github.com/youfak/plaud-bridge/internal/service"
	"go.uber.org/zap"
)

// HTTPWebhookForwarder posts accepted webhook payloads to the configured
// downstream sinks.
type HTTPWebhookForwarder struct {
	urls   []string
	client *http.Client
}

func NewHTTPWebhookForwarder(cfg *config.Config) (*HTTPWebhookForwarder, error) {
	client, err := httpclient.GetClient(httpclient.Options{
		Timeout: 30 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("build forward client: %w", err)
	}
	return &HTTPWebhookForwarder{
		urls:   cfg.Webhook.ForwardURLs,
		client: client,
	}, nil
}

// Forward delivers the payload to every sink, collecting per-sink failures.
// With no sinks configured the payload is accepted and dropped; the trigger
// endpoint still reports the event as matched.
func (f *HTTPWebhookForwarder) Forward(ctx context.Context, payload []byte) error {
	if len(f.urls) == 0 {
		logger.FromContext(ctx).Debug("no webhook forward sinks configured",
			zap.String("component", "webhook.forward"))
		return nil
	}

	var errs []error
	for _, sink := range f.urls {
		if err := f.post(ctx, sink, payload); err != nil {
			logger.FromContext(ctx).Warn("webhook forward failed",
				zap.String("component", "webhook.forward"),
				zap.String("sink", sink),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("sink %s: %w", sink, err))
		}
	}
	return errors.Join(errs...)
}

func (f *HTTPWebhookForwarder) post(ctx context.Context, sink string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sink, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sink returned %d", resp.StatusCode)
	}
	return nil
}

// ProvideWebhookForwarder exposes the forwarder as the service-layer interface.
func ProvideWebhookForwarder(f *HTTPWebhookForwarder) service.WebhookForwarder {
	return f
}
