package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/youfak/plaud-bridge/internal/config"
	"github.com/youfak/plaud-bridge/internal/pkg/logger"
	"go.uber.org/zap"
)

// WildcardEvent matches every webhook event.
const WildcardEvent = "*"

// WebhookForwarder delivers an accepted webhook payload downstream.
type WebhookForwarder interface {
	Forward(ctx context.Context, payload []byte) error
}

// WebhookResult describes what happened to one inbound delivery.
type WebhookResult struct {
	Triggered bool
	Duplicate bool
	EventType string
	Payload   []byte
}

// WebhookService filters inbound Plaud webhook deliveries by event type,
// augments matching payloads with receipt metadata and hands them to the
// forwarder. Registration with Plaud itself is manual: the platform offers no
// programmatic (un)registration API, so there is nothing to set up or tear
// down here.
type WebhookService struct {
	cfg       config.WebhookConfig
	forwarder WebhookForwarder
	dedup     *ristretto.Cache
	now       func() time.Time
}

func NewWebhookService(cfg *config.Config, forwarder WebhookForwarder) (*WebhookService, error) {
	s := &WebhookService{
		cfg:       cfg.Webhook,
		forwarder: forwarder,
		now:       time.Now,
	}
	if cfg.Webhook.Dedup.Enabled {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: int64(cfg.Webhook.Dedup.MaxEntries) * 10,
			MaxCost:     int64(cfg.Webhook.Dedup.MaxEntries),
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("create webhook dedup cache: %w", err)
		}
		s.dedup = cache
	}
	return s, nil
}

// Handle processes one raw delivery. signature is the value of the signature
// header when present; its presence is recorded but the signature is not
// cryptographically verified (Plaud does not document a signing scheme).
func (s *WebhookService) Handle(ctx context.Context, body []byte, signature, deliveryID string) (WebhookResult, error) {
	eventType := resolveEventType(body)
	result := WebhookResult{EventType: eventType}

	if s.cfg.Event != WildcardEvent && eventType != s.cfg.Event {
		logger.FromContext(ctx).Debug("webhook event filtered",
			zap.String("component", "webhook"),
			zap.String("event_type", eventType),
			zap.String("filter", s.cfg.Event))
		return result, nil
	}

	if s.isDuplicate(deliveryID) {
		result.Duplicate = true
		logger.FromContext(ctx).Info("webhook delivery deduplicated",
			zap.String("component", "webhook"),
			zap.String("delivery_id", deliveryID))
		return result, nil
	}

	payload, err := s.augment(body, eventType, signature)
	if err != nil {
		return result, err
	}

	if err := s.forwarder.Forward(ctx, payload); err != nil {
		return result, fmt.Errorf("forward webhook event: %w", err)
	}

	result.Triggered = true
	result.Payload = payload
	return result, nil
}

func resolveEventType(body []byte) string {
	if v := gjson.GetBytes(body, "event_type"); v.Exists() && v.String() != "" {
		return v.String()
	}
	if v := gjson.GetBytes(body, "event"); v.Exists() && v.String() != "" {
		return v.String()
	}
	return "unknown"
}

func (s *WebhookService) isDuplicate(deliveryID string) bool {
	if s.dedup == nil || deliveryID == "" {
		return false
	}
	if _, found := s.dedup.Get(deliveryID); found {
		return true
	}
	ttl := time.Duration(s.cfg.Dedup.TTLMinutes) * time.Minute
	s.dedup.SetWithTTL(deliveryID, struct{}{}, 1, ttl)
	s.dedup.Wait()
	return false
}

func (s *WebhookService) augment(body []byte, eventType, signature string) ([]byte, error) {
	payload, err := sjson.SetBytes(body, "_receivedAt", s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("augment webhook payload: %w", err)
	}
	payload, err = sjson.SetBytes(payload, "_eventType", eventType)
	if err != nil {
		return nil, fmt.Errorf("augment webhook payload: %w", err)
	}
	if signature != "" {
		// The signature is only flagged; verification is a known gap until
		// Plaud documents the signing method.
		payload, err = sjson.SetBytes(payload, "_signaturePresent", true)
		if err != nil {
			return nil, fmt.Errorf("augment webhook payload: %w", err)
		}
	}
	return payload, nil
}
