package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"github.com/youfak/plaud-bridge/internal/config"
	"github.com/youfak/plaud-bridge/internal/pkg/ctxkey"
	"github.com/youfak/plaud-bridge/internal/service"
)

// maxWebhookBodyBytes bounds inbound delivery size.
const maxWebhookBodyBytes = 4 << 20

// WebhookHandler receives Plaud webhook deliveries and hands matching events
// to the webhook service.
type WebhookHandler struct {
	cfg *config.Config
	svc *service.WebhookService
}

func NewWebhookHandler(cfg *config.Config, svc *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		cfg: cfg,
		svc: svc,
	}
}

func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read request body"})
		return
	}
	if len(body) > maxWebhookBodyBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "webhook payload too large"})
		return
	}
	if !gjson.ValidBytes(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "webhook payload must be valid JSON"})
		return
	}

	signature := c.GetHeader(h.cfg.Webhook.SignatureHeader)
	deliveryID := c.GetHeader(h.cfg.Webhook.DeliveryHeader)

	result, err := h.svc.Handle(c.Request.Context(), body, signature, deliveryID)

	// The service owns event type resolution (event_type with event as
	// fallback); expose its answer to the access log middleware.
	ctx := context.WithValue(c.Request.Context(), ctxkey.WebhookEventType, result.EventType)
	c.Request = c.Request.WithContext(ctx)

	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	response := gin.H{
		"triggered":  result.Triggered,
		"event_type": result.EventType,
	}
	if result.Duplicate {
		response["duplicate"] = true
	}
	c.JSON(http.StatusOK, response)
}

// Registration documents the manual webhook lifecycle. Plaud exposes no API
// to register, check or remove webhooks, so all three are user actions in the
// Plaud Developer Portal.
func (h *WebhookHandler) Registration(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"mode":    "manual",
		"path":    "/webhooks/plaud",
		"event":   h.cfg.Webhook.Event,
		"message": "Register this endpoint's public URL in the Plaud Developer Portal. Plaud has no API for programmatic webhook registration or removal.",
	})
}
