package handler

import (
	"github.com/google/wire"
)

// Handlers aggregates every HTTP handler for router setup.
type Handlers struct {
	Plaud   *PlaudHandler
	Webhook *WebhookHandler
}

func ProvideHandlers(plaud *PlaudHandler, webhook *WebhookHandler) *Handlers {
	return &Handlers{
		Plaud:   plaud,
		Webhook: webhook,
	}
}

// ProviderSet wires the handler layer.
var ProviderSet = wire.NewSet(
	NewPlaudHandler,
	NewWebhookHandler,
	ProvideHandlers,
)
