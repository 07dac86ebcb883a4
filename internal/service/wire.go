package service

import (
	"github.com/google/wire"
)

// ProviderSet wires the service layer.
var ProviderSet = wire.NewSet(
	NewWebhookService,
	NewBatchService,
)
