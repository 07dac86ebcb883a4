package repository

import (
	"github.com/google/wire"
)

// ProviderSet wires the repository layer.
var ProviderSet = wire.NewSet(
	NewMemoryTokenCache,
	ProvideTokenCache,
	NewPlaudTokenProvider,
	ProvideTokenProvider,
	NewPlaudAPIClient,
	ProvidePlaudClient,
	NewHTTPWebhookForwarder,
	ProvideWebhookForwarder,
)
