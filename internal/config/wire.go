package config

import (
	"github.com/google/wire"
)

// ProviderSet wires configuration loading.
var ProviderSet = wire.NewSet(
	Load,
)
