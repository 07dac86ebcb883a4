//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/youfak/plaud-bridge/internal/config"
	"github.com/youfak/plaud-bridge/internal/handler"
	"github.com/youfak/plaud-bridge/internal/repository"
	"github.com/youfak/plaud-bridge/internal/server"
	"github.com/youfak/plaud-bridge/internal/service"
)

func initializeApplication() (*Application, error) {
	wire.Build(
		config.ProviderSet,
		provideLogger,

		repository.ProviderSet,
		service.ProviderSet,
		handler.ProviderSet,
		server.ProviderSet,

		provideCleanup,
		provideApplication,
	)
	return nil, nil
}
