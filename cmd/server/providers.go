package main

import (
	"net/http"

	"github.com/youfak/plaud-bridge/internal/config"
	"github.com/youfak/plaud-bridge/internal/pkg/logger"
	"github.com/youfak/plaud-bridge/internal/repository"
)

// Application bundles the HTTP server with its teardown.
type Application struct {
	Server  *http.Server
	Cleanup func()
}

// loggerReady marks that the global logger has been configured from config.
// It exists so the injector orders logger setup before everything that logs.
type loggerReady struct{}

func provideLogger(cfg *config.Config) (loggerReady, error) {
	err := logger.Init(logger.InitOptions{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: cfg.Log.ServiceName,
		Environment: cfg.Log.Environment,
		Caller:      cfg.Log.Caller,
		Output: logger.OutputOptions{
			ToStdout: cfg.Log.Output.ToStdout,
			ToFile:   cfg.Log.Output.ToFile,
			FilePath: cfg.Log.Output.FilePath,
		},
		Rotation: logger.RotationOptions{
			MaxSizeMB:  cfg.Log.Rotation.MaxSizeMB,
			MaxBackups: cfg.Log.Rotation.MaxBackups,
			MaxAgeDays: cfg.Log.Rotation.MaxAgeDays,
			Compress:   cfg.Log.Rotation.Compress,
		},
	})
	if err != nil {
		return loggerReady{}, err
	}
	return loggerReady{}, nil
}

func provideCleanup(tokenCache *repository.MemoryTokenCache) func() {
	return func() {
		tokenCache.Stop()
		logger.Sync()
	}
}

func provideApplication(_ loggerReady, server *http.Server, cleanup func()) *Application {
	return &Application{
		Server:  server,
		Cleanup: cleanup,
	}
}
