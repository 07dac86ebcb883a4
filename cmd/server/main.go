package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/youfak/plaud-bridge/internal/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	app, err := initializeApplication()
	if err != nil {
		logger.L().Fatal("application init failed", zap.Error(err))
	}
	defer app.Cleanup()

	go func() {
		logger.With(zap.String("component", "server")).
			Info("plaud bridge listening", zap.String("addr", app.Server.Addr))
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.With(zap.String("component", "server")).Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Server.Shutdown(ctx); err != nil {
		logger.With(zap.String("component", "server")).
			Warn("graceful shutdown incomplete", zap.Error(err))
	}
	logger.Sync()
}
