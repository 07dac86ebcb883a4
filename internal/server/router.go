// Package server assembles the gin engine, routes and HTTP server.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"github.com/youfak/plaud-bridge/internal/config"
	"github.com/youfak/plaud-bridge/internal/handler"
	"github.com/youfak/plaud-bridge/internal/server/middleware"
)

// NewEngine builds the gin engine with the bridge middleware chain applied.
func NewEngine(cfg *config.Config) *gin.Engine {
	gin.SetMode(ginMode(cfg.Server.Mode))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Logger())

	if len(cfg.Server.TrustedProxies) > 0 {
		_ = r.SetTrustedProxies(cfg.Server.TrustedProxies)
	} else {
		_ = r.SetTrustedProxies(nil)
	}
	return r
}

// SetupRouter registers all HTTP routes.
func SetupRouter(r *gin.Engine, h *handler.Handlers) *gin.Engine {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		devices := v1.Group("/devices")
		devices.GET("/:deviceId", h.Plaud.GetDevice)
		devices.POST("/bind", h.Plaud.BindDevice)
		devices.POST("/unbind", h.Plaud.UnbindDevice)

		files := v1.Group("/files")
		files.POST("/upload-urls", h.Plaud.GenerateUploadURLs)
		files.POST("/complete-upload", h.Plaud.CompleteUpload)

		workflows := v1.Group("/workflows")
		workflows.POST("/submit", h.Plaud.SubmitWorkflow)
		workflows.GET("/:workflowId/status", h.Plaud.GetWorkflowStatus)
		workflows.GET("/:workflowId/result", h.Plaud.GetWorkflowResult)

		v1.POST("/batch", h.Plaud.Batch)
	}

	webhooks := r.Group("/webhooks")
	webhooks.POST("/plaud", h.Webhook.Receive)
	webhooks.GET("/plaud/registration", h.Webhook.Registration)

	return r
}

// NewHTTPServer builds the http.Server around the configured engine.
func NewHTTPServer(cfg *config.Config, r *gin.Engine, h *handler.Handlers) *http.Server {
	SetupRouter(r, h)
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadHeaderTimeout) * time.Second,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}
}

func ginMode(mode string) string {
	switch mode {
	case gin.DebugMode, gin.TestMode:
		return mode
	default:
		return gin.ReleaseMode
	}
}

// ProviderSet wires the server layer.
var ProviderSet = wire.NewSet(
	NewEngine,
	NewHTTPServer,
)
