package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/youfak/plaud-bridge/internal/config"
	"github.com/youfak/plaud-bridge/internal/service"
	"github.com/youfak/plaud-bridge/internal/util/plauderror"
)

// PlaudHandler exposes the Plaud operations as REST endpoints.
type PlaudHandler struct {
	cfg    *config.Config
	client service.PlaudClient
	batch  *service.BatchService
}

func NewPlaudHandler(cfg *config.Config, client service.PlaudClient, batch *service.BatchService) *PlaudHandler {
	return &PlaudHandler{
		cfg:    cfg,
		client: client,
		batch:  batch,
	}
}

func (h *PlaudHandler) GetDevice(c *gin.Context) {
	op := service.DeviceGet{DeviceID: c.Param("deviceId")}
	if op.DeviceID == "" {
		respondError(c, &plauderror.ConfigurationError{Message: "device id is required"})
		return
	}
	h.execute(c, op)
}

func (h *PlaudHandler) BindDevice(c *gin.Context) {
	var op service.DeviceBind
	if err := c.ShouldBindJSON(&op); err != nil {
		respondError(c, &plauderror.ConfigurationError{Message: err.Error()})
		return
	}
	h.execute(c, op)
}

func (h *PlaudHandler) UnbindDevice(c *gin.Context) {
	var op service.DeviceUnbind
	if err := c.ShouldBindJSON(&op); err != nil {
		respondError(c, &plauderror.ConfigurationError{Message: err.Error()})
		return
	}
	h.execute(c, op)
}

func (h *PlaudHandler) GenerateUploadURLs(c *gin.Context) {
	var op service.FileGenerateUploadURLs
	if err := c.ShouldBindJSON(&op); err != nil {
		respondError(c, &plauderror.ConfigurationError{Message: err.Error()})
		return
	}
	h.execute(c, op)
}

func (h *PlaudHandler) CompleteUpload(c *gin.Context) {
	var op service.FileCompleteUpload
	if err := c.ShouldBindJSON(&op); err != nil {
		respondError(c, &plauderror.ConfigurationError{Message: err.Error()})
		return
	}
	h.execute(c, op)
}

func (h *PlaudHandler) SubmitWorkflow(c *gin.Context) {
	var op service.WorkflowSubmit
	if err := c.ShouldBindJSON(&op); err != nil {
		respondError(c, &plauderror.ConfigurationError{Message: err.Error()})
		return
	}
	h.execute(c, op)
}

func (h *PlaudHandler) GetWorkflowStatus(c *gin.Context) {
	op := service.WorkflowGetStatus{WorkflowID: c.Param("workflowId")}
	if op.WorkflowID == "" {
		respondError(c, &plauderror.ConfigurationError{Message: "workflow id is required"})
		return
	}
	h.execute(c, op)
}

func (h *PlaudHandler) GetWorkflowResult(c *gin.Context) {
	op := service.WorkflowGetResult{WorkflowID: c.Param("workflowId")}
	if op.WorkflowID == "" {
		respondError(c, &plauderror.ConfigurationError{Message: "workflow id is required"})
		return
	}
	h.execute(c, op)
}

// BatchRequest runs multiple operations in one call.
type BatchRequest struct {
	Items          []service.BatchItem `json:"items" binding:"required"`
	ContinueOnFail *bool               `json:"continue_on_fail"`
}

func (h *PlaudHandler) Batch(c *gin.Context) {
	var request BatchRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respondError(c, &plauderror.ConfigurationError{Message: err.Error()})
		return
	}

	continueOnFail := h.cfg.Batch.ContinueOnFail
	if request.ContinueOnFail != nil {
		continueOnFail = *request.ContinueOnFail
	}

	results, err := h.batch.Run(c.Request.Context(), request.Items, continueOnFail)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *PlaudHandler) execute(c *gin.Context, op service.Operation) {
	data, err := h.client.Do(c.Request.Context(), op)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

// respondError maps the error taxonomy to HTTP statuses: caller mistakes are
// 400, classified upstream failures mirror the upstream status, and bridge
// credential or transport trouble is a 502.
func respondError(c *gin.Context, err error) {
	var cfgErr *plauderror.ConfigurationError
	var authErr *plauderror.AuthenticationError
	var reqErr *plauderror.RequestError

	switch {
	case errors.As(err, &cfgErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": cfgErr.Message})
	case errors.As(err, &authErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": authErr.Message})
	case errors.As(err, &reqErr):
		c.JSON(reqErr.StatusCode, gin.H{"error": reqErr.Message})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}
