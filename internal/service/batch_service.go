package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/youfak/plaud-bridge/internal/config"
	"github.com/youfak/plaud-bridge/internal/pkg/logger"
	"github.com/youfak/plaud-bridge/internal/util/plauderror"
	"go.uber.org/zap"
)

// BatchItem is one operation in a batch request.
type BatchItem struct {
	Resource  string          `json:"resource" binding:"required"`
	Operation string          `json:"operation" binding:"required"`
	Params    json.RawMessage `json:"params"`
}

// BatchItemResult carries either the response data or an error record for one
// item. When the batch continues past failures, errors become data instead of
// aborting the run.
type BatchItemResult struct {
	Index int             `json:"index"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// BatchService runs a sequence of operations against the Plaud API, one
// logical request per item.
type BatchService struct {
	cfg    config.BatchConfig
	client PlaudClient
}

func NewBatchService(cfg *config.Config, client PlaudClient) *BatchService {
	return &BatchService{
		cfg:    cfg.Batch,
		client: client,
	}
}

// Run executes items in order. With continueOnFail, a failed item yields an
// error record and the run proceeds; otherwise the first unrecovered error
// aborts the whole batch.
func (s *BatchService) Run(ctx context.Context, items []BatchItem, continueOnFail bool) ([]BatchItemResult, error) {
	if len(items) == 0 {
		return nil, &plauderror.ConfigurationError{Message: "batch contains no items"}
	}
	if s.cfg.MaxItems > 0 && len(items) > s.cfg.MaxItems {
		return nil, &plauderror.ConfigurationError{
			Message: fmt.Sprintf("batch exceeds maximum of %d items", s.cfg.MaxItems),
		}
	}

	results := make([]BatchItemResult, 0, len(items))
	for i, item := range items {
		data, err := s.runItem(ctx, item)
		if err != nil {
			if !continueOnFail {
				return nil, fmt.Errorf("batch item %d (%s.%s): %w", i, item.Resource, item.Operation, err)
			}
			logger.FromContext(ctx).Warn("batch item failed, continuing",
				zap.String("component", "batch"),
				zap.Int("index", i),
				zap.String("resource", item.Resource),
				zap.String("operation", item.Operation),
				zap.Error(err))
			results = append(results, BatchItemResult{Index: i, Error: err.Error()})
			continue
		}
		results = append(results, BatchItemResult{Index: i, Data: data})
	}
	return results, nil
}

func (s *BatchService) runItem(ctx context.Context, item BatchItem) (json.RawMessage, error) {
	op, err := ResolveOperation(item.Resource, item.Operation, item.Params)
	if err != nil {
		return nil, err
	}
	return s.client.Do(ctx, op)
}
