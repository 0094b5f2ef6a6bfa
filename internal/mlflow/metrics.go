package mlflow

import (
	"context"
	"fmt"
	"time"

	"github.com/databricks/databricks-sdk-go/service/ml"
	log "github.com/sirupsen/logrus"

	"github.com/imishinist/mlflow-runs/internal/models"
)

// Per-request limits of the log-batch endpoint.
const (
	maxBatchMetrics = 1000
	maxBatchParams  = 100
)

func (c *Client) LogMetric(ctx context.Context, runID string, key string, value float64, timestamp *time.Time, step *int64) error {
	logMetric := ml.LogMetric{
		RunId: runID,
		Key:   key,
		Value: value,
	}

	if timestamp != nil {
		logMetric.Timestamp = timestamp.UnixMilli()
	} else {
		logMetric.Timestamp = time.Now().UnixMilli()
	}

	if step != nil {
		logMetric.Step = *step
	}

	err := c.client.Experiments.LogMetric(ctx, logMetric)
	if err != nil {
		return fmt.Errorf("failed to log metric %s: %w", key, err)
	}

	return nil
}

// LogBatch sends metrics and params in as many log-batch requests as the
// server limits require.
func (c *Client) LogBatch(ctx context.Context, runID string, metrics []models.RunMetric, params []models.RunParam) error {
	for _, batch := range splitBatches(metrics, params) {
		log.Debugf("logging batch to run %s: %d metrics, %d params", runID, len(batch.Metrics), len(batch.Params))

		batch.RunId = runID
		if err := c.client.Experiments.LogBatch(ctx, batch); err != nil {
			return fmt.Errorf("failed to log batch: %w", err)
		}
	}
	return nil
}

func splitBatches(metrics []models.RunMetric, params []models.RunParam) []ml.LogBatch {
	var batches []ml.LogBatch

	for start := 0; start < len(params); start += maxBatchParams {
		end := min(start+maxBatchParams, len(params))
		batch := ml.LogBatch{}
		for _, param := range params[start:end] {
			batch.Params = append(batch.Params, ml.Param{Key: param.Key, Value: param.Value})
		}
		batches = append(batches, batch)
	}

	for start := 0; start < len(metrics); start += maxBatchMetrics {
		end := min(start+maxBatchMetrics, len(metrics))
		batch := ml.LogBatch{}
		for _, metric := range metrics[start:end] {
			batch.Metrics = append(batch.Metrics, ml.Metric{
				Key:             metric.Key,
				Value:           metric.Value,
				Step:            metric.Step,
				Timestamp:       metric.Timestamp,
				ForceSendFields: []string{"Value", "Step"},
			})
		}
		batches = append(batches, batch)
	}

	return batches
}
