package mlflow

import (
	"context"
	"fmt"
	"sort"

	"github.com/databricks/databricks-sdk-go/service/ml"

	"github.com/imishinist/mlflow-runs/internal/models"
)

func (c *Client) LogParam(ctx context.Context, runID string, key string, value string) error {
	err := c.client.Experiments.LogParam(ctx, ml.LogParam{
		RunId: runID,
		Key:   key,
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to log parameter %s: %w", key, err)
	}

	return nil
}

// LogParams logs params through the batch endpoint.
func (c *Client) LogParams(ctx context.Context, runID string, params []models.RunParam) error {
	return c.LogBatch(ctx, runID, nil, params)
}

// ParamsFromMap orders a key/value map into RunParams. Keys are sorted so the
// batches sent to the server are deterministic.
func ParamsFromMap(params map[string]string) []models.RunParam {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]models.RunParam, 0, len(keys))
	for _, key := range keys {
		result = append(result, models.Param(key, params[key]))
	}
	return result
}
