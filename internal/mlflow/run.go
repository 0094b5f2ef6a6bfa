package mlflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/databricks/databricks-sdk-go/apierr"
	"github.com/databricks/databricks-sdk-go/httpclient"
	"github.com/databricks/databricks-sdk-go/service/ml"
	log "github.com/sirupsen/logrus"

	"github.com/imishinist/mlflow-runs/internal/models"
)

const (
	runNameTag     = "mlflow.runName"
	descriptionTag = "mlflow.note.content"

	// searchPageSize is the largest page runs/search accepts.
	searchPageSize = 1000
)

type SearchOptions struct {
	ExperimentIDs []string
	Filter        string
	OrderBy       []string
	// MaxResults caps the number of runs returned across pages. Zero means no cap.
	MaxResults int
}

// GetRunPayload fetches the decoded "run" object for runID.
func (c *Client) GetRunPayload(ctx context.Context, runID string) (map[string]any, error) {
	log.Debugf("fetching run %s", runID)

	var response map[string]any
	err := c.apiClient.Do(ctx, http.MethodGet, "/api/2.0/mlflow/runs/get",
		httpclient.WithRequestData(map[string]any{"run_id": runID}),
		httpclient.WithResponseUnmarshal(&response),
	)
	if err != nil {
		if errors.Is(err, apierr.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run, ok := response["run"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("failed to get run: response has no run object")
	}
	return run, nil
}

func (c *Client) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	payload, err := c.GetRunPayload(ctx, runID)
	if err != nil {
		return nil, err
	}

	run, err := RunFromPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run %s: %w", runID, err)
	}
	return run, nil
}

// RunFromPayload builds a Run from a decoded {"info": ..., "data": ...} object,
// using whichever halves are present.
func RunFromPayload(payload map[string]any) (*models.Run, error) {
	info, hasInfo, err := objectField(payload, "info")
	if err != nil {
		return nil, err
	}
	data, hasData, err := objectField(payload, "data")
	if err != nil {
		return nil, err
	}

	switch {
	case hasInfo && hasData:
		return models.NewRun(info, data)
	case hasInfo:
		return models.NewRunFromInfoMap(info)
	case hasData:
		runData, err := models.NewRunData(data)
		if err != nil {
			return nil, err
		}
		return models.NewRunFromData(runData), nil
	default:
		return nil, &models.MissingFieldError{Field: "info"}
	}
}

func objectField(payload map[string]any, key string) (map[string]any, bool, error) {
	v, ok := payload[key]
	if !ok || v == nil {
		return nil, false, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, true, &models.ParseError{Field: key, Value: v, Err: fmt.Errorf("expected an object, got %T", v)}
	}
	return obj, true, nil
}

// SearchRuns pages through runs/search until the server runs out of pages or
// MaxResults runs have been collected.
func (c *Client) SearchRuns(ctx context.Context, opts SearchOptions) ([]*models.Run, error) {
	if len(opts.ExperimentIDs) == 0 {
		return nil, fmt.Errorf("at least one experiment ID must be provided")
	}

	runs := make([]*models.Run, 0)
	token := ""
	for {
		pageSize := searchPageSize
		if opts.MaxResults > 0 && opts.MaxResults-len(runs) < pageSize {
			pageSize = opts.MaxResults - len(runs)
		}

		request := map[string]any{
			"experiment_ids": opts.ExperimentIDs,
			"max_results":    pageSize,
		}
		if opts.Filter != "" {
			request["filter"] = opts.Filter
		}
		if len(opts.OrderBy) > 0 {
			request["order_by"] = opts.OrderBy
		}
		if token != "" {
			request["page_token"] = token
		}

		log.Debugf("searching runs in experiments %v (page_token=%q)", opts.ExperimentIDs, token)

		var response struct {
			Runs          []map[string]any `json:"runs"`
			NextPageToken string           `json:"next_page_token"`
		}
		err := c.apiClient.Do(ctx, http.MethodPost, "/api/2.0/mlflow/runs/search",
			httpclient.WithRequestData(request),
			httpclient.WithResponseUnmarshal(&response),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to search runs: %w", err)
		}

		base := len(runs)
		for i, payload := range response.Runs {
			run, err := RunFromPayload(payload)
			if err != nil {
				return nil, fmt.Errorf("failed to parse runs[%d]: %w", base+i, err)
			}
			runs = append(runs, run)
		}

		if response.NextPageToken == "" || (opts.MaxResults > 0 && len(runs) >= opts.MaxResults) {
			break
		}
		token = response.NextPageToken
	}

	if opts.MaxResults > 0 && len(runs) > opts.MaxResults {
		runs = runs[:opts.MaxResults]
	}
	return runs, nil
}

func (c *Client) CreateRun(ctx context.Context, config *models.RunConfig) (*models.RunInfo, error) {
	if config.ExperimentID == nil {
		return nil, fmt.Errorf("experiment ID must be provided")
	}

	runName := "run-" + time.Now().Format("2006-01-02-15-04-05")
	if config.RunName != nil {
		runName = *config.RunName
	}

	tags := make([]map[string]string, 0, len(config.Tags)+2)
	for key, value := range config.Tags {
		tags = append(tags, map[string]string{"key": key, "value": value})
	}
	tags = append(tags, map[string]string{"key": runNameTag, "value": runName})
	if config.Description != nil {
		tags = append(tags, map[string]string{"key": descriptionTag, "value": *config.Description})
	}

	request := map[string]any{
		"experiment_id": *config.ExperimentID,
		"run_name":      runName,
		"start_time":    time.Now().UnixMilli(),
		"tags":          tags,
	}

	var response map[string]any
	err := c.apiClient.Do(ctx, http.MethodPost, "/api/2.0/mlflow/runs/create",
		httpclient.WithRequestData(request),
		httpclient.WithResponseUnmarshal(&response),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	payload, ok := response["run"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("failed to create run: response has no run object")
	}
	run, err := RunFromPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created run: %w", err)
	}
	if run.Info() == nil {
		return nil, fmt.Errorf("failed to parse created run: %w", models.ErrNoInfo)
	}

	log.Debugf("created run %s in experiment %s", runName, *config.ExperimentID)
	return run.Info(), nil
}

func (c *Client) UpdateRun(ctx context.Context, runID string, status models.RunStatus) error {
	var mlStatus ml.UpdateRunStatus
	switch status {
	case models.RunStatusRunning:
		mlStatus = ml.UpdateRunStatusRunning
	case models.RunStatusScheduled:
		mlStatus = ml.UpdateRunStatusScheduled
	case models.RunStatusFinished:
		mlStatus = ml.UpdateRunStatusFinished
	case models.RunStatusFailed:
		mlStatus = ml.UpdateRunStatusFailed
	case models.RunStatusKilled:
		mlStatus = ml.UpdateRunStatusKilled
	default:
		return fmt.Errorf("failed to update run: %w", &models.InvalidStatusError{Value: string(status)})
	}

	updateRun := ml.UpdateRun{
		RunId:  runID,
		Status: mlStatus,
	}
	if status.IsTerminal() {
		updateRun.EndTime = time.Now().UnixMilli()
	}

	if _, err := c.client.Experiments.UpdateRun(ctx, updateRun); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	return nil
}
