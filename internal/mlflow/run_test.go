package mlflow

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imishinist/mlflow-runs/internal/config"
	"github.com/imishinist/mlflow-runs/internal/models"
)

func runPayload(runID string) map[string]any {
	return map[string]any{
		"info": map[string]any{
			"run_id":          runID,
			"experiment_id":   "7",
			"status":          "FINISHED",
			"run_name":        "sweep-1",
			"start_time":      "1700000000000",
			"end_time":        1700000060000,
			"artifact_uri":    "mlflow-artifacts:/7/" + runID + "/artifacts",
			"lifecycle_stage": "active",
		},
		"data": map[string]any{
			"metrics": []any{
				map[string]any{"key": "loss", "value": 0.5, "step": 1, "timestamp": 1700000001000},
				map[string]any{"key": "loss", "value": 0.4, "step": "2", "timestamp": "1700000002000"},
			},
			"params": []any{map[string]any{"key": "lr", "value": "0.01"}},
			"tags":   []any{map[string]any{"key": "mlflow.runName", "value": "sweep-1"}},
		},
	}
}

func TestRunFromPayload(t *testing.T) {
	runID := uuid.NewString()

	run, err := RunFromPayload(runPayload(runID))
	require.NoError(t, err)
	id, err := run.RunID()
	require.NoError(t, err)
	assert.Equal(t, runID, id)
	assert.Equal(t, 0.4, run.Data().Metrics["loss"].Value)

	infoOnly, err := RunFromPayload(map[string]any{"info": map[string]any{"run_id": runID}})
	require.NoError(t, err)
	assert.Nil(t, infoOnly.Data())

	dataOnly, err := RunFromPayload(map[string]any{"data": map[string]any{}})
	require.NoError(t, err)
	assert.Nil(t, dataOnly.Info())
	assert.NotNil(t, dataOnly.Data())

	_, err = RunFromPayload(map[string]any{})
	assert.ErrorIs(t, err, models.ErrMissingField)

	_, err = RunFromPayload(map[string]any{"info": "abc"})
	assert.ErrorIs(t, err, models.ErrParse)

	_, err = RunFromPayload(map[string]any{"info": map[string]any{"status": "PAUSED"}})
	assert.ErrorIs(t, err, models.ErrInvalidStatus)
}

func TestGetRun(t *testing.T) {
	runID := uuid.NewString()
	srv := mockServer(t, map[string]http.HandlerFunc{
		"/api/2.0/mlflow/runs/get": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("run_id") != runID {
				writeJSON(w, http.StatusNotFound, map[string]any{
					"error_code": "RESOURCE_DOES_NOT_EXIST",
					"message":    "Run '" + r.URL.Query().Get("run_id") + "' not found",
				})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"run": runPayload(runID)})
		},
	})
	client := newTestClient(t, srv.URL)

	run, err := client.GetRun(context.Background(), runID)
	require.NoError(t, err)

	info := run.Info()
	require.NotNil(t, info)
	assert.Equal(t, int64(7), *info.ExperimentID)
	assert.Equal(t, models.RunStatusFinished, *info.Status)
	assert.Equal(t, int64(1700000000000), *info.StartTime)
	assert.Equal(t, int64(1700000060000), *info.EndTime)

	params, err := run.Params()
	require.NoError(t, err)
	assert.Equal(t, "0.01", params["lr"].Value)
	assert.Equal(t, models.RunMetric{Key: "loss", Value: 0.4, Step: 2, Timestamp: 1700000002000}, run.Data().Metrics["loss"])

	_, err = client.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSearchRunsFollowsPages(t *testing.T) {
	var requests []map[string]any
	srv := mockServer(t, map[string]http.HandlerFunc{
		"/api/2.0/mlflow/runs/search": func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			requests = append(requests, body)

			if body["page_token"] == nil {
				writeJSON(w, http.StatusOK, map[string]any{
					"runs":            []any{runPayload("a"), runPayload("b")},
					"next_page_token": "page-2",
				})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"runs": []any{runPayload("c")},
			})
		},
	})
	client := newTestClient(t, srv.URL)

	runs, err := client.SearchRuns(context.Background(), SearchOptions{
		ExperimentIDs: []string{"7"},
		Filter:        "metrics.loss < 1",
	})
	require.NoError(t, err)
	require.Len(t, runs, 3)

	var ids []string
	for _, run := range runs {
		id, err := run.RunID()
		require.NoError(t, err)
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	require.Len(t, requests, 2)
	assert.Equal(t, "metrics.loss < 1", requests[0]["filter"])
	assert.Equal(t, "page-2", requests[1]["page_token"])
}

func TestSearchRunsMaxResults(t *testing.T) {
	calls := 0
	srv := mockServer(t, map[string]http.HandlerFunc{
		"/api/2.0/mlflow/runs/search": func(w http.ResponseWriter, r *http.Request) {
			calls++
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, float64(2), body["max_results"])
			writeJSON(w, http.StatusOK, map[string]any{
				"runs":            []any{runPayload("a"), runPayload("b")},
				"next_page_token": "more",
			})
		},
	})
	client := newTestClient(t, srv.URL)

	runs, err := client.SearchRuns(context.Background(), SearchOptions{ExperimentIDs: []string{"7"}, MaxResults: 2})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	assert.Equal(t, 1, calls)

	_, err = client.SearchRuns(context.Background(), SearchOptions{})
	assert.Error(t, err)
}

func TestSearchRunsTrimsOversizedPage(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"/api/2.0/mlflow/runs/search": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"runs": []any{runPayload("a"), runPayload("b"), runPayload("c")},
			})
		},
	})
	client := newTestClient(t, srv.URL)

	runs, err := client.SearchRuns(context.Background(), SearchOptions{ExperimentIDs: []string{"7"}, MaxResults: 2})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	id, err := runs[1].RunID()
	require.NoError(t, err)
	assert.Equal(t, "b", id)
}

func TestSearchRunsErrorIndexOnLaterPage(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"/api/2.0/mlflow/runs/search": func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body["page_token"] == nil {
				writeJSON(w, http.StatusOK, map[string]any{
					"runs":            []any{runPayload("a"), runPayload("b")},
					"next_page_token": "page-2",
				})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"runs": []any{runPayload("c"), map[string]any{"info": map[string]any{"start_time": "soon"}}},
			})
		},
	})
	client := newTestClient(t, srv.URL)

	_, err := client.SearchRuns(context.Background(), SearchOptions{ExperimentIDs: []string{"7"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "runs[3]")
}

func TestSearchRunsRejectsMalformedRun(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"/api/2.0/mlflow/runs/search": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"runs": []any{runPayload("a"), map[string]any{"info": map[string]any{"experiment_id": "abc"}}},
			})
		},
	})
	client := newTestClient(t, srv.URL)

	_, err := client.SearchRuns(context.Background(), SearchOptions{ExperimentIDs: []string{"7"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrParse)
	assert.Contains(t, err.Error(), "runs[1]")
}

func TestCreateRun(t *testing.T) {
	runID := uuid.NewString()
	var body map[string]any
	srv := mockServer(t, map[string]http.HandlerFunc{
		"/api/2.0/mlflow/runs/create": func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			writeJSON(w, http.StatusOK, map[string]any{
				"run": map[string]any{
					"info": map[string]any{
						"run_id":        runID,
						"experiment_id": body["experiment_id"],
						"run_name":      body["run_name"],
						"status":        "RUNNING",
						"start_time":    body["start_time"],
					},
					"data": map[string]any{"tags": body["tags"]},
				},
			})
		},
	})
	client := newTestClient(t, srv.URL)

	experimentID := "7"
	runName := "nightly"
	description := "retrain"
	info, err := client.CreateRun(context.Background(), &models.RunConfig{
		ExperimentID: &experimentID,
		RunName:      &runName,
		Description:  &description,
		Tags:         map[string]string{"team": "search"},
	})
	require.NoError(t, err)

	id, ok := info.ID()
	require.True(t, ok)
	assert.Equal(t, runID, id)
	assert.Equal(t, "nightly", *info.RunName)
	assert.Equal(t, models.RunStatusRunning, *info.Status)
	assert.Equal(t, int64(7), *info.ExperimentID)

	assert.Equal(t, "7", body["experiment_id"])
	assert.ElementsMatch(t, []any{
		map[string]any{"key": "team", "value": "search"},
		map[string]any{"key": "mlflow.runName", "value": "nightly"},
		map[string]any{"key": "mlflow.note.content", "value": "retrain"},
	}, body["tags"])

	_, err = client.CreateRun(context.Background(), &models.RunConfig{})
	assert.Error(t, err)
}

func TestUpdateRunRejectsUnknownStatus(t *testing.T) {
	client := newTestClient(t, mockServer(t, nil).URL)

	err := client.UpdateRun(context.Background(), "abc", models.RunStatus("PAUSED"))
	assert.ErrorIs(t, err, models.ErrInvalidStatus)
}

func TestNewDatabricksConfig(t *testing.T) {
	cfg, err := newDatabricksConfig(&config.Config{TrackingURI: "http://localhost:5000"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", cfg.Host)
	assert.Equal(t, regularServerToken, cfg.Token)

	cfg, err = newDatabricksConfig(&config.Config{TrackingURI: "databricks://staging", DatabricksToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Profile)
	assert.Equal(t, "tok", cfg.Token)

	cfg, err = newDatabricksConfig(&config.Config{TrackingURI: "https://dbc-1.cloud.databricks.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://dbc-1.cloud.databricks.com", cfg.Host)

	cfg, err = newDatabricksConfig(&config.Config{TrackingURI: "databricks", DatabricksHost: "https://dbc-2.cloud.databricks.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://dbc-2.cloud.databricks.com", cfg.Host)

	_, err = newDatabricksConfig(&config.Config{TrackingURI: "databricks"})
	assert.Error(t, err)
}
