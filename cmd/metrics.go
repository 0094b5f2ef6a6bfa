package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/imishinist/mlflow-runs/internal/config"
	"github.com/imishinist/mlflow-runs/internal/mlflow"
	"github.com/imishinist/mlflow-runs/internal/models"
	"github.com/imishinist/mlflow-runs/internal/parser"
	timeutils "github.com/imishinist/mlflow-runs/internal/time"
)

var logMetricCmd = &cobra.Command{
	Use:   "metric",
	Short: "Log a single metric to MLflow run",
	Long:  "Log a single metric to an existing MLflow run",
	RunE:  logMetric,
}

var logMetricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Log multiple metrics to MLflow run",
	Long: `Log multiple metrics from file to an existing MLflow run.
Metric files use the tracking API's run data shape:
{"metrics": [{"key": ..., "value": ..., "step": ..., "timestamp": ...}]}.
Every entry is logged, including repeated keys.`,
	RunE: logMetrics,
}

func init() {
	logCmd.AddCommand(logMetricCmd)
	logCmd.AddCommand(logMetricsCmd)

	// Single metric command flags
	logMetricCmd.Flags().String("run-id", "", "Run ID to log metric to (required)")
	logMetricCmd.Flags().String("name", "", "Metric name (required)")
	logMetricCmd.Flags().Float64("value", 0, "Metric value (required)")
	logMetricCmd.Flags().Int64("step", -1, "Step number (optional)")
	logMetricCmd.Flags().String("timestamp", "", "Timestamp in ISO8601 format or epoch milliseconds (optional)")
	logMetricCmd.MarkFlagRequired("run-id")
	logMetricCmd.MarkFlagRequired("name")
	logMetricCmd.MarkFlagRequired("value")

	// Multiple metrics command flags
	logMetricsCmd.Flags().String("run-id", "", "Run ID to log metrics to (required)")
	logMetricsCmd.Flags().String("from-file", "", "Load metrics from file (JSON/YAML)")
	logMetricsCmd.MarkFlagRequired("run-id")
	logMetricsCmd.MarkFlagRequired("from-file")
}

func logMetric(cmd *cobra.Command, args []string) error {
	runID, _ := cmd.Flags().GetString("run-id")
	name, _ := cmd.Flags().GetString("name")
	value, _ := cmd.Flags().GetFloat64("value")
	step, _ := cmd.Flags().GetInt64("step")
	timestampStr, _ := cmd.Flags().GetString("timestamp")

	var timestamp *time.Time
	var stepPtr *int64

	if timestampStr != "" {
		t, err := timeutils.ParseTimestamp(timestampStr)
		if err != nil {
			return err
		}
		timestamp = &t
	}

	if step >= 0 {
		stepPtr = &step
	}

	cfg := config.New()
	client, err := mlflow.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create MLflow client: %w", err)
	}

	ctx := context.Background()
	if err := client.LogMetric(ctx, runID, name, value, timestamp, stepPtr); err != nil {
		return fmt.Errorf("failed to log metric: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Successfully logged metric: %s = %f", name, value)
	if stepPtr != nil {
		fmt.Fprintf(out, " (step: %d)", *stepPtr)
	}
	if timestamp != nil {
		fmt.Fprintf(out, " (timestamp: %s)", timestamp.Format(time.RFC3339))
	}
	fmt.Fprintln(out)

	return nil
}

func logMetrics(cmd *cobra.Command, args []string) error {
	runID, _ := cmd.Flags().GetString("run-id")
	fromFile, _ := cmd.Flags().GetString("from-file")

	metrics, err := loadMetricsFile(fromFile)
	if err != nil {
		return err
	}

	cfg := config.New()
	client, err := mlflow.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create MLflow client: %w", err)
	}

	if err := client.LogBatch(context.Background(), runID, metrics, nil); err != nil {
		return fmt.Errorf("failed to log metrics: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Successfully logged %d metrics from %s\n", len(metrics), fromFile)
	printMetricSummary(cmd, metrics)

	return nil
}

func loadMetricsFile(path string) ([]models.RunMetric, error) {
	payload, err := parser.ParsePayloadFile(path)
	if err != nil {
		return nil, err
	}

	metrics, err := models.NewMetricHistory(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metrics file: %w", err)
	}
	return metrics, nil
}

func printMetricSummary(cmd *cobra.Command, metrics []models.RunMetric) {
	counts := make(map[string]int)
	for _, metric := range metrics {
		counts[metric.Key]++
	}

	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Metrics summary:")
	for _, key := range keys {
		fmt.Fprintf(out, "  %s: %d data points\n", key, counts[key])
	}
}
