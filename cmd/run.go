package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imishinist/mlflow-runs/internal/config"
	"github.com/imishinist/mlflow-runs/internal/mlflow"
	"github.com/imishinist/mlflow-runs/internal/models"
	"github.com/imishinist/mlflow-runs/internal/parser"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Manage MLflow runs",
	Long:  "Create, update, inspect, and search MLflow runs",
}

var runStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new MLflow run",
	Long:  "Create and start a new MLflow run",
	RunE:  runStart,
}

var runEndCmd = &cobra.Command{
	Use:   "end",
	Short: "End an MLflow run",
	Long:  "End an existing MLflow run",
	RunE:  runEnd,
}

var runGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show an MLflow run",
	Long:  "Fetch a run and show its info, metrics, params, and tags",
	RunE:  runGet,
}

var runSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search MLflow runs",
	Long:  "Search the runs of one or more experiments",
	Example: `  # List runs of the configured experiment
  mlflow-cli run search

  # Filter and order runs
  mlflow-cli run search --experiment-id 3 --filter "metrics.loss < 0.5" --order-by "metrics.loss ASC"`,
	RunE: runSearch,
}

var runInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect a saved run payload",
	Long: `Parse a run payload saved from the tracking API (JSON or YAML) and show it.
The file holds either a run object ({"info": ..., "data": ...}) or a runs/get response ({"run": ...}).`,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.AddCommand(runStartCmd)
	runCmd.AddCommand(runEndCmd)
	runCmd.AddCommand(runGetCmd)
	runCmd.AddCommand(runSearchCmd)
	runCmd.AddCommand(runInspectCmd)

	// Start command flags
	runStartCmd.Flags().String("run-name", "", "Run name (default: timestamp-based)")
	runStartCmd.Flags().StringArray("tag", []string{}, "Tags in key=value format")
	runStartCmd.Flags().String("description", "", "Run description")

	// End command flags
	runEndCmd.Flags().String("run-id", "", "Run ID to end (required)")
	runEndCmd.Flags().String("status", "FINISHED", "End status (FINISHED/FAILED/KILLED)")
	runEndCmd.MarkFlagRequired("run-id")

	// Get command flags
	runGetCmd.Flags().String("run-id", "", "Run ID to show (required)")
	runGetCmd.Flags().StringP("output", "o", "text", "Output format (text/json)")
	runGetCmd.MarkFlagRequired("run-id")

	// Search command flags
	runSearchCmd.Flags().StringSlice("experiment-ids", []string{}, "Experiment IDs to search (default: --experiment-id)")
	runSearchCmd.Flags().String("filter", "", "Search filter expression")
	runSearchCmd.Flags().StringArray("order-by", []string{}, "Order-by clause (can be specified multiple times)")
	runSearchCmd.Flags().Int("max-results", 100, "Maximum number of runs to return (0 for all)")
	runSearchCmd.Flags().StringP("output", "o", "text", "Output format (text/json)")

	// Inspect command flags
	runInspectCmd.Flags().String("from-file", "", "Run payload file (JSON/YAML)")
	runInspectCmd.Flags().StringP("output", "o", "text", "Output format (text/json)")
	runInspectCmd.MarkFlagRequired("from-file")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg := config.New()
	client, err := mlflow.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create MLflow client: %w", err)
	}

	runConfig, err := buildRunConfig(cmd, cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	runInfo, err := client.CreateRun(ctx, runConfig)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	runID, ok := runInfo.ID()
	if !ok {
		return fmt.Errorf("failed to create run: %w", models.ErrNoRunID)
	}

	// Output only run ID for shell scripting
	fmt.Fprintln(cmd.OutOrStdout(), runID)

	return nil
}

// buildRunConfig constructs RunConfig from command flags and configuration
func buildRunConfig(cmd *cobra.Command, cfg *config.Config) (*models.RunConfig, error) {
	runName, _ := cmd.Flags().GetString("run-name")
	tags, _ := cmd.Flags().GetStringArray("tag")
	description, _ := cmd.Flags().GetString("description")

	experimentID := cfg.ExperimentID
	if experimentID == "" {
		return nil, fmt.Errorf("experiment ID must be specified via --experiment-id flag or MLFLOW_EXPERIMENT_ID environment variable")
	}

	tagMap, err := parseKeyValues("tag", tags)
	if err != nil {
		return nil, err
	}

	runConfig := &models.RunConfig{
		ExperimentID: &experimentID,
		Tags:         tagMap,
	}

	if runName != "" {
		runConfig.RunName = &runName
	}

	if description != "" {
		processedDescription := processEscapeSequences(description)
		runConfig.Description = &processedDescription
	}

	return runConfig, nil
}

// parseKeyValues parses strings in key=value format
func parseKeyValues(kind string, values []string) (map[string]string, error) {
	result := make(map[string]string)
	for _, value := range values {
		parts := strings.SplitN(value, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid %s format: %s (expected key=value)", kind, value)
		}
		result[parts[0]] = parts[1]
	}
	return result, nil
}

func runEnd(cmd *cobra.Command, args []string) error {
	runID, _ := cmd.Flags().GetString("run-id")
	status, _ := cmd.Flags().GetString("status")

	runStatus, err := models.ParseRunStatus(strings.ToUpper(status))
	if err != nil {
		return err
	}
	if !runStatus.IsTerminal() {
		return fmt.Errorf("invalid end status: %s (valid: FINISHED, FAILED, KILLED)", status)
	}

	cfg := config.New()
	client, err := mlflow.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create MLflow client: %w", err)
	}

	ctx := context.Background()
	if err := client.UpdateRun(ctx, runID, runStatus); err != nil {
		return fmt.Errorf("failed to end run: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run ended successfully\n")
	fmt.Fprintf(out, "Run ID: %s\n", runID)
	fmt.Fprintf(out, "Status: %s\n", runStatus)

	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	runID, _ := cmd.Flags().GetString("run-id")
	output, _ := cmd.Flags().GetString("output")
	if err := validateOutput(output); err != nil {
		return err
	}

	cfg := config.New()
	client, err := mlflow.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create MLflow client: %w", err)
	}

	run, err := client.GetRun(context.Background(), runID)
	if err != nil {
		return err
	}

	return printRun(cmd.OutOrStdout(), run, output)
}

func runSearch(cmd *cobra.Command, args []string) error {
	experimentIDs, _ := cmd.Flags().GetStringSlice("experiment-ids")
	filter, _ := cmd.Flags().GetString("filter")
	orderBy, _ := cmd.Flags().GetStringArray("order-by")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	output, _ := cmd.Flags().GetString("output")
	if err := validateOutput(output); err != nil {
		return err
	}
	if maxResults < 0 {
		return fmt.Errorf("--max-results must not be negative")
	}

	cfg := config.New()
	if len(experimentIDs) == 0 && cfg.ExperimentID != "" {
		experimentIDs = []string{cfg.ExperimentID}
	}
	if len(experimentIDs) == 0 {
		return fmt.Errorf("experiment ID must be specified via --experiment-ids, --experiment-id or MLFLOW_EXPERIMENT_ID")
	}

	client, err := mlflow.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create MLflow client: %w", err)
	}

	runs, err := client.SearchRuns(context.Background(), mlflow.SearchOptions{
		ExperimentIDs: experimentIDs,
		Filter:        filter,
		OrderBy:       orderBy,
		MaxResults:    maxResults,
	})
	if err != nil {
		return err
	}

	return printRuns(cmd.OutOrStdout(), runs, output)
}

func runInspect(cmd *cobra.Command, args []string) error {
	fromFile, _ := cmd.Flags().GetString("from-file")
	output, _ := cmd.Flags().GetString("output")
	if err := validateOutput(output); err != nil {
		return err
	}

	payload, err := parser.ParsePayloadFile(fromFile)
	if err != nil {
		return err
	}

	// Accept a full runs/get response as well as the bare run object.
	if inner, ok := payload["run"].(map[string]any); ok {
		payload = inner
	}

	run, err := mlflow.RunFromPayload(payload)
	if err != nil {
		return fmt.Errorf("failed to parse run from %s: %w", fromFile, err)
	}

	return printRun(cmd.OutOrStdout(), run, output)
}

// processEscapeSequences processes common escape sequences in strings
func processEscapeSequences(s string) string {
	s = strings.ReplaceAll(s, "\\n", "\n")
	s = strings.ReplaceAll(s, "\\t", "\t")
	s = strings.ReplaceAll(s, "\\r", "\r")
	s = strings.ReplaceAll(s, "\\\\", "\\")
	return s
}
