package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imishinist/mlflow-runs/internal/config"
	"github.com/imishinist/mlflow-runs/internal/mlflow"
	"github.com/imishinist/mlflow-runs/internal/models"
	"github.com/imishinist/mlflow-runs/internal/parser"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Log parameters, metrics, and artifacts",
	Long:  "Log parameters, metrics, and artifacts to MLflow runs",
}

var logParamsCmd = &cobra.Command{
	Use:   "params",
	Short: "Log parameters to MLflow run",
	Long: `Log parameters to an existing MLflow run.
Parameter files use the tracking API's run data shape: {"params": [{"key": ..., "value": ...}]}.`,
	RunE: logParams,
}

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.AddCommand(logParamsCmd)

	// Params command flags
	logParamsCmd.Flags().String("run-id", "", "Run ID to log parameters to (required)")
	logParamsCmd.Flags().StringArray("param", []string{}, "Parameters in key=value format")
	logParamsCmd.Flags().String("from-file", "", "Load parameters from file (JSON/YAML)")
	logParamsCmd.MarkFlagRequired("run-id")
}

func logParams(cmd *cobra.Command, args []string) error {
	runID, _ := cmd.Flags().GetString("run-id")
	paramFlags, _ := cmd.Flags().GetStringArray("param")
	fromFile, _ := cmd.Flags().GetString("from-file")

	if len(paramFlags) == 0 && fromFile == "" {
		return fmt.Errorf("either --param or --from-file must be specified")
	}

	flagParams, err := parseKeyValues("parameter", paramFlags)
	if err != nil {
		return err
	}
	params := mlflow.ParamsFromMap(flagParams)

	if fromFile != "" {
		fileParams, err := loadParamsFile(fromFile)
		if err != nil {
			return err
		}
		params = append(params, fileParams...)
	}

	cfg := config.New()
	client, err := mlflow.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create MLflow client: %w", err)
	}

	if err := client.LogParams(context.Background(), runID, params); err != nil {
		return fmt.Errorf("failed to log parameters: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Successfully logged %d parameters\n", len(params))
	for _, param := range params {
		fmt.Fprintf(out, "  %s: %s\n", param.Key, param.Value)
	}

	return nil
}

// loadParamsFile reads the params of a run-data payload file, sorted by key.
func loadParamsFile(path string) ([]models.RunParam, error) {
	payload, err := parser.ParsePayloadFile(path)
	if err != nil {
		return nil, err
	}

	data, err := models.NewRunData(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to parse parameters file: %w", err)
	}

	params, ok := data.ParamMap()
	if !ok {
		return nil, fmt.Errorf("failed to parse parameters file: %w", &models.MissingFieldError{Field: "params"})
	}
	return sortedParams(params), nil
}
