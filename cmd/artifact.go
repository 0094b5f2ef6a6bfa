package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/imishinist/mlflow-runs/internal/config"
	"github.com/imishinist/mlflow-runs/internal/mlflow"
)

var logArtifactCmd = &cobra.Command{
	Use:   "artifact",
	Short: "Log artifact to MLflow run",
	Long: `Log a file as an artifact to an MLflow run.
The file will be uploaded with its original filename unless --artifact-path is specified.
The upload target is taken from the run's artifact_uri (mlflow-artifacts:/, dbfs:/ or a local path).`,
	Example: `  # Upload a file with its original name
  mlflow-cli log artifact --run-id <run-id> --file model.pkl

  # Upload a file with a custom artifact path
  mlflow-cli log artifact --run-id <run-id> --file model.pkl --artifact-path models/final_model.pkl

  # Upload multiple files
  mlflow-cli log artifact --run-id <run-id> --file model.pkl --file config.yaml`,
	RunE: logArtifact,
}

func init() {
	logCmd.AddCommand(logArtifactCmd)

	logArtifactCmd.Flags().String("run-id", "", "Run ID to upload artifacts to (required)")
	logArtifactCmd.Flags().StringSlice("file", []string{}, "File path to upload (can be specified multiple times)")
	logArtifactCmd.Flags().String("artifact-path", "", "Custom artifact path (only valid when uploading a single file)")
	logArtifactCmd.MarkFlagRequired("run-id")
	logArtifactCmd.MarkFlagRequired("file")
}

func logArtifact(cmd *cobra.Command, args []string) error {
	runID, _ := cmd.Flags().GetString("run-id")
	files, _ := cmd.Flags().GetStringSlice("file")
	artifactPath, _ := cmd.Flags().GetString("artifact-path")

	if len(files) == 0 {
		return fmt.Errorf("at least one file must be specified")
	}
	if len(files) > 1 && artifactPath != "" {
		return fmt.Errorf("--artifact-path can only be used when uploading a single file")
	}

	cfg := config.New()
	client, err := mlflow.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create MLflow client: %w", err)
	}

	ctx := context.Background()
	successCount := 0

	for _, filePath := range files {
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			log.Warnf("file not found: %s", filePath)
			continue
		}

		targetPath := artifactPath
		if targetPath == "" {
			targetPath = filepath.Base(filePath)
		}

		if err := client.UploadArtifact(ctx, runID, filePath, targetPath); err != nil {
			log.Warnf("failed to upload %s: %v", filePath, err)
			continue
		}
		successCount++
	}

	if successCount == 0 {
		return fmt.Errorf("failed to upload any artifacts")
	}

	out := cmd.OutOrStdout()
	if len(files) == 1 {
		fmt.Fprintf(out, "Successfully uploaded artifact: %s\n", files[0])
		if artifactPath != "" {
			fmt.Fprintf(out, "  Artifact path: %s\n", artifactPath)
		} else {
			fmt.Fprintf(out, "  Artifact path: %s\n", filepath.Base(files[0]))
		}
	} else {
		fmt.Fprintf(out, "Successfully uploaded %d/%d artifacts\n", successCount, len(files))
	}

	return nil
}
