package mlflow

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/databricks/databricks-sdk-go/httpclient"
	log "github.com/sirupsen/logrus"
)

const (
	mlflowArtifactsScheme = "mlflow-artifacts:"
	dbfsTrackingPrefix    = "dbfs:/databricks/mlflow-tracking/"
)

type CredentialsForWriteRequest struct {
	RunID string   `json:"run_id"`
	Path  []string `json:"path"`
}

type CredentialsForWriteResponse struct {
	CredentialInfos []ArtifactCredentialInfo `json:"credential_infos"`
}

// ArtifactCredentialInfo is a signed upload target returned by credentials-for-write.
type ArtifactCredentialInfo struct {
	RunID     string       `json:"run_id"`
	Path      string       `json:"path"`
	SignedURI string       `json:"signed_uri"`
	Headers   []HTTPHeader `json:"headers"`
	Type      string       `json:"type"`
}

type HTTPHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// artifactRoot is a run's artifact_uri broken into the pieces the uploaders need.
type artifactRoot struct {
	kind         string // mlflow-artifacts, dbfs or local
	experimentID string
	runID        string
	localPath    string
}

func parseArtifactRoot(uri string) (artifactRoot, error) {
	switch {
	case strings.HasPrefix(uri, mlflowArtifactsScheme):
		// mlflow-artifacts:/0/47485d6a0b734e37aaddc60be04b7371/artifacts
		parts := strings.Split(strings.Trim(strings.TrimPrefix(uri, mlflowArtifactsScheme), "/"), "/")
		if len(parts) < 3 || parts[0] == "" || parts[1] == "" {
			return artifactRoot{}, fmt.Errorf("invalid mlflow-artifacts URI format: %s", uri)
		}
		return artifactRoot{kind: "mlflow-artifacts", experimentID: parts[0], runID: parts[1]}, nil

	case strings.HasPrefix(uri, "dbfs:/"):
		// dbfs:/databricks/mlflow-tracking/{experiment_id}/{run_id}/artifacts
		if !strings.HasPrefix(uri, dbfsTrackingPrefix) {
			return artifactRoot{}, fmt.Errorf("invalid DBFS artifact URI format: %s", uri)
		}
		parts := strings.Split(strings.TrimPrefix(uri, dbfsTrackingPrefix), "/")
		if len(parts) < 2 || parts[1] == "" {
			return artifactRoot{}, fmt.Errorf("run ID not found in DBFS URI: %s", uri)
		}
		return artifactRoot{kind: "dbfs", experimentID: parts[0], runID: parts[1]}, nil

	case strings.HasPrefix(uri, "file://"), strings.HasPrefix(uri, "/"):
		return artifactRoot{kind: "local", localPath: strings.TrimPrefix(uri, "file://")}, nil

	default:
		return artifactRoot{}, fmt.Errorf("unsupported artifact URI scheme: %s", uri)
	}
}

// UploadArtifact uploads a file as an artifact to the specified run
func (c *Client) UploadArtifact(ctx context.Context, runID, filePath, artifactPath string) error {
	artifactURI, err := c.getArtifactURI(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get artifact URI: %w", err)
	}

	root, err := parseArtifactRoot(artifactURI)
	if err != nil {
		return err
	}

	if artifactPath == "" {
		artifactPath = filepath.Base(filePath)
	}

	log.Debugf("uploading %s to %s as %s", filePath, artifactURI, artifactPath)

	switch root.kind {
	case "mlflow-artifacts":
		return c.uploadToMLflowArtifacts(ctx, root, filePath, artifactPath)
	case "dbfs":
		return c.uploadToDBFS(ctx, root, filePath, artifactPath)
	default:
		return copyToLocalFS(root.localPath, filePath, artifactPath)
	}
}

func (c *Client) getArtifactURI(ctx context.Context, runID string) (string, error) {
	run, err := c.GetRun(ctx, runID)
	if err != nil {
		return "", err
	}
	if run.Info() == nil || run.Info().ArtifactURI == "" {
		return "", fmt.Errorf("artifact URI not found for run %s", runID)
	}
	return run.Info().ArtifactURI, nil
}

func openFileWithInfo(filePath string) (*os.File, os.FileInfo, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}

	fileInfo, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to get file info: %w", err)
	}

	return file, fileInfo, nil
}

// uploadToMLflowArtifacts PUTs the file to the tracking server's artifact proxy.
func (c *Client) uploadToMLflowArtifacts(ctx context.Context, root artifactRoot, filePath, artifactPath string) error {
	file, fileInfo, err := openFileWithInfo(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	baseURL := strings.TrimSuffix(c.config.TrackingURI, "/")
	url := fmt.Sprintf("%s/api/2.0/mlflow-artifacts/artifacts/%s/%s/artifacts/%s",
		baseURL, root.experimentID, root.runID, path.Clean(filepath.ToSlash(artifactPath)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, file)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.ContentLength = fileInfo.Size()
	req.Header.Set("Content-Type", "application/octet-stream")
	c.addAuthHeaders(req)

	if err := c.send(req); err != nil {
		return fmt.Errorf("MLflow Artifacts Service upload failed: %w", err)
	}
	return nil
}

func copyToLocalFS(rootPath, filePath, artifactPath string) error {
	localPath := filepath.Join(rootPath, filepath.FromSlash(artifactPath))

	dir := filepath.Dir(localPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	sourceFile, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer sourceFile.Close()

	destFile, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}

	return nil
}

func (c *Client) addAuthHeaders(req *http.Request) {
	if !c.config.IsDatabricks() {
		return
	}
	if c.client != nil && c.client.Config != nil && c.client.Config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.client.Config.Token)
	} else if c.config.DatabricksToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.DatabricksToken)
	}
}

// uploadToDBFS asks the Databricks artifacts API for a signed URI and uploads there.
func (c *Client) uploadToDBFS(ctx context.Context, root artifactRoot, filePath, artifactPath string) error {
	if !c.config.IsDatabricks() {
		return fmt.Errorf("non-Databricks MLflow servers not supported for DBFS artifacts")
	}

	var response CredentialsForWriteResponse
	err := c.apiClient.Do(ctx, http.MethodPost, "/api/2.0/mlflow/artifacts/credentials-for-write",
		httpclient.WithRequestData(CredentialsForWriteRequest{RunID: root.runID, Path: []string{artifactPath}}),
		httpclient.WithResponseUnmarshal(&response),
	)
	if err != nil {
		return fmt.Errorf("failed to get write credentials: %w", err)
	}
	if len(response.CredentialInfos) == 0 {
		return fmt.Errorf("no credentials returned for path: %s", artifactPath)
	}

	credential := response.CredentialInfos[0]
	if err := c.uploadToSignedURI(ctx, credential, filePath); err != nil {
		return fmt.Errorf("failed to upload to %s signed URI: %w", credential.Type, err)
	}
	return nil
}

func (c *Client) uploadToSignedURI(ctx context.Context, credential ArtifactCredentialInfo, filePath string) error {
	file, fileInfo, err := openFileWithInfo(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	req, err := newSignedURIRequest(ctx, credential, file, fileInfo.Size())
	if err != nil {
		return err
	}
	return c.send(req)
}

func newSignedURIRequest(ctx context.Context, credential ArtifactCredentialInfo, body io.Reader, contentLength int64) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, credential.SignedURI, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Cloud stores reject chunked uploads, so the length must be explicit.
	req.ContentLength = contentLength
	req.Header.Set("Content-Type", "application/octet-stream")
	if credential.Type == "AZURE_SAS_URI" {
		req.Header.Set("x-ms-blob-type", "BlockBlob")
	}

	for _, header := range credential.Headers {
		req.Header.Set(header.Name, header.Value)
	}

	return req, nil
}

func (c *Client) send(req *http.Request) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}
