package mlflow

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/databricks/databricks-sdk-go"
	"github.com/databricks/databricks-sdk-go/httpclient"
	log "github.com/sirupsen/logrus"

	"github.com/imishinist/mlflow-runs/internal/config"
)

// regularServerToken satisfies the SDK's auth resolution for MLflow servers
// that do not check credentials.
const regularServerToken = "dummy-token-for-regular-mlflow"

var ErrRunNotFound = errors.New("run not found")

type Client struct {
	client     *databricks.WorkspaceClient
	apiClient  *httpclient.ApiClient
	config     *config.Config
	httpClient *http.Client
}

func NewClient(cfg *config.Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	databricksConfig, err := newDatabricksConfig(cfg)
	if err != nil {
		return nil, err
	}

	client, err := databricks.NewWorkspaceClient(databricksConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create MLflow client: %w", err)
	}

	apiClient, err := client.Config.NewApiClient()
	if err != nil {
		return nil, fmt.Errorf("failed to create MLflow API client: %w", err)
	}

	log.Debugf("using tracking server %s (databricks=%t)", cfg.TrackingURI, cfg.IsDatabricks())

	return &Client{
		client:     client,
		apiClient:  apiClient,
		config:     cfg,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

func newDatabricksConfig(cfg *config.Config) (*databricks.Config, error) {
	if !cfg.IsDatabricks() {
		return &databricks.Config{
			Host:  cfg.TrackingURI,
			Token: regularServerToken,
		}, nil
	}

	databricksConfig := &databricks.Config{}

	switch {
	case cfg.TrackingURI == "databricks":
		databricksConfig.Host = cfg.DatabricksHost
	case cfg.GetDatabricksProfile() != "":
		databricksConfig.Profile = cfg.GetDatabricksProfile()
	default:
		databricksConfig.Host = cfg.TrackingURI
	}

	// An explicit token wins over the profile's credentials.
	if cfg.DatabricksToken != "" {
		databricksConfig.Token = cfg.DatabricksToken
	}

	if databricksConfig.Host == "" && databricksConfig.Profile == "" {
		return nil, fmt.Errorf("Databricks host or profile is required when using Databricks MLflow. Set DATABRICKS_HOST environment variable, use a full Databricks URL as tracking URI, or specify a profile with databricks://{profile}")
	}

	return databricksConfig, nil
}
