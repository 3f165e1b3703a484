package rationsmart

import (
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

type BackendConfig struct {
	BaseURL          string        `env:"RATIONSMART_BACKEND_URL,default=https://ration-smart-backend-production.up.railway.app"`
	APIKey           string        `env:"RATIONSMART_API_KEY"`
	Timeout          time.Duration `env:"RATIONSMART_TIMEOUT,default=30s"`
	OptimizerTimeout time.Duration `env:"RATIONSMART_OPTIMIZER_TIMEOUT,default=60s"`
	BreakerFailures  uint32        `env:"RATIONSMART_BREAKER_FAILURES,default=5"`
	BreakerOpenFor   time.Duration `env:"RATIONSMART_BREAKER_OPEN_FOR,default=30s"`

	// ServiceAccount is sent as the optimizer's user id.
	ServiceAccount string `env:"RATIONSMART_SERVICE_ACCOUNT,default=rationsmart-tools"`
}

type ServerConfig struct {
	Port               string `env:"PORT,default=8080"`
	ArchiveDir         string `env:"RATIONSMART_ARCHIVE_DIR"`
	ArchiveS3Bucket    string `env:"RATIONSMART_ARCHIVE_S3_BUCKET"`
	ArchiveS3Prefix    string `env:"RATIONSMART_ARCHIVE_S3_PREFIX,default=optimizer-responses/"`
	FollowUpWebhookURL string `env:"RATIONSMART_FOLLOWUP_WEBHOOK_URL"`
	DiagnosticsPath    string `env:"RATIONSMART_DIAGNOSTICS_PATH"`
	Debug              bool   `env:"RATIONSMART_DEBUG,default=false"`
}

// LoadBackendConfig decodes the backend settings from the environment. The
// bearer credential is mandatory; without it every backend call would be
// rejected, so startup fails with ErrConfigurationMissing instead.
func LoadBackendConfig() (BackendConfig, error) {
	var cfg BackendConfig
	if err := envdecode.Decode(&cfg); err != nil {
		return BackendConfig{}, fmt.Errorf("decode backend config: %w", err)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return BackendConfig{}, fmt.Errorf("%w: RATIONSMART_API_KEY", ErrConfigurationMissing)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return BackendConfig{}, fmt.Errorf("%w: RATIONSMART_BACKEND_URL", ErrConfigurationMissing)
	}
	return cfg, nil
}

func LoadServerConfig() (ServerConfig, error) {
	var cfg ServerConfig
	if err := envdecode.Decode(&cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("decode server config: %w", err)
	}
	return cfg, nil
}
