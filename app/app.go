// Package app assembles the tool registry from configuration. The binaries
// under cmd/ share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"rationsmart"
	"rationsmart/backend"
	"rationsmart/country"
	"rationsmart/diet"
	"rationsmart/notify"
	"rationsmart/ownership"
	"rationsmart/storage"
	"rationsmart/tools"
)

// App holds the wired registry and everything that must be released with it.
type App struct {
	Registry *tools.Registry
	Server   rationsmart.ServerConfig

	closers []func() error
}

type Options struct {
	// DiagnosticsWriter receives diagnostics when no diagnostics path is
	// configured. Defaults to stdout.
	DiagnosticsWriter io.Writer
	// HTTPClient overrides the backend and webhook client.
	HTTPClient rationsmart.HTTPClient
}

// New reads the environment and wires the backend gateway, the country
// resolver, the ownership verifier, the diet orchestrator and the follow-up
// service into a registry.
func New(ctx context.Context, opts Options) (*App, error) {
	backendCfg, err := rationsmart.LoadBackendConfig()
	if err != nil {
		return nil, err
	}
	serverCfg, err := rationsmart.LoadServerConfig()
	if err != nil {
		return nil, err
	}
	return Wire(ctx, backendCfg, serverCfg, opts)
}

// Wire builds the App from explicit configuration.
func Wire(ctx context.Context, backendCfg rationsmart.BackendConfig, serverCfg rationsmart.ServerConfig, opts Options) (*App, error) {
	a := &App{Server: serverCfg}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	diagnostics, err := a.diagnosticsSink(serverCfg, opts)
	if err != nil {
		return nil, err
	}

	gateway, err := backend.NewGateway(backend.GatewayOpts{
		BaseURL:         backendCfg.BaseURL,
		APIKey:          backendCfg.APIKey,
		HTTPClient:      httpClient,
		Timeout:         backendCfg.Timeout,
		BreakerFailures: backendCfg.BreakerFailures,
		BreakerOpenFor:  backendCfg.BreakerOpenFor,
	})
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}
	client := backend.NewClient(gateway, backend.ClientOpts{OptimizerTimeout: backendCfg.OptimizerTimeout})

	countries := country.NewResolver(country.NewCache(client, country.CacheOpts{}), diagnostics)
	verifier := ownership.NewVerifier(client)

	archive, err := newArchive(ctx, serverCfg)
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}

	var notifier diet.Notifier
	if serverCfg.FollowUpWebhookURL != "" {
		notifier = notify.NewClient(serverCfg.FollowUpWebhookURL, httpClient)
		slog.Info("SETUP: Follow-up notifications enabled")
	}

	a.Registry = tools.NewRegistry(tools.Deps{
		Backend:   client,
		Countries: countries,
		Verifier:  verifier,
		Diets: diet.NewOrchestrator(diet.OrchestratorOpts{
			Backend:        client,
			Countries:      countries,
			Verifier:       verifier,
			Archive:        archive,
			Diagnostics:    diagnostics,
			ServiceAccount: backendCfg.ServiceAccount,
			Debug:          serverCfg.Debug,
		}),
		FollowUps: diet.NewFollowUps(diet.FollowUpsOpts{
			Backend:     client,
			Verifier:    verifier,
			Notifier:    notifier,
			Diagnostics: diagnostics,
		}),
	}, tools.RegistryOpts{Diagnostics: diagnostics})

	slog.Info("SETUP: Tool registry initialized", "backend_url", backendCfg.BaseURL, "tools", len(a.Registry.GetTools()))
	return a, nil
}

// Close flushes diagnostics and releases files.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) diagnosticsSink(cfg rationsmart.ServerConfig, opts Options) (rationsmart.DiagnosticsSink, error) {
	if cfg.DiagnosticsPath == "" {
		if opts.DiagnosticsWriter != nil {
			return rationsmart.NewWriterDiagnosticsSink(opts.DiagnosticsWriter), nil
		}
		return rationsmart.NewStdoutDiagnosticsSink(), nil
	}
	sink, cleanup, err := rationsmart.NewFileDiagnosticsSink(cfg.DiagnosticsPath)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, cleanup)
	return sink, nil
}

// newArchive returns nil when archiving is not configured. S3 wins over a
// local directory.
func newArchive(ctx context.Context, cfg rationsmart.ServerConfig) (storage.Archive, error) {
	switch {
	case cfg.ArchiveS3Bucket != "":
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		slog.Info("SETUP: Archiving optimizer responses to S3", "bucket", cfg.ArchiveS3Bucket, "prefix", cfg.ArchiveS3Prefix)
		return storage.NewS3Archive(s3.NewFromConfig(awsCfg), cfg.ArchiveS3Bucket, cfg.ArchiveS3Prefix), nil
	case cfg.ArchiveDir != "":
		slog.Info("SETUP: Archiving optimizer responses to disk", "dir", cfg.ArchiveDir)
		return storage.NewFileArchive(cfg.ArchiveDir), nil
	default:
		return nil, nil
	}
}
