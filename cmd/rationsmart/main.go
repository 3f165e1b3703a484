package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rationsmart"
	"rationsmart/app"
	"rationsmart/httpapi"
	"rationsmart/mcpserver"
)

var (
	verbose bool
	port    string
)

var rootCmd = &cobra.Command{
	Use:   "rationsmart",
	Short: "RationSmart diet tools for conversational agents",
	Long: `Exposes the RationSmart backend (countries, cow profiles, least-cost diet
optimization and diet follow-ups) as agent tools over MCP and HTTP.

Configuration is read from the environment; RATIONSMART_API_KEY is required.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tools over HTTP (/tools, /tools/call, /mcp)",
	RunE:  runServe,
}

var stdioCmd = &cobra.Command{
	Use:   "stdio",
	Short: "Serve the tools to a single agent over MCP on stdin/stdout",
	RunE:  runStdio,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	serveCmd.Flags().StringVar(&port, "port", "", "Listen port (default: $PORT or 8080)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stdioCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOtel, err := rationsmart.InitOtel(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
		return err
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	a, err := app.New(ctx, app.Options{})
	if err != nil {
		slog.Error("SETUP: Failed to wire tools", "error", err)
		return err
	}
	defer closeApp(a)
	debugLogging(a.Server.Debug)

	addr := net.JoinHostPort("", a.Server.Port)
	if port != "" {
		addr = net.JoinHostPort("", port)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewRouter(httpapi.Options{Registry: a.Registry}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("SERVER: Listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("SERVER: Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runStdio(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOtel, err := rationsmart.InitOtel(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	// stdout carries the protocol stream.
	a, err := app.New(ctx, app.Options{DiagnosticsWriter: os.Stderr})
	if err != nil {
		slog.Error("SETUP: Failed to wire tools", "error", err)
		return err
	}
	defer closeApp(a)
	debugLogging(a.Server.Debug)

	return mcpserver.ServeStdio(ctx, a.Registry)
}

func debugLogging(enabled bool) {
	if enabled {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
}

func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		slog.Error("SETUP: Failed to flush diagnostics", "error", err)
	}
}
