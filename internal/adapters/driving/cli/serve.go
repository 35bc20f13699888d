package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/medrag/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/medrag/internal/adapters/driving/watch"
	"github.com/custodia-labs/medrag/internal/logger"
	"github.com/custodia-labs/medrag/internal/telemetry"
)

var (
	serveAddr        string
	serveOTLP        string
	serveSampleRatio float64
	serveWatchDir    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the document API under /api: upload, analyze, chat, document
listing and deletion, health, and a server-sent event stream of ingestion
progress at /api/events.

With --watch, files dropped into the directory are ingested automatically.`,
	Example: `  medrag serve --addr :8000
  medrag serve --watch ~/inbox --otlp-endpoint localhost:4317`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from settings, :8000)")
	serveCmd.Flags().StringVar(&serveOTLP, "otlp-endpoint", "", "OTLP gRPC endpoint for traces")
	serveCmd.Flags().Float64Var(&serveSampleRatio, "sample-ratio", 1, "trace sampling ratio")
	serveCmd.Flags().StringVar(&serveWatchDir, "watch", "", "inbox directory to ingest new files from")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	reg, err := requireRegistry()
	if err != nil {
		return err
	}
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	ctx := cmd.Context()

	cfg := httpapi.Config{
		Addr:           settings.Server.Addr,
		AllowedOrigins: settings.Server.AllowedOrigins,
		MaxUploadBytes: settings.Ingestion.MaxFileSize,
	}
	if appServices != nil {
		cfg.Health = appServices.Health
		cfg.Metrics = appServices.Metrics
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	endpoint := settings.Server.OTLPEndpoint
	if serveOTLP != "" {
		endpoint = serveOTLP
	}
	if endpoint != "" {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:    telemetry.ServiceName,
			ServiceVersion: version,
			Endpoint:       endpoint,
			SampleRatio:    serveSampleRatio,
		})
		if err != nil {
			return fmt.Errorf("failed to start tracing: %w", err)
		}
		defer func() {
			if err := shutdown(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("Trace shutdown: %v", err)
			}
		}()
		cfg.Tracing = true
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpapi.New(reg, cfg).Run(gctx)
	})

	if serveWatchDir != "" {
		w := watch.New(reg, serveWatchDir, watch.WithAsync(true))
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	cmd.Printf("medrag %s listening on %s\n", version, cfg.Addr)
	return g.Wait()
}
