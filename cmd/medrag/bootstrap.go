package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/medrag/internal/adapters/driven/ai"
	"github.com/custodia-labs/medrag/internal/adapters/driven/ai/guard"
	"github.com/custodia-labs/medrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/medrag/internal/adapters/driven/pdf"
	"github.com/custodia-labs/medrag/internal/adapters/driven/relay/redis"
	"github.com/custodia-labs/medrag/internal/adapters/driven/storage/filesystem"
	"github.com/custodia-labs/medrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/medrag/internal/adapters/driven/storage/minio"
	"github.com/custodia-labs/medrag/internal/adapters/driven/storage/qdrant"
	"github.com/custodia-labs/medrag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/medrag/internal/adapters/driving/cli"
	"github.com/custodia-labs/medrag/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
	"github.com/custodia-labs/medrag/internal/core/services"
	"github.com/custodia-labs/medrag/internal/eventbus"
	"github.com/custodia-labs/medrag/internal/logger"
	"github.com/custodia-labs/medrag/internal/normalisers/docx"
	pdfnormaliser "github.com/custodia-labs/medrag/internal/normalisers/pdf"
	"github.com/custodia-labs/medrag/internal/normalisers/xlsx"
	"github.com/custodia-labs/medrag/internal/postprocessors"
	"github.com/custodia-labs/medrag/internal/telemetry"
)

// closers releases resources in reverse order of acquisition.
type closers []func() error

func (c *closers) add(fn func() error) {
	*c = append(*c, fn)
}

func (c closers) close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// bootstrap wires configuration, storage, AI capabilities and the registry.
func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir, file.WithDotEnv(".env"))
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	if opts.SettingsOnly {
		return &cli.Services{Settings: settingsService}, nil
	}

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	if opts.DataDir != "" {
		settings.Storage.DataDir = opts.DataDir
	}
	for _, key := range configStore.Overrides() {
		logger.Debug("Config override from environment: %s", key)
	}

	var cleanup closers
	fail := func(err error) (*cli.Services, error) {
		if cerr := cleanup.close(); cerr != nil {
			logger.Warn("Cleanup after failed start: %v", cerr)
		}
		return nil, err
	}

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		logger.Warn("Metrics disabled: %v", err)
		metrics = nil
	}

	promptDir := ""
	if opts.ConfigDir != "" {
		promptDir = filepath.Join(opts.ConfigDir, "prompts")
	}
	prompts, err := file.NewPromptStore(promptDir)
	if err != nil {
		return fail(fmt.Errorf("opening prompt store: %w", err))
	}

	capabilities := ai.Init(ctx, *settings, ai.InitOptions{Prompts: prompts, Metrics: metrics})
	cleanup.add(func() error { capabilities.Close(); return nil })
	for _, w := range capabilities.Warnings {
		logger.Warn("%s", w)
	}

	docs, index, err := openStores(settings, &cleanup)
	if err != nil {
		return fail(err)
	}
	blobs, err := openBlobStore(ctx, settings)
	if err != nil {
		return fail(err)
	}

	pipeline, err := buildPipeline(settings.Pipeline)
	if err != nil {
		return fail(err)
	}

	bus := eventbus.New(eventbus.WithQueueSize(settings.Events.QueueSize))

	extractor := services.NewExtractionOrchestrator(
		capabilities.VisionService,
		pdf.New(),
		[]driven.TextExtractor{pdfnormaliser.New(), docx.New(), xlsx.New()},
		bus,
		services.WithExtractionWorkers(settings.Ingestion.ExtractionWorkers),
		services.WithExtractionMetrics(metrics),
	)
	indexer := services.NewIndexingPipeline(
		capabilities.EmbeddingService,
		bus,
		services.WithBatchSize(settings.Ingestion.BatchSize),
		services.WithRetryPolicy(settings.Ingestion.Retry),
		services.WithIndexingMetrics(metrics),
	)
	retriever := services.NewRetriever(
		capabilities.EmbeddingService,
		index,
		capabilities.LLMService,
		bus,
		services.WithTopK(settings.Retrieval.TopK),
		services.WithAnswerMaxTokens(settings.LLM.MaxTokens),
		services.WithRetrieverMetrics(metrics),
	)
	retriever.SetPromptStore(prompts)

	registry := services.NewRegistry(
		docs, blobs, index, bus, extractor, pipeline, indexer, retriever,
		services.WithMaxFileSize(settings.Ingestion.MaxFileSize),
		services.WithRegistryMetrics(metrics),
	)
	if err := registry.Recover(ctx); err != nil {
		return fail(fmt.Errorf("recovering documents: %w", err))
	}
	cleanup.add(registry.Close)

	if settings.Events.RedisURL != "" {
		if err := startRelay(ctx, bus, settings.Events, &cleanup); err != nil {
			logger.Warn("Event relay disabled: %v", err)
		}
	}

	return &cli.Services{
		Registry: registry,
		Settings: settingsService,
		Health:   healthFunc(settings, capabilities),
		Metrics:  metrics,
		Close:    cleanup.close,
	}, nil
}

// openStores opens the document store and vector index, sharing one
// sqlite database when both use it.
func openStores(settings *domain.AppSettings, cleanup *closers) (driven.DocumentStore, driven.VectorIndex, error) {
	var store *sqlite.Store
	sqliteStore := func() (*sqlite.Store, error) {
		if store != nil {
			return store, nil
		}
		s, err := sqlite.NewStore(settings.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		cleanup.add(s.Close)
		store = s
		return s, nil
	}

	var docs driven.DocumentStore
	switch settings.Storage.Documents {
	case domain.StoreBackendSQLite:
		s, err := sqliteStore()
		if err != nil {
			return nil, nil, err
		}
		docs = s.DocumentStore()
	default:
		docs = memory.NewDocumentStore()
	}

	var index driven.VectorIndex
	switch settings.VectorIndex.Backend {
	case domain.VectorBackendSQLite:
		s, err := sqliteStore()
		if err != nil {
			return nil, nil, err
		}
		index = s.VectorIndex()
	case domain.VectorBackendQdrant:
		index = qdrant.New(qdrant.Config{
			URL:    settings.VectorIndex.URL,
			APIKey: settings.VectorIndex.APIKey,
		})
	default:
		index = memory.NewVectorIndex()
	}
	cleanup.add(index.Close)

	return docs, index, nil
}

func openBlobStore(ctx context.Context, settings *domain.AppSettings) (driven.BlobStore, error) {
	switch settings.Storage.Blobs {
	case domain.BlobBackendFilesystem:
		root := settings.Storage.DataDir
		if root == "" {
			dir, err := file.DefaultDir()
			if err != nil {
				return nil, err
			}
			root = filepath.Join(dir, "data")
		}
		store, err := filesystem.NewBlobStore(filepath.Join(root, "uploads"))
		if err != nil {
			return nil, fmt.Errorf("opening upload directory: %w", err)
		}
		return store, nil
	case domain.BlobBackendMinIO:
		store, err := minio.NewBlobStore(ctx, settings.Storage.MinIO)
		if err != nil {
			return nil, fmt.Errorf("connecting to minio: %w", err)
		}
		return store, nil
	default:
		return memory.NewBlobStore(), nil
	}
}

func buildPipeline(cfg domain.PipelineConfig) (*postprocessors.Pipeline, error) {
	reg := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(reg)
	pipeline, err := postprocessors.BuildPipeline(reg, cfg)
	if err != nil {
		return nil, fmt.Errorf("building chunking pipeline: %w", err)
	}
	return pipeline, nil
}

// startRelay forwards every progress event to a Redis channel.
func startRelay(ctx context.Context, bus *eventbus.Bus, cfg domain.EventSettings, cleanup *closers) error {
	relay, err := redis.New(ctx, cfg.RedisURL, cfg.RedisChannel)
	if err != nil {
		return err
	}

	sub := bus.SubscribeWithSize(cfg.QueueSize)
	relayCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		relay.Run(relayCtx, sub.Events())
	}()

	cleanup.add(func() error {
		sub.Unsubscribe()
		cancel()
		<-done
		return relay.Close()
	})
	logger.Info("Relaying events to redis channel %s", relay.Channel())
	return nil
}

func healthFunc(settings *domain.AppSettings, capabilities *ai.InitResult) httpapi.HealthFunc {
	return func(context.Context) httpapi.HealthReport {
		report := httpapi.HealthReport{
			Version:       cli.Version(),
			VectorBackend: string(settings.VectorIndex.Backend),
			DocumentStore: string(settings.Storage.Documents),
			BlobStore:     string(settings.Storage.Blobs),
			Capabilities: map[string]httpapi.Capability{
				"embedding": capability(capabilities.EmbeddingService),
				"llm":       capability(capabilities.LLMService),
				"vision":    capability(capabilities.VisionService),
			},
		}
		if capabilities.EmbeddingService == nil || capabilities.LLMService == nil {
			report.Status = "degraded"
		}
		return report
	}
}

func capability(svc interface{ ModelName() string }) httpapi.Capability {
	if svc == nil {
		return httpapi.Capability{}
	}
	return httpapi.Capability{
		Configured: true,
		Model:      svc.ModelName(),
		Breaker:    guard.StateOf(svc),
	}
}
