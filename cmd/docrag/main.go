// Command docrag ingests documents into a chunk store and serves
// similarity search over them from the CLI and MCP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/docrag/internal/adapters/driven/ai"
	"github.com/custodia-labs/docrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docrag/internal/adapters/driven/executor"
	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/files"
	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docrag/internal/adapters/driving/cli"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/services"
	"github.com/custodia-labs/docrag/internal/extractors"
	"github.com/custodia-labs/docrag/internal/logger"
	"github.com/custodia-labs/docrag/internal/postprocessors"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// API keys may live in a .env file in the working directory.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	err := cli.Execute(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}

// bootstrap wires the adapters and services for one command invocation.
func bootstrap(_ context.Context, opts cli.Options) (*cli.Services, func(context.Context) error, error) {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return nil, nil, fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	settings, err := settingsService.Get()
	if err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		// Keep 'settings set' usable so the file can be repaired.
		logger.Warn("%v; using defaults until fixed", err)
		defaults := domain.DefaultAppSettings()
		defaults.Embedding = settings.Embedding
		defaults.Storage = settings.Storage
		settings = &defaults
	}

	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = settings.Storage.DataDir
	}
	if dataDir == "" {
		if dataDir, err = sqlite.DefaultDataDir(); err != nil {
			return nil, nil, err
		}
	}
	logger.Debug("Data directory: %s", dataDir)

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, nil, err
	}
	fileStore, err := files.NewStore(dataDir)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	pipeline, err := postprocessors.NewDefault(settings.Chunking)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	embedder, err := ai.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		logger.Warn("embedding provider unavailable: %v", err)
		embedder = nil
	}
	if embedder == nil {
		logger.Debug("No embedding provider configured")
	}

	pool := executor.NewPool(settings.Ingestion.Workers, executor.DefaultQueueSize)

	docStore := store.DocumentStore()
	chunkStore := store.ChunkStore()

	svcs := &cli.Services{
		Ingestion: services.NewIngestionService(
			docStore, chunkStore, fileStore,
			extractors.NewDefaultRegistry(),
			pipeline,
			embedder,
			pool,
			services.WithMaxUploadBytes(settings.Ingestion.MaxUploadBytes),
			services.WithContentTypeDetector(extractors.DetectContentType),
		),
		Document: services.NewDocumentService(docStore, chunkStore, fileStore),
		Search:   services.NewSearchService(chunkStore, embedder),
		Settings: settingsService,
	}

	closer := func(ctx context.Context) error {
		// Drain ingestion before closing what it writes to.
		poolErr := pool.Close(ctx)
		if embedder != nil {
			embedder.Close()
		}
		return errors.Join(poolErr, store.Close())
	}

	return svcs, closer, nil
}
