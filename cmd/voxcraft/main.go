// Command voxcraft runs the VoxCraft service: a conversational
// text→image→3D generation pipeline with per-user sessions backed by
// hybrid short/long-term memory.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/voxforge/voxcraft/internal/config"
	"github.com/voxforge/voxcraft/internal/llm"
	"github.com/voxforge/voxcraft/internal/memory"
	"github.com/voxforge/voxcraft/internal/notify"
	"github.com/voxforge/voxcraft/internal/pipeline"
	"github.com/voxforge/voxcraft/internal/server"
	"github.com/voxforge/voxcraft/internal/session"
	"github.com/voxforge/voxcraft/internal/storage"
	"github.com/voxforge/voxcraft/internal/storage/postgres"
	"github.com/voxforge/voxcraft/internal/storage/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	flag.Parse()

	cfg := loadConfig(*configPath)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
		log.Fatalf("failed to create data directory: %v", err)
	}
	dsn := filepath.Join(cfg.Storage.DataPath, "voxcraft.db")

	// LLM collaborators: one client per model.
	generator := llm.NewOllamaClient(llm.OllamaConfig{
		BaseURL: cfg.LLM.OllamaURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})
	embedder := llm.NewOllamaClient(llm.OllamaConfig{
		BaseURL: cfg.LLM.OllamaURL,
		Model:   cfg.LLM.EmbeddingModel,
		Timeout: cfg.LLM.Timeout,
	})

	longTerm := openLongTerm(ctx, cfg, dsn, embedder)
	defer func() { _ = longTerm.Close() }()

	shortTerm := memory.OpenShortTerm(dsn, cfg.ShortTermTTL())
	defer func() { _ = shortTerm.Close() }()
	if shortTerm.Degraded() {
		log.Printf("short-term memory running in degraded in-process mode")
	}

	sessions := session.NewManager(shortTerm, longTerm, cfg.SessionTimeout())

	enhancer := llm.NewPromptEnhancer(generator)
	if cfg.LLM.PromptTemplatePath != "" {
		watcher := notify.NewTemplateWatcher(cfg.LLM.PromptTemplatePath, enhancer.SetInstruction)
		if err := watcher.Start(); err != nil {
			log.Printf("prompt template watcher disabled: %v", err)
		} else {
			defer watcher.Stop()
		}
	}

	sink, err := pipeline.NewFSArtifactSink(cfg.Storage.OutputPath)
	if err != nil {
		log.Fatalf("failed to create artifact sink: %v", err)
	}

	orchestrator := pipeline.NewOrchestrator(
		sessions,
		enhancer,
		pipeline.NewHTTPImageClient(cfg.Pipeline.TextToImageURL, cfg.Pipeline.ImageTimeout),
		pipeline.NewHTTPModelClient(cfg.Pipeline.ImageTo3DURL, cfg.Pipeline.ModelTimeout),
		sink,
	)

	addr, err := server.Start(ctx, cfg, orchestrator, sessions)
	if err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
	log.Printf("voxcraft ready on %s (storage engine: %s)", addr, cfg.Storage.Engine)

	<-ctx.Done()
	log.Printf("shutting down")
}

func loadConfig(path string) *config.Config {
	if path == "" {
		return config.Load()
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// openLongTerm selects the long-term backend by configured engine.
func openLongTerm(ctx context.Context, cfg *config.Config, dsn string, embedder storage.Embedder) storage.LongTermStore {
	switch cfg.Storage.Engine {
	case "postgres":
		store, err := postgres.NewLongTermIndex(ctx, cfg.Storage.PostgresDSN, embedder)
		if err != nil {
			log.Fatalf("failed to open postgres long-term store: %v", err)
		}
		return store
	default:
		db, err := sqlite.Open(dsn)
		if err != nil {
			log.Fatalf("failed to open sqlite database: %v", err)
		}
		store, err := sqlite.NewLongTermIndex(ctx, db, embedder)
		if err != nil {
			log.Fatalf("failed to initialise long-term index: %v", err)
		}
		return store
	}
}
