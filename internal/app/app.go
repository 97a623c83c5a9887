package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/config"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/notify"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/pipeline"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/retry"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/services"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/store"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/store/primary"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/store/vector"
)

// App holds the wired dependency graph shared by the CLI, the HTTP server and
// the worker.
type App struct {
	Config   *config.Config
	Notifier *notify.Bus

	JobClient store.JobClient

	TaskStore     store.TaskStore
	PipelineStore store.PipelineStore
	DocumentStore store.DocumentStore
	UsageStore    store.UsageStore
	VectorStore   store.EmbeddingStore

	EmbeddingService  store.EmbeddingService
	CompletionService services.CompletionService

	RetryPolicy     *retry.Policy
	PipelineService *services.PipelineService
	Orchestrator    *pipeline.Orchestrator
}

func NewApp(cfg *config.Config) (*App, error) {
	ctx := context.Background()
	app := &App{Config: cfg, Notifier: notify.NewBus()}

	if err := app.initPrimaryStore(ctx); err != nil {
		return nil, err
	}
	if err := app.initJobClient(); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}
	if err := app.initVectorStore(ctx); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}
	if err := app.initEmbeddingService(ctx); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}
	if err := app.initCompletionService(); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}
	app.initPipeline()

	log.Info("Application initialization complete.")
	return app, nil
}

func (a *App) initPrimaryStore(ctx context.Context) error {
	ps, err := primary.NewPrimaryStore(ctx, a.Config.Database.Primary.DSN, a.Notifier)
	if err != nil {
		return fmt.Errorf("init primary store: %w", err)
	}
	a.TaskStore = ps
	a.PipelineStore = ps
	a.DocumentStore = ps
	a.UsageStore = ps
	return nil
}

func (a *App) initJobClient() error {
	jc, err := store.NewAsynqJobClient(a.Config.Redis.Address, a.Config.Redis.Password, a.Config.Redis.DB)
	if err != nil {
		return fmt.Errorf("init job client: %w", err)
	}
	a.JobClient = jc
	return nil
}

func (a *App) initVectorStore(ctx context.Context) error {
	vs, err := vector.NewStore(ctx, a.Config.Database.Vector.DSN)
	if err != nil {
		return fmt.Errorf("init postgres vector store: %w", err)
	}
	a.VectorStore = vs
	return nil
}

func (a *App) initEmbeddingService(ctx context.Context) error {
	var providers []services.EmbeddingProvider
	cfg := a.Config

	if cfg.Embedding.OpenaiApiKey != "" {
		openaiProvider, err := services.NewOpenAIProvider(
			cfg.Embedding.OpenaiApiKey,
			cfg.Embedding.Model,
			a.UsageStore,
			cfg.Pricing["openai"],
		)
		if err != nil {
			log.Warnf("Failed to initialize OpenAI embedding provider: %v", err)
		} else {
			log.Infof("Initialized OpenAI embedding provider (Model: %s)", cfg.Embedding.Model)
			providers = append(providers, openaiProvider)
		}
	}
	if cfg.Embedding.GeminiModelName != "" {
		geminiProvider, err := services.NewGeminiProvider(ctx,
			cfg.Embedding.GoogleApiKey, cfg.Embedding.GeminiModelName, "")
		if err != nil {
			log.Warnf("Failed to initialize Gemini embedding provider: %v", err)
		} else {
			log.Infof("Initialized Gemini embedding provider (Model: %s)", cfg.Embedding.GeminiModelName)
			providers = append(providers, geminiProvider)
		}
	}
	if len(providers) == 0 {
		log.Warn("No embedding providers configured. Using noop provider; embeddings will be zero vectors.")
		providers = append(providers, &services.NoopEmbeddingProvider{Dim: cfg.Embedding.Dimension})
	}

	embeddingService, err := services.NewFallbackEmbeddingService(providers)
	if err != nil {
		return fmt.Errorf("init embedding service: %w", err)
	}
	a.EmbeddingService = embeddingService
	return nil
}

func (a *App) initCompletionService() error {
	cfg := a.Config
	switch cfg.Completion.Provider {
	case "openai":
		a.CompletionService = services.NewOpenAICompletionService(
			cfg.Embedding.OpenaiApiKey,
			cfg.Completion.Model,
			a.UsageStore,
			cfg.Pricing["openai"],
		)
	case "gemini":
		completer, err := services.NewGeminiProvider(context.Background(),
			cfg.Embedding.GoogleApiKey, cfg.Embedding.GeminiModelName, cfg.Completion.Model)
		if err != nil {
			return fmt.Errorf("init gemini completion provider: %w", err)
		}
		a.CompletionService = completer
	default:
		log.Warn("No completion provider configured. Using noop completion service.")
		a.CompletionService = &services.NoopCompletionService{}
	}
	return nil
}

func (a *App) initPipeline() {
	cfg := a.Config
	a.RetryPolicy = retry.ByName(cfg.Pipeline.RetryPolicy)

	deps := &pipeline.Deps{
		Pipelines:      a.PipelineStore,
		Documents:      a.DocumentStore,
		Embeddings:     a.VectorStore,
		Embedder:       a.EmbeddingService,
		Completer:      a.CompletionService,
		Notifier:       a.Notifier,
		ChunkMaxTokens: cfg.Chunking.MaxTokens,
		ChunkOverlap:   cfg.Chunking.Overlap,
		DocConcurrency: cfg.Pipeline.DocConcurrency,
	}
	executor := pipeline.NewExecutor(deps, time.Duration(cfg.Pipeline.StepTimeoutSeconds)*time.Second)

	a.Orchestrator = &pipeline.Orchestrator{
		Tasks:     a.TaskStore,
		Pipelines: a.PipelineStore,
		Executor:  executor,
		Policy:    a.RetryPolicy,
		Notifier:  a.Notifier,
	}
	a.PipelineService = &services.PipelineService{
		Tasks:     a.TaskStore,
		Pipelines: a.PipelineStore,
		Documents: a.DocumentStore,
		Jobs:      a.JobClient,
		Policy:    a.RetryPolicy,
	}
}

// Close releases the app's connections.
func (a *App) Close() {
	a.cleanupPartialInit()
	if ps, ok := a.TaskStore.(*primary.StoreImpl); ok {
		ps.Close()
	}
}

func (a *App) cleanupPartialInit() {
	if a.JobClient != nil {
		a.JobClient.Close()
	}
	if a.VectorStore != nil {
		a.VectorStore.Close()
	}
	if cs, ok := a.CompletionService.(interface{ Close() error }); ok && cs != nil {
		if err := cs.Close(); err != nil {
			log.Errorf("Error closing CompletionService: %v", err)
		}
	}
}
