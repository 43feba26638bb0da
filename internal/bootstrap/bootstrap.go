package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/document-qa-bot/internal/config"
	"github.com/kirillkom/document-qa-bot/internal/core/domain"
	"github.com/kirillkom/document-qa-bot/internal/core/ports"
	"github.com/kirillkom/document-qa-bot/internal/core/usecase"
	"github.com/kirillkom/document-qa-bot/internal/infrastructure/chunking"
	"github.com/kirillkom/document-qa-bot/internal/infrastructure/extractor"
	"github.com/kirillkom/document-qa-bot/internal/infrastructure/llm/langchain"
	"github.com/kirillkom/document-qa-bot/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/document-qa-bot/internal/infrastructure/queue/nats"
	"github.com/kirillkom/document-qa-bot/internal/infrastructure/repository/memory"
	"github.com/kirillkom/document-qa-bot/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/document-qa-bot/internal/infrastructure/resilience"
	"github.com/kirillkom/document-qa-bot/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/document-qa-bot/internal/infrastructure/vector/chromem"
	"github.com/kirillkom/document-qa-bot/internal/infrastructure/vector/qdrant"
)

// App holds the components built for one binary. Fields not needed by that
// binary stay nil.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Query        ports.QueryService
	Ingestor     ports.DocumentIngestor
	Enqueuer     ports.DocumentEnqueuer
	StoredIngest ports.StoredDocumentIngestor
	Storage      ports.ObjectStorage
	Queue        ports.IngestQueue

	closeFns []func()
}

type Options struct {
	Logger   *slog.Logger
	Observer resilience.Observer
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// NewAPI builds the query pipeline. It never fails: when construction goes
// wrong the cause is logged and the app serves an unready query service.
func NewAPI(ctx context.Context, cfg config.Config, opts Options) *App {
	app := &App{Config: cfg, Logger: opts.logger()}

	query, err := app.buildQuery(ctx, opts)
	if err != nil {
		app.Logger.Error("qa_chain_init_failed", "error", err)
		app.Query = usecase.NewUnavailableQueryService(err)
		return app
	}
	app.Query = query
	app.Logger.Info("qa_chain_ready",
		"provider", cfg.LLMProvider,
		"vector_backend", cfg.VectorBackend,
		"conversation_store", cfg.ConversationStore,
	)
	return app
}

// NewIngest builds the offline ingestion pipeline. With create set the
// index is created when absent; otherwise a missing index is an error.
func NewIngest(ctx context.Context, cfg config.Config, create bool, opts Options) (*App, error) {
	app := &App{Config: cfg, Logger: opts.logger()}
	ingestor, err := app.buildIngestor(ctx, create, opts)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Ingestor = ingestor
	return app, nil
}

// NewEnqueue builds the producer side of queued ingestion.
func NewEnqueue(cfg config.Config, opts Options) (*App, error) {
	app := &App{Config: cfg, Logger: opts.logger()}
	if err := app.buildQueueing(opts); err != nil {
		app.Close()
		return nil, err
	}
	app.Enqueuer = usecase.NewEnqueueDocumentUseCase(app.Storage, app.Queue)
	return app, nil
}

// NewWorker builds the consumer side of queued ingestion. The worker may
// create the index, since it is the first writer in a queued deployment.
func NewWorker(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	app := &App{Config: cfg, Logger: opts.logger()}
	ingestor, err := app.buildIngestor(ctx, true, opts)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Ingestor = ingestor
	if err := app.buildQueueing(opts); err != nil {
		app.Close()
		return nil, err
	}
	app.StoredIngest = usecase.NewStoredIngestUseCase(app.Storage, ingestor)
	return app, nil
}

func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}

func (a *App) onClose(fn func()) {
	a.closeFns = append(a.closeFns, fn)
}

func (a *App) buildQuery(ctx context.Context, opts Options) (ports.QueryService, error) {
	cfg := a.Config
	if err := cfg.ValidateProvider(); err != nil {
		return nil, err
	}
	executor := newExecutor(cfg, a.Logger, opts.Observer)

	embedder, generator, err := newModels(ctx, cfg, executor)
	if err != nil {
		return nil, err
	}
	index, err := openIndex(ctx, cfg, executor, false)
	if err != nil {
		return nil, err
	}
	mem, err := a.newMemory(ctx)
	if err != nil {
		return nil, err
	}

	return usecase.NewQueryUseCase(embedder, index, generator, mem, usecase.QueryOptions{
		TopK:          cfg.RAGTopK,
		HistoryWindow: cfg.HistoryMaxTurns,
	}), nil
}

func (a *App) buildIngestor(ctx context.Context, create bool, opts Options) (ports.DocumentIngestor, error) {
	cfg := a.Config
	if err := cfg.ValidateProvider(); err != nil {
		return nil, err
	}
	executor := newExecutor(cfg, a.Logger, opts.Observer)

	embedder, _, err := newModels(ctx, cfg, executor)
	if err != nil {
		return nil, err
	}
	index, err := openIndex(ctx, cfg, executor, create)
	if err != nil {
		return nil, err
	}

	return usecase.NewIngestDocumentUseCase(
		extractor.NewLoader(),
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder,
		index,
		cfg.EmbedBatchSize,
		a.Logger,
	), nil
}

func (a *App) buildQueueing(opts Options) error {
	cfg := a.Config
	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}
	a.Storage = storage

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: newExecutor(cfg, a.Logger, opts.Observer),
		Logger:             a.Logger,
	})
	if err != nil {
		return fmt.Errorf("init message queue: %w", err)
	}
	a.Queue = queue
	a.onClose(queue.Close)
	return nil
}

func (a *App) newMemory(ctx context.Context) (ports.ConversationMemory, error) {
	cfg := a.Config
	switch cfg.ConversationStore {
	case config.StoreMemory, "":
		return memory.NewConversationStore(), nil
	case config.StorePostgres:
		db, err := postgres.OpenDB(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.onClose(func() { _ = db.Close() })
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return postgres.NewConversationStore(db, cfg.ConversationSessionID), nil
	default:
		return nil, domain.WrapError(domain.ErrConfiguration, "init conversation memory", fmt.Errorf("unknown CONVERSATION_STORE %q", cfg.ConversationStore))
	}
}

func newExecutor(cfg config.Config, logger *slog.Logger, observer resilience.Observer) *resilience.Executor {
	opts := []resilience.Option{resilience.WithLogger(logger)}
	if observer != nil {
		opts = append(opts, resilience.WithObserver(observer))
	}
	return resilience.NewExecutor(cfg.Resilience(), opts...)
}

func newModels(ctx context.Context, cfg config.Config, executor *resilience.Executor) (ports.Embedder, ports.AnswerGenerator, error) {
	switch cfg.LLMProvider {
	case config.ProviderOllama:
		client := ollama.New(cfg.OllamaURL, cfg.LLMModel, cfg.EmbedModel,
			ollama.WithTimeout(cfg.LLMTimeout()),
			ollama.WithExecutor(executor),
		)
		return ollama.NewEmbedder(client), ollama.NewGenerator(client), nil
	default:
		settings := langchain.Settings{
			Provider:   cfg.LLMProvider,
			APIKey:     cfg.GoogleAPIKey,
			ChatModel:  cfg.LLMModel,
			EmbedModel: cfg.EmbedModel,
		}
		if cfg.LLMProvider == config.ProviderOpenAI {
			settings.APIKey = cfg.OpenAIAPIKey
			settings.BaseURL = cfg.OpenAIBaseURL
		}
		model, err := langchain.NewModel(ctx, settings)
		if err != nil {
			return nil, nil, err
		}
		embedder, err := langchain.NewEmbedder(model, executor)
		if err != nil {
			return nil, nil, domain.WrapError(domain.ErrConfiguration, "init embedder", err)
		}
		generator := langchain.NewGenerator(model,
			langchain.WithGeneratorExecutor(executor),
			langchain.WithTimeout(cfg.LLMTimeout()),
		)
		return embedder, generator, nil
	}
}

type vectorStore interface {
	ports.VectorIndex
	ports.VectorIndexWriter
}

func openIndex(ctx context.Context, cfg config.Config, executor *resilience.Executor, create bool) (vectorStore, error) {
	switch cfg.VectorBackend {
	case config.BackendChromem, "":
		if create {
			return chromem.Create(cfg.IndexDir, cfg.IndexCollection, cfg.IndexCompress)
		}
		return chromem.Open(cfg.IndexDir, cfg.IndexCollection, cfg.IndexCompress)
	case config.BackendQdrant:
		client := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, executor)
		if !create {
			if err := client.CheckCollection(ctx); err != nil {
				return nil, err
			}
		}
		return client, nil
	default:
		return nil, domain.WrapError(domain.ErrConfiguration, "open vector index", fmt.Errorf("unknown VECTOR_BACKEND %q", cfg.VectorBackend))
	}
}
