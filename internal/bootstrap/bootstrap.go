package bootstrap

import (
	"context"
	"fmt"

	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/core/ports"
	"github.com/clauselens/clauselens/internal/core/usecase"
	"github.com/clauselens/clauselens/internal/infrastructure/extractor"
	"github.com/clauselens/clauselens/internal/infrastructure/llm/gemini"
	"github.com/clauselens/clauselens/internal/infrastructure/queue/nats"
	"github.com/clauselens/clauselens/internal/infrastructure/repository/postgres"
	"github.com/clauselens/clauselens/internal/infrastructure/resilience"
	"github.com/clauselens/clauselens/internal/infrastructure/storage/localfs"
	"github.com/clauselens/clauselens/internal/infrastructure/storage/minio"
)

type App struct {
	Config config.Config

	Queue ports.MessageQueue
	Repo  ports.ContractRepository

	AuthUC    *usecase.AuthUseCase
	IngestUC  ports.ContractIngestor
	ProcessUC ports.ContractProcessor
	NotesUC   ports.ClauseNoteWriter

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewContractRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	users := postgres.NewUserRepository(db)

	storage, err := newObjectStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ingestUC := usecase.NewIngestContractUseCase(repo, storage, queue, cfg.MaxUploadBytes)
	notesUC := usecase.NewClauseNoteUseCase(repo)
	authUC := usecase.NewAuthUseCase(users)

	// The analyzer is only built when a key is present; the api binary runs
	// without one, the worker refuses to start.
	var processUC ports.ContractProcessor
	var analyzer *gemini.Analyzer
	if cfg.GeminiAPIKey != "" {
		analyzer, err = gemini.New(ctx, gemini.Config{
			APIKey:         cfg.GeminiAPIKey,
			Model:          cfg.GeminiModel,
			Temperature:    float32(cfg.GeminiTemperature),
			MaxPromptChars: cfg.AnalysisMaxChars,
		})
		if err != nil {
			return nil, fmt.Errorf("init analyzer: %w", err)
		}
		processUC = usecase.NewProcessContractUseCase(repo, storage, extractor.New(), analyzer)
	}

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		AuthUC:    authUC,
		IngestUC:  ingestUC,
		ProcessUC: processUC,
		NotesUC:   notesUC,

		closeFn: func() {
			queue.Close()
			if analyzer != nil {
				_ = analyzer.Close()
			}
			_ = db.Close()
		},
	}, nil
}

func newObjectStorage(ctx context.Context, cfg config.Config) (ports.ObjectStorage, error) {
	if cfg.MinioEndpoint == "" {
		return localfs.New(cfg.StoragePath)
	}

	store, err := minio.New(minio.Config{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
