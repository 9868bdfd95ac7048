package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"allergen-scan/api/internal/archive"
	"allergen-scan/api/internal/config"
	"allergen-scan/api/internal/inference/gemini"
	"allergen-scan/api/internal/inference/openai"
	"allergen-scan/api/internal/logger"
	"allergen-scan/api/internal/menu"
	"allergen-scan/api/internal/store"

	"github.com/sirupsen/logrus"
)

// Engine is a model backend with a lifecycle.
type Engine interface {
	menu.Inferencer
	GetModel() string
	Close() error
}

// App holds the long-lived collaborators shared by the binaries.
type App struct {
	Config  *config.Config
	Engine  Engine
	Scanner *menu.Scanner
	Scans   *store.ScanRepo // nil without a database

	db *sql.DB
}

// New connects everything cfg enables. The model client is mandatory; the
// database and the reply archive are optional.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	engine, err := NewEngine(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, Engine: engine}

	opts := []menu.Option{menu.WithTimeout(cfg.InferenceTimeout)}

	if cfg.DatabaseURL != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("database: %w", err)
		}
		app.db = db
		app.Scans = store.NewScanRepo(db)
		if err := app.Scans.EnsureSchema(ctx); err != nil {
			app.Close()
			return nil, fmt.Errorf("database schema: %w", err)
		}
		opts = append(opts, menu.WithRecorder(app.Scans))
		logger.WithField("db", store.SafeDSNSummary(cfg.DatabaseURL)).Info("Database connected")
	} else {
		logger.Warn("DATABASE_URL not set, scans will not be stored")
	}

	if cfg.ArchiveBucket != "" {
		arch, err := archive.New(ctx, archive.Options{
			Bucket:    cfg.ArchiveBucket,
			Endpoint:  cfg.ArchiveEndpoint,
			Region:    cfg.ArchiveRegion,
			AccessKey: cfg.ArchiveAccessKey,
			SecretKey: cfg.ArchiveSecretKey,
		})
		if err != nil {
			app.Close()
			return nil, err
		}
		opts = append(opts, menu.WithArchiver(arch))
		logger.WithField("bucket", cfg.ArchiveBucket).Info("Parse failures will be archived")
	}

	app.Scanner = menu.NewScanner(engine, opts...)
	logger.WithFields(logrus.Fields{
		"engine": engine.Name(),
		"model":  engine.GetModel(),
	}).Info("Scanner ready")
	return app, nil
}

// NewEngine builds the backend named by cfg.InferenceProvider.
func NewEngine(ctx context.Context, cfg *config.Config) (Engine, error) {
	switch cfg.InferenceProvider {
	case config.ProviderOpenAI:
		e, err := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel,
			openai.WithBaseURL(cfg.OpenAIBaseURL),
			openai.WithTemperature(cfg.Temperature),
		)
		if err != nil {
			return nil, err
		}
		return e, nil
	case config.ProviderGemini, "":
		e, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel,
			gemini.WithTemperature(cfg.Temperature),
			gemini.WithJSONMode(true),
		)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown inference provider %q", cfg.InferenceProvider)
	}
}

func (a *App) Close() {
	if a.Engine != nil {
		if err := a.Engine.Close(); err != nil {
			logger.WithError(err).Warn("Could not close model client")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.WithError(err).Warn("Could not close database")
		}
	}
}
