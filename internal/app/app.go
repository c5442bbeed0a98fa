// Package app wires configuration to adapters and use cases.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/d1freeez14/neuro-tender/internal/checkpoint"
	"github.com/d1freeez14/neuro-tender/internal/config"
	"github.com/d1freeez14/neuro-tender/internal/extract"
	"github.com/d1freeez14/neuro-tender/internal/httpx"
	"github.com/d1freeez14/neuro-tender/internal/infrastructure/docs"
	"github.com/d1freeez14/neuro-tender/internal/infrastructure/llm"
	"github.com/d1freeez14/neuro-tender/internal/infrastructure/ocr"
	"github.com/d1freeez14/neuro-tender/internal/infrastructure/parser"
	"github.com/d1freeez14/neuro-tender/internal/infrastructure/scheduler"
	"github.com/d1freeez14/neuro-tender/internal/infrastructure/storage"
	"github.com/d1freeez14/neuro-tender/internal/infrastructure/telegram"
	"github.com/d1freeez14/neuro-tender/internal/infrastructure/uploader"
	"github.com/d1freeez14/neuro-tender/internal/logging"
	"github.com/d1freeez14/neuro-tender/internal/ports"
	"github.com/d1freeez14/neuro-tender/internal/retry"
	"github.com/d1freeez14/neuro-tender/internal/scanner"
	"github.com/d1freeez14/neuro-tender/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	pipeline *usecase.Pipeline
	driver   ports.Scheduler
	db       *sql.DB
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging)
	}

	client := httpx.New(httpx.Config{
		Attempts:          cfg.Scraping.MaxRetries,
		RetryDelay:        cfg.Scraping.RetryDelay(),
		RateLimitCooldown: cfg.Scraping.RateLimitPause(),
		Timeout:           cfg.Scraping.Timeout(),
		RequestsPerSecond: requestsPerSecond(cfg.Scraping),
	}, baseLogger.With("component", "http"))

	registry := scanner.NewRegistry()
	registry.Register(parser.NewGoszakupStrategy(baseLogger.With("component", "scanner.goszakup")))

	source := parser.NewStrategySource(registry, client, cfg.Sites, baseLogger.With("component", "source"))

	store, err := checkpoint.Load(cfg.Storage.DataDir, baseLogger.With("component", "checkpoint"))
	if err != nil {
		return nil, fmt.Errorf("load checkpoints: %w", err)
	}

	acquirer := docs.NewDownloader(client, portalBaseURL(cfg.Sites), cfg.Storage.DataDir,
		cfg.Scraping.DownloadPause(), baseLogger.With("component", "downloader"))

	var ocrClient ports.OCRClient
	if cfg.OCR.Endpoint != "" {
		ocrClient = ocr.NewClient(cfg.OCR.Endpoint, cfg.OCR.Languages, cfg.OCR.Timeout())
	}
	extractor := extract.NewExtractor(
		cfg.Storage.DataDir,
		ocrClient,
		extract.CyrillicRatioCheck(cfg.Document.CyrillicThreshold),
		cfg.Document.SupportedExtensions,
		baseLogger.With("component", "extractor"))

	evaluator := usecase.NewEvaluator(llm.NewClient(cfg.Model), usecase.EvaluatorConfig{
		ChunkSize:        cfg.Document.ChunkSize,
		MaxChunks:        cfg.Document.MaxChunks,
		KeywordThreshold: cfg.Document.KeywordThreshold,
		Policy:           retry.Policy{Attempts: cfg.Model.MaxRetries, Delay: cfg.Model.RetryDelay()},
	}, baseLogger.With("component", "evaluator"))

	var submitter ports.Submitter
	if cfg.Upload.Username != "" && cfg.Upload.Password != "" {
		submitter = uploader.NewClient(cfg.Upload, cfg.Storage.DataDir, baseLogger.With("component", "uploader"))
	}

	var db *sql.DB
	var audit ports.AuditRepository
	if cfg.Database.DSN != "" {
		db, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		audit = storage.NewPostgresRepository(db)
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Checkpoint: store,
		Acquirer:   acquirer,
		Extractor:  extractor,
		Evaluator:  evaluator,
		Submitter:  submitter,
		Audit:      audit,
		Notifier:   notifier,
		Logger:     baseLogger.With("component", "pipeline"),
	})

	return &Application{
		cfg:      cfg,
		pipeline: pipeline,
		driver:   scheduler.NewIntervalScheduler(cfg.Scheduler.Interval()),
		db:       db,
	}, nil
}

// Run executes the pipeline once, or keeps it running on the configured
// interval until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if a.pipeline == nil {
		return nil
	}

	if !a.cfg.Scheduler.Enabled {
		_, err := a.pipeline.Run(ctx)
		return err
	}

	sched := usecase.NewScheduler(a.driver, a.pipeline)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	<-ctx.Done()
	return sched.Stop(context.Background())
}

// Close releases held resources.
func (a *Application) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// portalBaseURL picks the base of the first enabled portal.
func portalBaseURL(sites []config.SiteConfig) string {
	for _, site := range sites {
		if site.Enabled {
			return site.BaseURL
		}
	}
	if len(sites) > 0 {
		return sites[0].BaseURL
	}
	return ""
}

// requestsPerSecond converts the politeness delay into a limiter rate.
func requestsPerSecond(s config.ScrapingConfig) float64 {
	delay := s.RequestDelay()
	if delay <= 0 {
		return 0
	}
	return 1 / delay.Seconds()
}
