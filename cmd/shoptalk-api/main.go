package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/shoptalk/shoptalk/internal/answer"
	"github.com/shoptalk/shoptalk/internal/api"
	"github.com/shoptalk/shoptalk/internal/api/uistatic"
	"github.com/shoptalk/shoptalk/internal/archive"
	"github.com/shoptalk/shoptalk/internal/ask"
	"github.com/shoptalk/shoptalk/internal/auth"
	"github.com/shoptalk/shoptalk/internal/config"
	"github.com/shoptalk/shoptalk/internal/demo/seeder"
	"github.com/shoptalk/shoptalk/internal/history"
	historypostgres "github.com/shoptalk/shoptalk/internal/history/postgres"
	"github.com/shoptalk/shoptalk/internal/llm"
	"github.com/shoptalk/shoptalk/internal/nl2sql"
	"github.com/shoptalk/shoptalk/internal/observability"
	"github.com/shoptalk/shoptalk/internal/query"
	duckdbengine "github.com/shoptalk/shoptalk/internal/query/duckdb"
	pgengine "github.com/shoptalk/shoptalk/internal/query/postgres"
	"github.com/shoptalk/shoptalk/internal/schema"
	"github.com/shoptalk/shoptalk/internal/sqlguard"
	s3store "github.com/shoptalk/shoptalk/internal/storage/s3"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("shoptalk-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	generateClient, err := llm.NewClient(llm.ClientConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize sql model client", slog.Any("error", err))
		os.Exit(1)
	}

	answerModel := cfg.LLM.AnswerModel
	if answerModel == "" {
		answerModel = cfg.LLM.Model
	}
	answerClient, err := llm.NewClient(llm.ClientConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       answerModel,
		Temperature: cfg.LLM.AnswerTemperature,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize answer model client", slog.Any("error", err))
		os.Exit(1)
	}

	var (
		engine       query.Engine
		introspector *schema.Introspector
		historyRepo  history.Repository
		readiness    []api.ReadinessCheck
		healthChecks []api.HealthCheck
		closeDB      func() error
	)

	if cfg.Demo.Enabled {
		duck, err := duckdbengine.Open()
		if err != nil {
			logger.Error("failed to open demo engine", slog.Any("error", err))
			os.Exit(1)
		}
		closeDB = duck.Close

		if _, err := seeder.New(duck.DB(), seeder.Options{
			Seed:         cfg.Demo.Seed,
			CreateTables: true,
			Dialect:      seeder.DialectDuckDB,
		}, logger).Run(context.Background()); err != nil {
			logger.Error("failed to seed demo data", slog.Any("error", err))
			os.Exit(1)
		}

		engine = duck
		introspector = &schema.Introspector{
			DB:         duck.DB(),
			SchemaName: "main",
			SampleRows: cfg.Schema.SampleRows,
			Logger:     logger,
		}
		readiness = append(readiness, api.CheckLLMConfig(cfg))
		healthChecks = append(healthChecks,
			api.HealthCheck{Name: "database", Check: func(ctx context.Context) error { return duck.DB().PingContext(ctx) }},
			api.HealthCheck{Name: "llm", Check: api.CheckLLMConfig(cfg)},
		)
	} else {
		db, err := pgengine.Open(context.Background(), pgengine.DBConfig{
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			logger.Error("failed to open database", slog.Any("error", err))
			os.Exit(1)
		}
		closeDB = db.Close

		engine = pgengine.NewEngine(db)
		introspector = &schema.Introspector{
			DB:            db,
			SampleRows:    cfg.Schema.SampleRows,
			ExcludeTables: []string{"ask_history", "shoptalk_schema_migrations"},
			Logger:        logger,
		}
		if cfg.History.Enabled {
			historyRepo = historypostgres.NewRepository(db)
		}
		readiness = append(readiness,
			api.CheckDatabaseDSN(cfg),
			api.CheckLLMConfig(cfg),
			func(ctx context.Context) error { return db.PingContext(ctx) },
		)
		healthChecks = append(healthChecks,
			api.HealthCheck{Name: "database", Check: func(ctx context.Context) error { return db.PingContext(ctx) }},
			api.HealthCheck{Name: "llm", Check: api.CheckLLMConfig(cfg)},
		)
	}
	defer func() { _ = closeDB() }()

	var archiver *archive.Archiver
	if cfg.Archive.Enabled {
		store, err := s3store.New(context.Background(), s3store.Config{
			Endpoint:         cfg.Archive.Endpoint,
			Region:           cfg.Archive.Region,
			Bucket:           cfg.Archive.Bucket,
			AccessKeyID:      cfg.Archive.AccessKeyID,
			SecretAccessKey:  cfg.Archive.SecretAccessKey,
			UseSSL:           cfg.Archive.UseSSL,
			Prefix:           cfg.Archive.Prefix,
			AutoCreateBucket: cfg.Archive.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize answer archive", slog.Any("error", err))
			os.Exit(1)
		}
		archiver = &archive.Archiver{Store: store, Timeout: cfg.Archive.Timeout, Logger: logger}
	}

	provider := schema.NewProvider(introspector, cfg.Schema.RefreshInterval, logger)
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	if err := provider.Refresh(startCtx); err != nil {
		logger.Warn("initial schema load failed", slog.Any("error", err))
	}
	cancelStart()
	readiness = append(readiness, func(_ context.Context) error {
		if !provider.Loaded() {
			return errors.New("schema context not loaded")
		}
		return nil
	})

	askDeps := ask.Dependencies{
		Generator: nl2sql.NewCompleterGenerator(generateClient, cfg.Query.MaxRows),
		Schema:    provider,
		Engine:    engine,
		Formatter: answer.NewFormatter(answerClient),
		History:   historyRepo,
		Logger:    logger,
	}
	if archiver != nil {
		askDeps.Archiver = archiver
	}
	askService := ask.NewService(ask.Config{
		MaxAttempts:  cfg.Ask.MaxAttempts,
		MaxRows:      cfg.Query.MaxRows,
		QueryTimeout: cfg.Query.Timeout,
	}, guardPolicy(cfg.Guard), askDeps)

	deps := api.Dependencies{
		Logger:            logger,
		Readiness:         api.CombineReadinessChecks(readiness...),
		HealthChecks:      healthChecks,
		StartedAt:         time.Now().UTC(),
		DependencyTimeout: time.Second,
		Ask:               askService,
		Schema:            provider,
		History:           historyRepo,
		MaxQuestionLength: cfg.Ask.MaxQuestionLength,
		UI:                uistatic.Handler(),
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() { _ = provider.Run(ctx) }()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.Bool("demo_mode", cfg.Demo.Enabled))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

// guardPolicy starts from the read-only defaults and lets the environment
// narrow or widen the lists.
func guardPolicy(cfg config.GuardConfig) sqlguard.Policy {
	policy := sqlguard.DefaultPolicy()
	if verbs := splitList(cfg.AllowedVerbs); len(verbs) > 0 {
		policy.AllowedVerbs = verbs
	}
	if keywords := splitList(cfg.ForbiddenKeywords); len(keywords) > 0 {
		policy.ForbiddenKeywords = keywords
	}
	policy.StrictSchema = cfg.StrictSchema
	return policy
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.ToLower(strings.TrimSpace(part)); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
