package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/reconcile-labs/query-engine/pkg/adapters/datasource"
	_ "github.com/reconcile-labs/query-engine/pkg/adapters/datasource/mssql"
	_ "github.com/reconcile-labs/query-engine/pkg/adapters/datasource/postgres"
	"github.com/reconcile-labs/query-engine/pkg/config"
	"github.com/reconcile-labs/query-engine/pkg/graph"
	"github.com/reconcile-labs/query-engine/pkg/handlers"
	"github.com/reconcile-labs/query-engine/pkg/llm"
	"github.com/reconcile-labs/query-engine/pkg/models"
	"github.com/reconcile-labs/query-engine/pkg/translate"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("schema_path", cfg.SchemaPath),
		zap.String("target_type", cfg.Target.Type),
		zap.Bool("model_pass", cfg.AI.IsAvailable()))

	input, err := models.LoadSchemaInput(cfg.SchemaPath)
	if err != nil {
		logger.Fatal("failed to load schema input", zap.Error(err))
	}

	var overrides []graph.Override
	if cfg.Engine.AliasOverridesPath != "" {
		overrides, err = graph.LoadOverrides(cfg.Engine.AliasOverridesPath)
		if err != nil {
			logger.Fatal("failed to load alias overrides", zap.Error(err))
		}
	}

	g, err := graph.Build(input,
		graph.WithLogger(logger),
		graph.WithOverrides(overrides))
	if err != nil {
		logger.Fatal("failed to build knowledge graph", zap.Error(err))
	}

	client, err := llm.NewFromConfig(&cfg.AI, logger)
	if err != nil {
		logger.Fatal("failed to create model client", zap.Error(err))
	}
	if client != nil {
		enrichCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.AI.TimeoutSeconds)*time.Second)
		g.EnrichAliases(enrichCtx, client)
		cancel()
	}

	resolver := graph.NewResolver(g, cfg.Engine.FuzzyThreshold, logger)
	parser := translate.NewParser(g, resolver, client,
		time.Duration(cfg.AI.TimeoutSeconds)*time.Second, logger)
	generator := translate.NewGenerator(g, translate.DialectFor(cfg.Target.Type),
		cfg.Engine.RowLimit, logger)

	var runner *translate.Runner
	if cfg.Target.IsConfigured() {
		connectCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		executor, execErr := datasource.NewExecutor(connectCtx, cfg.Target.Type, cfg.Target.AsMap())
		cancel()
		if execErr != nil {
			logger.Warn("target database unavailable, serving dry-run only", zap.Error(execErr))
		} else {
			defer func() { _ = executor.Close() }()
			runner = translate.NewRunner(executor, g.SchemaNames(), cfg.Engine.RowLimit, logger)
		}
	} else {
		logger.Info("no target database configured, serving dry-run only")
	}

	engine := translate.NewEngine(g, parser, generator, runner, cfg.Engine, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewTranslateHandler(engine, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:         cfg.BindAddr + ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		logger.Info("starting query-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown did not complete cleanly", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
