package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"runner/internal/agent"
	"runner/internal/audit"
	"runner/internal/http/handlers"
	httpapi "runner/internal/http/httpapi"
	"runner/internal/infra"
	"runner/internal/jobs"
	"runner/internal/storage"
	"runner/internal/workflow"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewFileStore(cfg.ArtifactsDir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.ArtifactsDir).Msg("failed to open artifacts directory")
	}

	var opts []jobs.Option
	if cfg.DatabaseURL != "" {
		dbpool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer dbpool.Close()

		recorder, err := audit.NewPGRecorder(dbpool, cfg.AuditTable, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build audit recorder")
		}
		if err := recorder.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare audit table")
		}
		opts = append(opts, jobs.WithRecorder(recorder))
		logger.Info().Str("table", cfg.AuditTable).Msg("run metadata mirrored to postgres")
	}
	registry := jobs.NewRegistry(store, logger, opts...)

	bridge := agent.NewBridge(agent.Options{
		Binary:     cfg.AgentBinary,
		Model:      cfg.AgentModel,
		InstallDir: cfg.AgentInstallDir,
		Logger:     &logger,
	})
	if desc, err := bridge.Describe(); err != nil {
		logger.Warn().Err(err).Msg("agent CLI not found; ask, plan and execute will fail until it is installed")
	} else {
		logger.Info().Str("agent", desc).Msg("agent CLI resolved")
	}

	// Executions run under ctx and are killed on shutdown.
	svc := workflow.NewService(ctx, registry, bridge, logger, cfg.AgentTimeout)

	app := handlers.NewApp(cfg, logger, registry, svc, bridge)
	router := httpapi.NewRouter(app, cfg, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", cfg.Addr()).Str("project_root", cfg.ProjectRoot).Str("artifacts", store.BasePath()).Msg("runner listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	svc.Wait()
	logger.Info().Msg("server stopped")
}
