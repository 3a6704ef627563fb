package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/agenthands/simfinder/internal/config"
	"github.com/agenthands/simfinder/internal/core"
	"github.com/agenthands/simfinder/internal/core/summary"
	"github.com/agenthands/simfinder/internal/driver"
	"github.com/agenthands/simfinder/internal/llm"
	"github.com/agenthands/simfinder/internal/logger"
	"github.com/agenthands/simfinder/internal/server"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		logger.GetDefault().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.ParseLevel(cfg.Log.Level)
	logCfg.JSON = cfg.Log.JSON
	logger.Init(logCfg)
	log := logger.GetDefault()
	if envErr != nil {
		log.Debug("no .env file found, using environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password, log)
	if err != nil {
		log.Error("failed to connect to memgraph", "error", err)
		os.Exit(1)
	}
	defer d.Close(context.Background())

	if err := d.BuildIndices(ctx); err != nil {
		log.Warn("failed to build indices", "error", err)
	}

	var summarizer *summary.Summarizer
	if cfg.SummariesEnabled() {
		client, err := llm.NewClient(ctx, cfg.LLM, log)
		if err != nil {
			log.Error("failed to initialize llm client", "error", err)
			os.Exit(1)
		}
		summarizer = summary.NewSummarizer(client, cfg.Summary)
	} else {
		log.Info("no llm provider configured, cluster summaries disabled")
	}

	detector := core.NewDetector(cfg.Detection.Workers, log)
	finder := core.NewFinder(driver.NewArticleStore(d), detector, cfg.Detection.MaxArticles)
	runner := core.NewRunner(finder, log)
	srv := server.NewServer(runner, summarizer, cfg.Detection.Threshold, log)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: srv.SetupRouter(),
	}

	go func() {
		log.Info("starting server", "port", cfg.Server.Port, "workers", detector.Workers)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	runner.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// loadConfig reads CONFIG_PATH (or the default path when it exists) and
// applies environment overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		if _, err := os.Stat(config.DefaultPath); err == nil {
			path = config.DefaultPath
		}
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
