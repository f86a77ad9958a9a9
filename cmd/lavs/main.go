package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/verilayer/lavs/internal/aggregate"
	"github.com/verilayer/lavs/internal/api"
	"github.com/verilayer/lavs/internal/bus"
	"github.com/verilayer/lavs/internal/cache"
	"github.com/verilayer/lavs/internal/domain"
	"github.com/verilayer/lavs/internal/forensics"
	"github.com/verilayer/lavs/internal/lookup"
	"github.com/verilayer/lavs/internal/pipeline"
	"github.com/verilayer/lavs/internal/repository"
	"github.com/verilayer/lavs/internal/rules"
	"github.com/verilayer/lavs/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	cfg := loadConfig()

	logLevel := slog.LevelInfo
	if cfg.Logging.Level == "debug" {
		logLevel = slog.LevelDebug
	}
	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("starting lavs",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	slog.Info("configuration loaded",
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	engine, err := rules.NewEngine()
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	if err := loadRules(ctx, repo, engine); err != nil {
		slog.Error("failed to load rules", "error", err)
		os.Exit(1)
	}
	slog.Info("rule engine initialized", "rules_count", engine.RulesCount())

	profiles := loadProfiles(ctx, cfg, repo)
	if err := profiles.Validate(); err != nil {
		slog.Error("invalid weight profiles", "error", err)
		os.Exit(1)
	}

	whois := lookup.NewWhoisClient(cacheImpl, cfg.Pipeline.LookupTimeout)
	fetcher := lookup.NewFetcher(cacheImpl, cfg.Pipeline.LookupTimeout)

	producers := &forensics.Set{
		Metadata:   forensics.NewMetadataProducer(engine, whois),
		Image:      forensics.NewImageProducer(),
		Video:      forensics.NewVideoProducer(),
		Audio:      forensics.NewAudioProducer(),
		Web:        forensics.NewWebProducer(fetcher),
		Behavioral: forensics.NewBehavioralProducer(),
	}

	aggregator := aggregate.New(profiles, domain.DefaultBands())
	metrics := pipeline.NewMetrics(prometheus.DefaultRegisterer)
	pipe := pipeline.New(producers, aggregator, busImpl, metrics, cfg.Pipeline.ProducerTimeout)

	var submissionWorker *worker.Worker
	if os.Getenv("LAVS_ASYNC_WORKER") == "true" {
		submissionWorker = worker.New(busImpl, pipe)
		if err := submissionWorker.Start(); err != nil {
			slog.Error("failed to start submission worker", "error", err)
		}
	}

	apiHandler := api.NewHandler(pipe, repo, cacheImpl, busImpl, engine, profiles, Version, cfg.Server.MaxUploadBytes)
	srv := api.NewServer(cfg.Server, apiHandler)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("lavs is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	<-ctx.Done()
	slog.Info("shutting down...")

	if submissionWorker != nil {
		if err := submissionWorker.Stop(); err != nil {
			slog.Error("failed to stop submission worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("lavs shutdown complete")
}

// loadConfig builds the configuration from defaults plus environment
// overrides. LAVS_MODE=cluster switches to the PostgreSQL/Redis/NATS stack.
func loadConfig() *domain.Config {
	var cfg *domain.Config
	if os.Getenv("LAVS_MODE") == "cluster" {
		cfg = domain.ClusterConfig()
	} else {
		cfg = domain.DefaultConfig()
	}

	if v := os.Getenv("LAVS_DEBUG"); v == "true" {
		cfg.Logging.Level = "debug"
	}
	if v := os.Getenv("LAVS_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("LAVS_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("LAVS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LAVS_SQLITE_PATH"); v != "" {
		cfg.Repository.SQLitePath = v
	}
	if v := os.Getenv("LAVS_POSTGRES_HOST"); v != "" {
		cfg.Repository.PostgresHost = v
	}
	if v := os.Getenv("LAVS_POSTGRES_USER"); v != "" {
		cfg.Repository.PostgresUser = v
	}
	if v := os.Getenv("LAVS_POSTGRES_PASSWORD"); v != "" {
		cfg.Repository.PostgresPassword = v
	}
	if v := os.Getenv("LAVS_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("LAVS_NATS_URL"); v != "" {
		cfg.EventBus.NATSUrl = v
	}
	if v := os.Getenv("LAVS_WEIGHTS"); v != "" {
		cfg.WeightProfilePath = v
	}
	return cfg
}

// loadRules fills the engine from the config store, falling back to the
// built-in rule set when the store is empty or unreachable.
func loadRules(ctx context.Context, repo domain.Repository, engine *rules.Engine) error {
	stored, err := repo.ListHeuristicRules(ctx)
	if err != nil {
		slog.Warn("failed to list rules from store, using builtins", "error", err)
		return engine.LoadRules(rules.BuiltinRules())
	}
	if len(stored) > 0 {
		slog.Info("loading rules from store", "count", len(stored))
		return engine.LoadRules(stored)
	}
	slog.Info("no stored rules, using builtins")
	return engine.LoadRules(rules.BuiltinRules())
}

// loadProfiles resolves the weight profiles: config store first, then the
// optional YAML file, then the compiled-in defaults.
func loadProfiles(ctx context.Context, cfg *domain.Config, repo domain.Repository) *domain.WeightProfiles {
	if stored, err := repo.GetWeightProfiles(ctx); err == nil {
		slog.Info("weight profiles loaded from store")
		return stored
	}

	if cfg.WeightProfilePath != "" {
		fromFile, err := domain.LoadWeightProfiles(cfg.WeightProfilePath)
		if err != nil {
			slog.Warn("failed to load weight profile file, using defaults",
				"path", cfg.WeightProfilePath,
				"error", err,
			)
		} else {
			slog.Info("weight profiles loaded from file", "path", cfg.WeightProfilePath)
			return fromFile
		}
	}

	return domain.DefaultWeightProfiles()
}
