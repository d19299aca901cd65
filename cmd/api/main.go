package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockpile/internal/api"
	"stockpile/internal/config"
	"stockpile/internal/database"
	"stockpile/internal/domain"
	"stockpile/internal/events"
	"stockpile/internal/export"
	"stockpile/internal/logging"
	"stockpile/internal/metrics"
	"stockpile/internal/models"
	"stockpile/internal/repository"
	"stockpile/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backup.Start(ctx)
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	creds := initCredentialRepository(cfg, redisClient, &logger)
	if err := seedTokens(ctx, cfg, creds, &logger); err != nil {
		return err
	}

	bus := events.NewEventBus()
	registerMutationMetrics(bus)

	inventories := service.NewInventoryService(db, bus, &logger)
	items := service.NewItemService(db, bus, &logger)
	stats := service.NewStatsService(db, &logger)
	exporter := export.NewExporter(cfg.Exports.Path, &logger)

	auth := api.NewHTTPAuth(cfg.API, creds, &logger)
	httpServer := api.NewHTTPServer(cfg.API, inventories, items, stats, exporter, auth, &logger)

	startMetrics(ctx, cfg, &logger)

	return startServer(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initCredentialRepository строит хранилище токенов: Redis с фейловером
// в память, либо чистая память, если Redis не настроен.
func initCredentialRepository(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.CredentialRepository {
	ttl := time.Duration(cfg.API.Auth.CredentialTTL) * time.Second
	if ttl <= 0 {
		ttl = time.Duration(models.DefaultCredentialTTL) * time.Second
	}

	memory := repository.NewMemoryCredentialRepository(ttl)
	if redisClient == nil {
		return memory
	}

	primary := repository.NewRedisCredentialRepository(redisClient, ttl)
	return repository.NewFailoverCredentialRepository(primary, memory, logger)
}

// seedTokens загружает статические токены из yaml файла в хранилище.
func seedTokens(ctx context.Context, cfg *config.Config, creds domain.CredentialRepository, logger *zerolog.Logger) error {
	tokensPath := os.Getenv("TOKENS_PATH")
	if tokensPath == "" {
		tokensPath = cfg.API.Auth.TokensPath
	}
	if tokensPath == "" {
		tokensPath = "configs/tokens.yaml"
	}

	tokensData, err := os.ReadFile(tokensPath)
	if err != nil {
		logger.Error().Err(err).Str("tokens_path", tokensPath).Msg("read tokens")
		return err
	}

	expanded := os.ExpandEnv(string(tokensData))

	var tokensConfig struct {
		Tokens []struct {
			Token  string `yaml:"token"`
			UserID string `yaml:"user_id"`
			Role   string `yaml:"role"`
		} `yaml:"tokens"`
	}
	if err := yaml.Unmarshal([]byte(expanded), &tokensConfig); err != nil {
		logger.Error().Err(err).Str("tokens_path", tokensPath).Msg("parse tokens")
		return err
	}

	for _, entry := range tokensConfig.Tokens {
		if entry.Token == "" || entry.UserID == "" {
			continue
		}
		role := entry.Role
		if role == "" {
			role = models.RoleUser
		}
		actor := &models.Actor{UserID: entry.UserID, Role: role}
		if err := creds.Store(ctx, entry.Token, actor, 0); err != nil {
			logger.Error().Err(err).Str("user_id", entry.UserID).Msg("seed token")
			return err
		}
	}

	logger.Info().Int("count", len(tokensConfig.Tokens)).Msg("tokens seeded")
	return nil
}

// registerMutationMetrics подписывает счетчики Prometheus на события записи.
func registerMutationMetrics(bus *events.EventBus) {
	hooks := map[string][2]string{
		events.EventInventoryCreated: {"inventory", "create"},
		events.EventInventoryUpdated: {"inventory", "update"},
		events.EventInventoryDeleted: {"inventory", "delete"},
		events.EventItemCreated:      {"item", "create"},
		events.EventItemUpdated:      {"item", "update"},
		events.EventItemDeleted:      {"item", "delete"},
	}

	for eventType, labels := range hooks {
		entity, op := labels[0], labels[1]
		bus.Subscribe(eventType, func(_ *events.Event) error {
			metrics.IncMutation(entity, op)
			return nil
		})
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
