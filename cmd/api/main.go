// Package main is the entrypoint for the VistaChat API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/vistachat/vistachat/internal/auth"
	"github.com/vistachat/vistachat/internal/cache"
	"github.com/vistachat/vistachat/internal/config"
	"github.com/vistachat/vistachat/internal/handler"
	"github.com/vistachat/vistachat/internal/llm"
	"github.com/vistachat/vistachat/internal/logging"
	"github.com/vistachat/vistachat/internal/metrics"
	"github.com/vistachat/vistachat/internal/middleware"
	"github.com/vistachat/vistachat/internal/repository"
	firestorerepo "github.com/vistachat/vistachat/internal/repository/firestore"
	"github.com/vistachat/vistachat/internal/repository/memory"
	"github.com/vistachat/vistachat/internal/server"
	"github.com/vistachat/vistachat/internal/service"
	"github.com/vistachat/vistachat/internal/storage"
)

// store is what every storage backend provides.
type store interface {
	service.AccountStore
	service.InteractionStore
	Ping(ctx context.Context) error
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var hooks []namedHook

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	hooks = append(hooks, namedHook{cfg.StorageBackend, closeStore})

	// Redis is optional; without it chat requests are not rate limited.
	var (
		cacheClient *cache.Cache
		limiter     middleware.RateLimiter
		cacheCheck  handler.HealthChecker
	)
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			return fmt.Errorf("connecting to redis: %w", err)
		}
		limiter, cacheCheck = cacheClient, cacheClient
		hooks = append(hooks, namedHook{"redis", func(context.Context) error { return cacheClient.Close() }})
		logger.Info("connected to Redis")
	} else if cfg.RateLimitEnabled {
		logger.Warn("REDIS_URL not set, chat rate limiting disabled")
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	if err != nil {
		return fmt.Errorf("creating token issuer: %w", err)
	}
	hasher := auth.NewPasswordHasher(auth.DefaultParams)

	chatModel, err := newModel(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating model client: %w", err)
	}
	logger.Info("model ready", "backend", cfg.LLMBackend, "model", chatModel.Name())

	uploader, err := newUploader(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating image uploader: %w", err)
	}

	var (
		recorder       metrics.Recorder = metrics.NewNoop()
		metricsHandler http.Handler
	)
	if cfg.MetricsEnabled {
		prom := metrics.NewPrometheus()
		recorder, metricsHandler = prom, prom.Handler()
	}

	verifier := service.NewCredentialVerifier(tokens, st, logger)
	chatService, err := service.NewChatService(service.ChatServiceConfig{
		Verifier:     verifier,
		Model:        chatModel,
		Uploader:     uploader,
		Interactions: st,
		HistoryLimit: cfg.HistoryContextLimit,
		Metrics:      recorder,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	historyService := service.NewHistoryService(st, cfg.HistoryListLimit)
	accountService := service.NewAccountService(st, hasher, tokens, recorder, logger)

	r := server.NewRouter(server.RouterConfig{
		Logger:         logger,
		Root:           handler.New(),
		Health:         handler.NewHealthHandler(cfg.StorageBackend, st, cacheCheck),
		Chat:           handler.NewChatHandler(chatService, cfg.MaxImageSize, logger),
		History:        handler.NewHistoryHandler(historyService, logger),
		Auth:           handler.NewAuthHandler(accountService, tokens.TTL(), logger),
		Verifier:       verifier,
		Limiter:        limiter,
		RateLimit:      cfg.RateLimitEnabled,
		ChatRPS:        cfg.RateLimitChatRPS,
		ChatBurst:      cfg.RateLimitChatBurst,
		Metrics:        recorder,
		MetricsHandler: metricsHandler,
		IsDevelopment:  cfg.IsDevelopment(),
		AllowedOrigins: cfg.GetCORSAllowedOrigins(),
		MaxImageSize:   cfg.MaxImageSize,
	})

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)
	for _, h := range hooks {
		srv.OnShutdown(h.name, h.fn)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"storage", cfg.StorageBackend,
		"image_storage", cfg.ImageStorage,
	)

	return srv.Run()
}

type namedHook struct {
	name string
	fn   server.ShutdownFunc
}

// openStore connects the configured storage backend and returns its
// shutdown hook.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store, server.ShutdownFunc, error) {
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		if cfg.MigrateOnStart {
			if err := repository.NewMigrator(cfg.DatabaseURL, logger).Up(ctx); err != nil {
				return nil, nil, fmt.Errorf("running migrations: %s", sanitizeError(err, cfg.DatabaseURL))
			}
		}

		repo, err := repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error(
				"failed to connect to database",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
				slog.String("database_url", redactURL(cfg.DatabaseURL)),
			)
			return nil, nil, fmt.Errorf("connecting to database: %s", sanitizeError(err, cfg.DatabaseURL))
		}
		logger.Info("connected to database")
		return repo, func(context.Context) error {
			repo.Close()
			return nil
		}, nil

	case config.StorageFirestore:
		fs, err := firestorerepo.NewStore(ctx, cfg.FirestoreProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to firestore: %w", err)
		}
		logger.Info("connected to Firestore", "project", cfg.FirestoreProjectID)
		return fs, func(context.Context) error { return fs.Close() }, nil

	default:
		logger.Warn("using in-memory storage, data is lost on restart")
		return memory.NewStore(), func(context.Context) error { return nil }, nil
	}
}

func newModel(ctx context.Context, cfg *config.Config) (service.Model, error) {
	switch cfg.LLMBackend {
	case config.LLMMock:
		return llm.NewMockClient(cfg.ModelName), nil
	case config.LLMVertex:
		return llm.NewGeminiClient(ctx, llm.GeminiConfig{
			Project:     cfg.GCPProject,
			Location:    cfg.GCPLocation,
			Model:       cfg.ModelName,
			Temperature: cfg.ModelTemperature,
		})
	default:
		return llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.ModelName,
			Temperature: cfg.ModelTemperature,
		})
	}
}

func newUploader(ctx context.Context, cfg *config.Config) (service.ImageUploader, error) {
	if cfg.ImageStorage == config.ImageStorageNone {
		return storage.Discard{}, nil
	}
	return storage.NewS3Uploader(ctx, storage.S3Config{
		Bucket:        cfg.S3Bucket,
		Region:        cfg.S3Region,
		Endpoint:      cfg.S3Endpoint,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		PublicBaseURL: cfg.S3PublicBaseURL,
		KeyPrefix:     cfg.S3KeyPrefix,
	})
}

// initLogger builds the process logger. Records logged with a request
// context carry its request id.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(logging.NewContextHandler(h))
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
