package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/vistachat/vistachat/internal/handler"
	"github.com/vistachat/vistachat/internal/metrics"
	"github.com/vistachat/vistachat/internal/middleware"
)

// defaultMaxBody bounds JSON and form bodies outside the chat route.
const defaultMaxBody = 1 << 20

// RouterConfig carries everything the HTTP surface needs.
type RouterConfig struct {
	Logger *slog.Logger

	Root    *handler.Handler
	Health  *handler.HealthHandler
	Chat    *handler.ChatHandler
	History *handler.HistoryHandler
	Auth    *handler.AuthHandler

	// Verifier guards the routes that require an account.
	Verifier middleware.AccountVerifier

	// Limiter is nil when Redis is not configured.
	Limiter        middleware.RateLimiter
	RateLimit      bool
	ChatRPS        int
	ChatBurst      int
	Metrics        metrics.Recorder
	MetricsHandler http.Handler

	IsDevelopment  bool
	AllowedOrigins []string
	MaxImageSize   int64
}

// NewRouter configures the chi router with all routes and middleware.
// Every route also answers with a trailing slash.
func NewRouter(cfg RouterConfig) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Root == nil {
		cfg.Root = handler.New()
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(chimiddleware.StripSlashes)
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment}))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.AllowedOrigins
	r.Use(middleware.CORS(corsCfg))

	// Health endpoints
	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	// Root info endpoint
	r.Get("/", cfg.Root.Hello)

	requireAccount := middleware.RequireAccount(cfg.Verifier)
	chatLimit := middleware.RateLimitIP(middleware.RateLimitConfig{
		Logger:  cfg.Logger,
		Limiter: cfg.Limiter,
		Metrics: cfg.Metrics,
		Enabled: cfg.RateLimit,
		Scope:   "chat",
		RPS:     cfg.ChatRPS,
		Burst:   cfg.ChatBurst,
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.MaxBodySize(defaultMaxBody))

			r.Post("/auth/signup", cfg.Auth.Signup)
			r.Post("/auth/login", cfg.Auth.Login)
			r.With(requireAccount).Get("/auth/me", cfg.Auth.Me)
			r.With(requireAccount).Get("/history", cfg.History.List)
		})

		// The form envelope around the image needs some headroom.
		r.With(chatLimit, middleware.MaxBodySize(cfg.MaxImageSize+defaultMaxBody)).Post("/chat", cfg.Chat.Chat)
	})

	// 404 and 405 handlers
	r.NotFound(cfg.Root.NotFound)
	r.MethodNotAllowed(cfg.Root.MethodNotAllowed)

	return r
}
