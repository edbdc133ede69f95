package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/hookwarden/pkg/domain/interfaces"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// config holds internal HTTP server configuration
type config struct {
	addr          string
	webhookSecret string
	webhookPath   string
}

// Option is a functional option for Server configuration
type Option func(*config)

// WithAddr sets the server address
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// WithWebhookSecret sets the webhook secret
func WithWebhookSecret(secret string) Option {
	return func(c *config) {
		c.webhookSecret = secret
	}
}

// WithWebhookPath sets the route receiving GitHub App webhooks
func WithWebhookPath(path string) Option {
	return func(c *config) {
		c.webhookPath = path
	}
}

// Server represents the HTTP server
type Server struct {
	*http.Server
}

// NewServer creates a new HTTP server
func NewServer(
	logger *slog.Logger,
	dispatcher interfaces.WebhookDispatcher,
	opts ...Option,
) (*Server, error) {
	// Default configuration
	cfg := &config{
		addr:        "localhost:8080",
		webhookPath: "/hooks/github/app",
	}

	// Apply options
	for _, opt := range opts {
		opt(cfg)
	}

	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(logger))
	router.Use(middleware.Recoverer)

	// Health check and metrics
	router.Get("/health", handleHealth(logger, time.Now().UTC()))
	router.Handle("/metrics", promhttp.Handler())

	// Webhook endpoint
	webhookHandler := NewWebhookHandler(cfg.webhookSecret, dispatcher, logger)
	router.Post(cfg.webhookPath, webhookHandler.Handle)

	server := &Server{
		Server: &http.Server{
			Addr:              cfg.addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
	}

	return server, nil
}
