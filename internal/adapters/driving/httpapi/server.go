package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/custodia-labs/medrag/internal/core/ports/driving"
	"github.com/custodia-labs/medrag/internal/logger"
	"github.com/custodia-labs/medrag/internal/telemetry"
)

// DefaultMaxUploadBytes bounds multipart bodies when no limit is configured.
const DefaultMaxUploadBytes int64 = 50 << 20

// Capability reports one AI capability in the health response.
type Capability struct {
	Configured bool   `json:"configured"`
	Model      string `json:"model,omitempty"`
	Breaker    string `json:"breaker,omitempty"`
}

// HealthReport is the body of GET /api/health.
type HealthReport struct {
	Status        string                `json:"status"`
	Version       string                `json:"version"`
	Timestamp     time.Time             `json:"timestamp"`
	VectorBackend string                `json:"vector_backend"`
	DocumentStore string                `json:"document_store"`
	BlobStore     string                `json:"blob_store"`
	Capabilities  map[string]Capability `json:"capabilities"`
}

// HealthFunc fills in the runtime parts of a health report.
type HealthFunc func(ctx context.Context) HealthReport

// Config configures the server.
type Config struct {
	// Addr is the listen address.
	Addr string
	// AllowedOrigins lists CORS origins. Empty disables CORS headers.
	AllowedOrigins []string
	// MaxUploadBytes bounds upload bodies.
	MaxUploadBytes int64
	// Health reports capability status; nil reports only liveness.
	Health HealthFunc
	// Metrics records request counts. May be nil.
	Metrics *telemetry.Metrics
	// Tracing enables otelgin spans.
	Tracing bool
}

// Server serves the HTTP API.
type Server struct {
	registry driving.DocumentRegistry
	cfg      Config
	router   *gin.Engine
}

// New creates a server and registers its routes.
func New(registry driving.DocumentRegistry, cfg Config) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}

	router := gin.New()
	router.Use(RequestID())
	router.Use(Recovery())
	router.Use(RequestLogger(cfg.Metrics))
	if cfg.Tracing {
		router.Use(otelgin.Middleware(telemetry.ServiceName))
	}
	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
			ExposeHeaders:    []string{"Content-Length", requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	s := &Server{registry: registry, cfg: cfg, router: router}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.router.Group("/api")
	api.GET("/health", s.health)
	api.POST("/upload", s.upload)
	api.POST("/analyze/:id", s.analyze)
	api.POST("/chat", s.chat)
	api.GET("/documents", s.listDocuments)
	api.GET("/documents/:id", s.getDocument)
	api.DELETE("/documents/:id", s.deleteDocument)
	api.GET("/events", s.events)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("HTTP API shutting down")
	return srv.Shutdown(shutdownCtx)
}
