// Package server exposes the bid analysis over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/tender-analyzer/internal/model"
	"github.com/spigell/tender-analyzer/internal/pipeline"
)

const (
	AnalyzePath = "/api/analyze-bids"
	HealthPath  = "/health"

	defaultListen        = ":4000"
	defaultMaxUploadSize = 64 << 20
	multipartMemory      = 32 << 20
	shutdownTimeout      = 10 * time.Second
)

type Config struct {
	Listen         string   `mapstructure:"listen"`
	AllowedOrigins []string `mapstructure:"allowed-origins"`
	MaxUploadSize  int64    `mapstructure:"max-upload-size"`
	// RateLimit is the number of analyze requests per second. Zero disables limiting.
	RateLimit float64 `mapstructure:"rate-limit"`
	RateBurst int     `mapstructure:"rate-burst"`
	TokenFile string  `mapstructure:"token-file"`
}

// Processor runs one analysis. *pipeline.Pipeline satisfies it.
type Processor interface {
	ProcessBids(ctx context.Context, logger *zap.Logger, tenderText string, files []model.BidFile) pipeline.Outcome
}

type Server struct {
	cfg       Config
	token     string
	processor Processor
	logger    *zap.Logger
	limiter   *rate.Limiter
	newRunID  func() string
	version   string
}

// New builds a server. An empty token disables authentication.
func New(cfg Config, token string, processor Processor, logger *zap.Logger, version string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Listen == "" {
		cfg.Listen = defaultListen
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = defaultMaxUploadSize
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Server{
		cfg:       cfg,
		token:     token,
		processor: processor,
		logger:    logger,
		limiter:   limiter,
		newRunID:  uuid.NewString,
		version:   version,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(s.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{RunIDHeader},
		MaxAge:         300,
	}))
	r.Use(middleware.Compress(5, "application/json"))

	r.Get(HealthPath, s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Use(s.authenticate)
		r.Post(AnalyzePath, s.handleAnalyze)
	})

	return r
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", zap.String("listen", s.cfg.Listen), zap.Bool("auth", s.token != ""))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrap(err, "listen")
	case <-ctx.Done():
	}

	s.logger.Info("stopping http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "shutdown")
	}
	return nil
}
