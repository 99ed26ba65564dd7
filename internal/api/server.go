// Package api exposes the advisory engine over HTTP with a websocket stream of alerts,
// recommendations and settlements.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourusername/bet-advisor/internal/config"
	"github.com/yourusername/bet-advisor/internal/metrics"
	"github.com/yourusername/bet-advisor/internal/models"
)

// Advisor is the advisory surface the API drives
type Advisor interface {
	Advise(ctx context.Context, matchID string) (*models.Recommendation, error)
	Pending(ctx context.Context, matchID string) (*models.Recommendation, error)
	Settle(ctx context.Context, matchID string, settlement models.Settlement) (*models.BetRecord, error)
	SettleMatch(ctx context.Context, matchID string) (*models.BetRecord, error)
	BankrollStatus() models.BankrollState
	FitModels(ctx context.Context, cutoff time.Time) (*models.ModelFitReport, error)
}

// Bankroll exposes the ledger's history and reset
type Bankroll interface {
	Records() []models.BetRecord
	Reset(ctx context.Context, newCapital *decimal.Decimal) error
}

// Server is the HTTP API
type Server struct {
	advisor  Advisor
	bankroll Bankroll
	hub      *Hub
	health   http.Handler
	cfg      config.APIConfig
	limiter  *rate.Limiter
	logger   *logrus.Entry
	server   *http.Server
	ctx      context.Context
	upgrader websocket.Upgrader
}

// NewServer builds the API. health may be nil.
func NewServer(cfg config.APIConfig, adv Advisor, bankroll Bankroll, hub *Hub, health http.Handler, logger *logrus.Logger) (*Server, error) {
	if adv == nil || bankroll == nil {
		return nil, fmt.Errorf("advisor and bankroll are required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	if hub == nil {
		hub = NewHub(logger)
	}
	s := &Server{
		advisor:  adv,
		bankroll: bankroll,
		hub:      hub,
		health:   health,
		cfg:      cfg,
		logger:   logger.WithField("component", "api"),
		ctx:      context.Background(),
	}
	if cfg.RateLimitPerSecond > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), burst)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s, nil
}

// Router builds the chi router
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if s.health != nil {
		r.Handle("/health", s.health)
		r.Handle("/ready", s.health)
		r.Handle("/live", s.health)
	}
	r.Handle("/metrics", metrics.Handler())
	r.Get("/ws/alerts", s.handleStream)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Use(middleware.Timeout(s.requestTimeout()))

		r.Get("/bankroll", s.handleBankrollStatus)
		r.Get("/bankroll/bets", s.handleBetHistory)
		r.Post("/bankroll/reset", s.handleBankrollReset)
		r.Post("/models/fit", s.handleFitModels)

		r.Route("/matches/{matchID}", func(r chi.Router) {
			r.Post("/advice", s.handleAdvise)
			r.Get("/advice", s.handlePending)
			r.Post("/settlement", s.handleSettle)
		})
	})
	return r
}

// Start serves on the configured port until ctx is done
func (s *Server) Start(ctx context.Context) error {
	s.ctx = ctx
	port := s.cfg.Port
	if port == 0 {
		port = 8080
	}
	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", port),
		Handler:     s.Router(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("port", port).Info("API server starting")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("API server shutting down")
		return s.server.Shutdown(shutdownCtx)
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	}
}

func (s *Server) allowedOrigins() []string {
	if len(s.cfg.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.cfg.AllowedOrigins
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.allowedOrigins() {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) requestTimeout() time.Duration {
	if s.cfg.RequestTimeoutSecs > 0 {
		return time.Duration(s.cfg.RequestTimeoutSecs) * time.Second
	}
	return 30 * time.Second
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("Request handled")
	})
}
