// Package health serves liveness and readiness over HTTP and the standard gRPC health service.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// DatabasePinger defines the interface for checking that the database answers queries.
type DatabasePinger interface {
	HealthCheck(ctx context.Context) error
}

// Check reports why a dependency is not ready, or nil
type Check func(ctx context.Context) error

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
}

// ReadyResponse represents the JSON response for readiness check endpoints.
type ReadyResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks,omitempty"`
	Duration string            `json:"duration,omitempty"`
}

// Server answers health probes for the advisory service.
type Server struct {
	serviceName string
	version     string
	logger      *logrus.Entry
	db          DatabasePinger
	checks      map[string]Check
	grpcHealth  *grpchealth.Server
	grpcServer  *grpc.Server
	mu          sync.RWMutex
	ready       bool
}

// Config holds the configuration for the health server.
type Config struct {
	ServiceName string
	Version     string
	Logger      *logrus.Logger
	DB          DatabasePinger
	// Checks are evaluated on every readiness probe and gRPC refresh
	Checks map[string]Check
}

// NewServer creates a new health check server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}
	checks := cfg.Checks
	if checks == nil {
		checks = map[string]Check{}
	}
	return &Server{
		serviceName: cfg.ServiceName,
		version:     cfg.Version,
		logger:      logger.WithField("component", "health"),
		db:          cfg.DB,
		checks:      checks,
		grpcHealth:  grpchealth.NewServer(),
	}
}

// SetReady marks the server as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	s.ready = ready
	s.mu.Unlock()
	s.Refresh(context.Background())
}

// IsReady returns whether the server is ready.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Handler routes /health, /live and /ready
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/live", s.handleLive)
	mux.HandleFunc("/ready", s.handleReady)
	return mux
}

// GRPCHealth exposes the gRPC health implementation
func (s *Server) GRPCHealth() healthpb.HealthServer {
	return s.grpcHealth
}

// StartGRPC serves grpc.health.v1.Health on the port until ctx is done, refreshing the
// serving status on an interval.
func (s *Server) StartGRPC(ctx context.Context, port int, interval time.Duration) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port %d: %w", port, err)
	}
	s.grpcServer = grpc.NewServer()
	healthpb.RegisterHealthServer(s.grpcServer, s.grpcHealth)
	s.Refresh(ctx)

	go func() {
		s.logger.WithField("port", port).Info("gRPC health server starting")
		if err := s.grpcServer.Serve(lis); err != nil && err != grpc.ErrServerStopped {
			s.logger.WithError(err).Error("gRPC health server error")
		}
	}()

	go func() {
		if interval <= 0 {
			interval = 15 * time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.Shutdown()
				return
			case <-ticker.C:
				s.Refresh(ctx)
			}
		}
	}()
	return nil
}

// Shutdown stops the gRPC server and reports NOT_SERVING to in-flight watchers.
func (s *Server) Shutdown() {
	s.grpcHealth.Shutdown()
	if s.grpcServer != nil {
		s.logger.Info("gRPC health server shutting down")
		s.grpcServer.GracefulStop()
	}
}

// Refresh re-evaluates readiness and publishes it to the gRPC health service
func (s *Server) Refresh(ctx context.Context) bool {
	checks, healthy := s.evaluate(ctx)
	status := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		s.logger.WithField("checks", checks).Debug("Service not ready")
	}
	s.grpcHealth.SetServingStatus("", status)
	s.grpcHealth.SetServingStatus(s.serviceName, status)
	return healthy
}

func (s *Server) evaluate(ctx context.Context) (map[string]string, bool) {
	checks := make(map[string]string)
	allHealthy := true

	// Check if manually marked as not ready
	if !s.IsReady() {
		allHealthy = false
		checks["service"] = "not_ready"
	} else {
		checks["service"] = "ok"
	}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := s.db.HealthCheck(ctx); err != nil {
			allHealthy = false
			checks["database"] = fmt.Sprintf("error: %v", err)
		} else {
			checks["database"] = "ok"
		}
	}

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			allHealthy = false
			checks[name] = fmt.Sprintf("error: %v", err)
		} else {
			checks[name] = "ok"
		}
	}
	return checks, allHealthy
}

// handleHealth handles the /health endpoint - basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   s.serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.version,
	})
}

// handleLive handles the /live endpoint - kubernetes liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Service: s.serviceName})
}

// handleReady handles the /ready endpoint - checks the database, model and bankroll.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	checks, healthy := s.evaluate(r.Context())

	response := ReadyResponse{
		Service:  s.serviceName,
		Checks:   checks,
		Duration: time.Since(start).String(),
	}
	if healthy {
		response.Status = "ok"
		writeJSON(w, http.StatusOK, response)
		return
	}
	response.Status = "not_ready"
	writeJSON(w, http.StatusServiceUnavailable, response)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
