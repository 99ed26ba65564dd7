package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/bet-advisor/internal/api"
	"github.com/yourusername/bet-advisor/internal/health"
	"github.com/yourusername/bet-advisor/internal/metrics"
	"github.com/yourusername/bet-advisor/internal/models"
	"github.com/yourusername/bet-advisor/internal/scheduler"
)

const grpcHealthInterval = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the advisory API with health checks and scheduled refits",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.warmUp(ctx); err != nil && !errors.Is(err, models.ErrInsufficientHistory) {
		return fmt.Errorf("failed to fit models: %w", err)
	}

	checks := map[string]health.Check{
		"models": func(context.Context) error {
			if !a.trainer.Registry().Ready() {
				return models.ErrNoModel
			}
			return nil
		},
		"bankroll": func(context.Context) error {
			if critical := a.ledger.Status().CriticalAlerts(); len(critical) > 0 {
				return fmt.Errorf("%w: %s", models.ErrBankrollHalted, critical[0].Type)
			}
			return nil
		},
	}
	if a.cache != nil {
		checks["redis"] = a.cache.Ping
	}
	healthCfg := health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Logger:      log,
		Checks:      checks,
	}
	if a.db != nil {
		healthCfg.DB = a.db
	}
	healthServer := health.NewServer(healthCfg)
	defer healthServer.Shutdown()

	server, err := api.NewServer(cfg.API, a.advisor, a.ledger, a.hub, healthServer.Handler(), log)
	if err != nil {
		return err
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.NewScheduler(a.advisor, log)
		if err := sched.ScheduleRefit(cfg.Scheduler.RefitCron); err != nil {
			return err
		}
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Start(gctx) })
	if cfg.API.GRPCPort != 0 {
		if err := healthServer.StartGRPC(gctx, cfg.API.GRPCPort, grpcHealthInterval); err != nil {
			return err
		}
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Port != 0 && cfg.Metrics.Port != cfg.API.Port {
		g.Go(func() error { return serveMetrics(gctx, cfg.Metrics.Port, cfg.Metrics.Path) })
	}

	healthServer.SetReady(true)
	log.WithFields(logrus.Fields{
		"api_port":   cfg.API.Port,
		"grpc_port":  cfg.API.GRPCPort,
		"scheduler":  cfg.Scheduler.Enabled,
		"redis":      cfg.Redis.Enabled,
		"risk_level": a.ledger.Status().RiskLevel,
	}).Info("Advisor started")

	err = g.Wait()
	healthServer.SetReady(false)
	log.Info("Advisor shut down")
	return err
}

// serveMetrics exposes the prometheus handler on its own port
func serveMetrics(ctx context.Context, port int, path string) error {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", port).Info("Metrics server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	}
}
