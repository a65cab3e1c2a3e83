package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/aimd54/campus-rewards/internal/api"
	"github.com/aimd54/campus-rewards/internal/api/actions"
	"github.com/aimd54/campus-rewards/internal/api/dashboard"
	"github.com/aimd54/campus-rewards/internal/repository"
	"github.com/aimd54/campus-rewards/internal/service/scheduler"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the reset scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "Apply pending migrations before serving")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if serveMigrate {
		version, err := repository.Migrate(a.cfg.Database.Postgres.URL())
		if err != nil {
			return err
		}
		a.log.Info().Uint("version", version).Msg("Database migrated")
	}

	if a.cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.NewRouter(api.Options{
		Dashboard: dashboard.NewHandler(a.leaderboard, a.ledger, a.log.Component("dashboard")),
		Actions:   actions.NewHandler(a.rewards, a.revocation, a.reset, a.log.Component("actions")),
		Metrics:   a.cfg.Metrics.Prometheus,
		Checks: map[string]api.HealthCheck{
			"database": func(context.Context) error { return a.db.Health() },
			"redis":    a.cache.Health,
		},
		Log: a.log.Component("http"),
	})

	sched := scheduler.NewService(&a.cfg.Scheduler, a.reset, a.log.Component("scheduler"))
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Int("port", a.cfg.Server.Port).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		a.log.Info().Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}
