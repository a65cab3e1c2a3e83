// Package api assembles the HTTP server: identity, dashboard reads, actions,
// admin triggers, health and metrics.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aimd54/campus-rewards/internal/api/actions"
	"github.com/aimd54/campus-rewards/internal/api/dashboard"
	"github.com/aimd54/campus-rewards/internal/api/identity"
	"github.com/aimd54/campus-rewards/internal/config"
	prommetrics "github.com/aimd54/campus-rewards/internal/metrics"
	"github.com/aimd54/campus-rewards/pkg/logger"
)

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// Options configures the router.
type Options struct {
	Dashboard *dashboard.Handler
	Actions   *actions.Handler
	Metrics   config.PrometheusConfig
	// Checks are run by /health, keyed by dependency name.
	Checks map[string]HealthCheck
	Log    *logger.Logger
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(opts.Log), identity.Middleware())

	router.GET("/health", health(opts.Checks))

	if opts.Metrics.Enabled {
		path := opts.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(promhttp.Handler()))
	}

	v1 := router.Group("/api/v1")
	if opts.Dashboard != nil {
		opts.Dashboard.Register(v1)
	}
	if opts.Actions != nil {
		opts.Actions.Register(v1.Group("/actions"), v1.Group("/admin", identity.RequireAdmin()))
	}

	return router
}

func health(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		state := "healthy"
		if status != http.StatusOK {
			state = "unhealthy"
		}
		c.JSON(status, gin.H{
			"status": state,
			"checks": results,
		})
	}
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		status := c.Writer.Status()
		prommetrics.ObserveHTTPRequest(c.Request.Method, route, strconv.Itoa(status), elapsed.Seconds())

		if log == nil {
			return
		}
		log.Debug().
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("duration", elapsed).
			Msg("HTTP request")
	}
}
