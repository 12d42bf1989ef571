package app

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyellow/tucurso-bot/internal/buildinfo"
	"github.com/garyellow/tucurso-bot/internal/config"
	"github.com/garyellow/tucurso-bot/internal/webhook"
)

// newRouter mounts the middleware chain and every route.
func (a *Application) newRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(sentryMiddleware())
	router.Use(securityHeadersMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(a.logger))

	a.relay.Register(router)

	router.GET("/livez", a.livenessCheck)
	router.HEAD("/livez", a.livenessCheck)
	router.GET("/readyz", a.readinessCheck)
	router.HEAD("/readyz", a.readinessCheck)
	router.GET("/metrics",
		metricsAuthMiddleware(a.cfg.MetricsAuthEnabled, a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	if a.line != nil {
		router.POST(webhook.Path, a.line.Handle)
	}
	return router
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (a *Application) features() map[string]bool {
	return map[string]bool{
		"remote_nlu":    a.remote != nil,
		"line":          a.line != nil,
		"model_polling": a.cfg.ModelSource == config.ModelSourceR2 && a.cfg.ModelPollInterval > 0,
	}
}

// readinessCheck reports 503 until a model is loaded and while the tracker
// store is unreachable.
func (a *Application) readinessCheck(c *gin.Context) {
	status := a.readiness.Status()
	if !status.Ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": status.Reason,
			"model":  status,
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheck)
	defer cancel()
	if err := a.store.Ping(ctx); err != nil {
		a.logger.WithError(err).Warn("Readiness check failed: tracker store unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "tracker store unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"model":    status,
		"store":    a.store.Backend(),
		"features": a.features(),
		"build":    buildinfo.Get(),
	})
}
