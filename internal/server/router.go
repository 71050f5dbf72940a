// Package server assembles the HTTP router: global middleware, registration and session
// routes, the bot webhook, health and metrics.
package server

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	healthhandler "storefront/backend/internal/health/handler"
	"storefront/backend/internal/metrics"
	registrationhandler "storefront/backend/internal/registration/handler"
	"storefront/backend/internal/server/middleware"
	sessionhandler "storefront/backend/internal/session/handler"
)

// Route paths outside the registration handler.
const (
	HealthPath     = "/health"
	MetricsPath    = "/metrics"
	BotWebhookPath = "/bot/webhook"
)

// Deps holds the handlers mounted by NewRouter. Nil handlers are not mounted.
type Deps struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// CORSOrigins lists allowed origins; empty allows any origin without credentials.
	CORSOrigins []string
	// TrustedProxies are the IPs or CIDRs whose X-Forwarded-For / X-Real-IP headers are believed.
	// Empty trusts none and the client IP is the TCP peer.
	TrustedProxies []string

	Registration *registrationhandler.Handler
	// RegisterLimiter throttles the registration routes per client IP.
	RegisterLimiter *middleware.RateLimiter
	Session         *sessionhandler.Handler
	// Tokens validates access tokens for the session routes.
	Tokens     middleware.AccessValidator
	Health     *healthhandler.Handler
	BotWebhook gin.HandlerFunc
}

// NewRouter returns a gin engine with every route in deps mounted. It fails only on a malformed
// trusted proxy entry.
func NewRouter(deps Deps) (*gin.Engine, error) {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	if err := r.SetTrustedProxies(deps.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(
		middleware.RequestContext(log, HealthPath, MetricsPath),
		middleware.Recovery(),
		cors.New(corsConfig(deps.CORSOrigins)),
	)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
		r.GET(MetricsPath, gin.WrapH(deps.Metrics.Handler()))
	}
	if deps.Health != nil {
		r.GET(HealthPath, deps.Health.Check)
	}

	if deps.Registration != nil {
		var mw []gin.HandlerFunc
		if deps.RegisterLimiter != nil {
			mw = append(mw, deps.RegisterLimiter.Middleware())
		}
		deps.Registration.Mount(r, mw...)
	}
	if deps.Session != nil && deps.Tokens != nil {
		deps.Session.Mount(r, middleware.RequireAccess(deps.Tokens))
	}
	if deps.BotWebhook != nil {
		r.POST(BotWebhookPath, deps.BotWebhook)
	}
	return r, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
