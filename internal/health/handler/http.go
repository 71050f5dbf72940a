// Package handler serves the readiness endpoint used by load balancers and orchestration.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/backend/internal/logger"
)

const checkTimeout = 2 * time.Second

// Pinger checks a dependency. *sql.DB satisfies it directly; Redis is adapted with PingFunc.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// Handler reports SERVING only when every configured dependency answers.
type Handler struct {
	checks map[string]Pinger
}

// NewHandler returns a Handler. Nil pingers are skipped.
func NewHandler(checks map[string]Pinger) *Handler {
	live := make(map[string]Pinger, len(checks))
	for name, p := range checks {
		if p != nil {
			live[name] = p
		}
	}
	return &Handler{checks: live}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Check handles GET /health: 200 {"status":"SERVING"} or 503 {"status":"NOT_SERVING"} with per-check results.
func (h *Handler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
	defer cancel()

	resp := healthResponse{Status: "SERVING"}
	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
	}
	for name, p := range h.checks {
		if err := p.PingContext(ctx); err != nil {
			logger.FromContext(ctx).Warn("health check failed", zap.String("check", name), zap.Error(err))
			resp.Checks[name] = "error"
			resp.Status = "NOT_SERVING"
			continue
		}
		resp.Checks[name] = "ok"
	}
	if resp.Status != "SERVING" {
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
