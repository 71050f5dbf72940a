// Package handler exposes the authenticated session created by auto-login.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/backend/internal/logger"
	"storefront/backend/internal/server/reqctx"
	sessiondomain "storefront/backend/internal/session/domain"
	userdomain "storefront/backend/internal/user/domain"
)

// SessionStore is the session persistence used by the handler.
type SessionStore interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	Revoke(ctx context.Context, id string) error
}

// UserStore loads users by id.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// Handler serves GET /session and POST /logout. Routes must sit behind middleware.RequireAccess.
type Handler struct {
	sessions SessionStore
	users    UserStore
	now      func() time.Time
}

// NewHandler returns a Handler.
func NewHandler(sessions SessionStore, users UserStore) *Handler {
	return &Handler{sessions: sessions, users: users, now: time.Now}
}

// Mount adds the routes to r behind mw.
func (h *Handler) Mount(r gin.IRouter, mw ...gin.HandlerFunc) {
	g := r.Group("", mw...)
	g.GET("/session", h.current)
	g.POST("/logout", h.logout)
}

type sessionResponse struct {
	SessionID     string    `json:"sessionId"`
	ExpiresAt     time.Time `json:"expiresAt"`
	UserID        string    `json:"userId"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"displayName"`
	Phone         string    `json:"phone"`
	PhoneVerified bool      `json:"phoneVerified"`
}

func (h *Handler) current(c *gin.Context) {
	sess, ok := h.activeSession(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	u, err := h.users.GetByID(ctx, sess.UserID)
	if err != nil {
		logger.FromContext(ctx).Error("load session user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}
	if u == nil || u.Status != userdomain.UserStatusActive {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "session is no longer valid"})
		return
	}
	c.JSON(http.StatusOK, sessionResponse{
		SessionID:     sess.ID,
		ExpiresAt:     sess.ExpiresAt,
		UserID:        u.ID,
		Email:         u.Email,
		DisplayName:   u.DisplayName(),
		Phone:         u.Phone,
		PhoneVerified: u.PhoneVerified,
	})
}

func (h *Handler) logout(c *gin.Context) {
	sess, ok := h.activeSession(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.sessions.Revoke(ctx, sess.ID); err != nil {
		logger.FromContext(ctx).Error("revoke session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}
	c.Status(http.StatusNoContent)
}

// activeSession loads the session named by the access token. It writes the error response itself.
func (h *Handler) activeSession(c *gin.Context) (*sessiondomain.Session, bool) {
	ctx := c.Request.Context()
	sessionID, _ := reqctx.SessionID(ctx)
	userID, _ := reqctx.UserID(ctx)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "missing or invalid authorization"})
		return nil, false
	}
	sess, err := h.sessions.GetByID(ctx, sessionID)
	if err != nil {
		logger.FromContext(ctx).Error("load session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return nil, false
	}
	if sess == nil || sess.UserID != userID || !sess.Active(h.now()) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "session is no longer valid"})
		return nil, false
	}
	return sess, true
}
