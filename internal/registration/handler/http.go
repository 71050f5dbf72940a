// Package handler exposes the registration service over HTTP JSON.
package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/backend/internal/logger"
	"storefront/backend/internal/registration/service"
)

// Registrar is the registration service as seen by the HTTP layer.
type Registrar interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error)
	CheckStatus(ctx context.Context, phone, token string) (*service.StatusResult, error)
}

// Handler serves POST /register and POST /check-phone-verification.
type Handler struct {
	svc          Registrar
	botUsername  string
	pollInterval int
}

// NewHandler returns a Handler. botUsername builds the deep link; pollIntervalSeconds is advertised to clients.
func NewHandler(svc Registrar, botUsername string, pollIntervalSeconds int) *Handler {
	return &Handler{svc: svc, botUsername: botUsername, pollInterval: pollIntervalSeconds}
}

// Mount adds the routes to r behind mw (e.g. rate limiting).
func (h *Handler) Mount(r gin.IRouter, mw ...gin.HandlerFunc) {
	g := r.Group("", mw...)
	g.POST("/register", h.register)
	g.POST("/check-phone-verification", h.checkStatus)
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Username  string `json:"username"`
	Address   string `json:"address"`
}

type registerResponse struct {
	VerificationToken      string `json:"verificationToken"`
	Phone                  string `json:"phone"`
	NeedsPhoneVerification bool   `json:"needsPhoneVerification"`
	BotLink                string `json:"botLink,omitempty"`
	PollIntervalSeconds    int    `json:"pollIntervalSeconds"`
}

type checkRequest struct {
	Phone             string `json:"phone"`
	VerificationToken string `json:"verificationToken"`
}

type userView struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Username      string `json:"username,omitempty"`
	Phone         string `json:"phone"`
	PhoneVerified bool   `json:"phoneVerified"`
}

type checkResponse struct {
	Verified     bool       `json:"verified"`
	User         *userView  `json:"user,omitempty"`
	AutoLogin    bool       `json:"autoLogin,omitempty"`
	AccessToken  string     `json:"accessToken,omitempty"`
	RefreshToken string     `json:"refreshToken,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
}

type errorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Message: "invalid JSON body"})
		return
	}
	res, err := h.svc.Register(c.Request.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Username:  req.Username,
		Address:   req.Address,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, registerResponse{
		VerificationToken:      res.Token,
		Phone:                  res.Phone,
		NeedsPhoneVerification: true,
		BotLink:                DeepLink(h.botUsername, res.Token),
		PollIntervalSeconds:    h.pollInterval,
	})
}

func (h *Handler) checkStatus(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Message: "invalid JSON body"})
		return
	}
	res, err := h.svc.CheckStatus(c.Request.Context(), req.Phone, req.VerificationToken)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !res.Verified {
		c.JSON(http.StatusOK, checkResponse{Verified: false})
		return
	}
	out := checkResponse{Verified: true, AutoLogin: res.AutoLogin}
	if u := res.User; u != nil {
		out.User = &userView{
			ID:            u.ID,
			Email:         u.Email,
			FirstName:     u.FirstName,
			LastName:      u.LastName,
			Username:      u.Username,
			Phone:         u.Phone,
			PhoneVerified: u.PhoneVerified,
		}
	}
	if t := res.Tokens; t != nil {
		exp := t.ExpiresAt
		out.AccessToken = t.AccessToken
		out.RefreshToken = t.RefreshToken
		out.ExpiresAt = &exp
	}
	c.JSON(http.StatusOK, out)
}

// writeError maps service errors to HTTP. Anything not caused by the request is a generic 500.
func (h *Handler) writeError(c *gin.Context, err error) {
	log := logger.FromContext(c.Request.Context())
	if !service.IsClientError(err) {
		log.Error("registration request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Message: "internal error"})
		return
	}
	log.Debug("registration request rejected", zap.String("path", c.FullPath()), zap.Error(err))

	var validationErr *service.ValidationError
	var weakErr *service.WeakPasswordError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, errorResponse{Message: validationErr.Message, Errors: validationErr.Fields})
	case errors.As(err, &weakErr):
		c.JSON(http.StatusBadRequest, errorResponse{
			Message: "password is too weak",
			Errors:  map[string]string{"password": weakErr.Error()},
		})
	default:
		c.JSON(http.StatusBadRequest, errorResponse{Message: err.Error()})
	}
}

// DeepLink returns the t.me link that opens the bot with token as the start parameter.
// An empty username yields "".
func DeepLink(botUsername, token string) string {
	if botUsername == "" {
		return ""
	}
	return "https://t.me/" + url.PathEscape(botUsername) + "?start=" + url.QueryEscape(token)
}
