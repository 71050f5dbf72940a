package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/backend/internal/server/reqctx"
)

const bearerPrefix = "bearer "

// AccessValidator validates access tokens. *security.TokenProvider implements it.
type AccessValidator interface {
	ValidateAccess(token string) (sessionID, userID string, err error)
}

// RequireAccess rejects requests without a valid Bearer access token and stores the
// authenticated user_id and session_id in the request context.
func RequireAccess(tokens AccessValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing or invalid authorization"})
			return
		}
		sessionID, userID, err := tokens.ValidateAccess(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing or invalid authorization"})
			return
		}
		c.Request = c.Request.WithContext(reqctx.WithIdentity(c.Request.Context(), userID, sessionID))
		c.Next()
	}
}

// extractBearer returns the token from an Authorization header value, or "" if missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
