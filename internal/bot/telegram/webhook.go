package telegram

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// SecretHeader carries the secret token configured with setWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler returns a gin handler for Telegram webhook calls. When secret is non-empty the
// request must carry it in SecretHeader. Parsed updates are always acknowledged with 200 so the
// platform does not redeliver them; processing failures are logged by the Dispatcher.
func WebhookHandler(d *Dispatcher, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret != "" && subtle.ConstantTimeCompare([]byte(c.GetHeader(SecretHeader)), []byte(secret)) != 1 {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		var update tgbotapi.Update
		if err := c.ShouldBindJSON(&update); err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		_ = d.Dispatch(c.Request.Context(), update)
		c.Status(http.StatusOK)
	}
}
