package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/RevCBH/guardian/internal/alert"
)

type handler struct {
	notifier Notifier
	logger   *zap.Logger
}

// health reports liveness.
// GET /healthz
func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// notifyTier notifies one tier of trusted contacts.
// POST /v1/alerts
func (h *handler) notifyTier(c *gin.Context) {
	var req alert.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, alert.Response{Message: "Request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, alert.Response{Message: "Invalid request: " + err.Error()})
		return
	}

	outcome, err := h.notifier.NotifyTier(c.Request.Context(), req)
	switch {
	case errors.Is(err, alert.ErrNoContacts):
		c.JSON(http.StatusOK, alert.Response{Message: alert.NoContactsMessage})
	case errors.Is(err, alert.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, alert.Response{Message: err.Error()})
	case err != nil:
		h.logger.Error("tier notification failed",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("user_id", req.UserID),
			zap.Int("tier", req.Tier),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, alert.Response{Message: "Failed to notify contacts"})
	default:
		c.JSON(http.StatusOK, alert.ResponseFromOutcome(outcome))
	}
}
