package handler

import (
	"net/http"
	"strconv"

	"token-alert-bot/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// ListSessions returns every running pipeline session.
func (h *Handler) ListSessions(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.list-sessions")
	defer span.End()

	sessions := h.sessions.Snapshot()
	span.SetAttributes(attribute.Int("sessions.count", len(sessions)))
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *Handler) GetSession(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-session")
	defer span.End()

	raw := c.Param("chat_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id: " + raw})
		return
	}
	span.SetAttributes(attribute.Int64("chat_id", id))

	info, ok := h.sessions.Info(domain.ChatID(id))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no running session for chat " + raw})
		return
	}
	c.JSON(http.StatusOK, info)
}
