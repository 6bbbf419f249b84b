package handler

import (
	"net/http"
	"strconv"

	"token-alert-bot/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	if n > maxLimit {
		n = maxLimit
	}
	return n, true
}

// RecentAlerts lists dispatched alerts, newest first.
func (h *Handler) RecentAlerts(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.recent-alerts")
	defer span.End()

	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int("limit", limit))

	alerts, err := h.journal.RecentAlerts(ctx, limit)
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// RecentActions lists Buy/Ignore choices, newest first. An optional kind
// query narrows the latest limit entries to one action.
func (h *Handler) RecentActions(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.recent-actions")
	defer span.End()

	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int("limit", limit))

	var kind domain.ActionKind
	if raw := c.Query("kind"); raw != "" {
		k, err := domain.ParseActionKind(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		kind = k
		span.SetAttributes(attribute.String("action.kind", string(kind)))
	}

	actions, err := h.journal.RecentActions(ctx, limit)
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if kind != "" {
		filtered := make([]domain.ActionRecord, 0, len(actions))
		for _, a := range actions {
			if a.Kind == kind {
				filtered = append(filtered, a)
			}
		}
		actions = filtered
	}
	c.JSON(http.StatusOK, gin.H{"actions": actions})
}
