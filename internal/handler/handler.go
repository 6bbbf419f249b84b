package handler

import (
	"token-alert-bot/internal/domain"
	"token-alert-bot/internal/job"
	"token-alert-bot/internal/journal"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type SessionLister interface {
	Snapshot() []job.SessionInfo
	Info(chatID domain.ChatID) (job.SessionInfo, bool)
}

type Handler struct {
	tracer   trace.Tracer
	sessions SessionLister
	journal  journal.Journal
	apiKey   string
}

func New(tracer trace.Tracer, sessions SessionLister, j journal.Journal, apiKey string) *Handler {
	return &Handler{
		tracer:   tracer,
		sessions: sessions,
		journal:  j,
		apiKey:   apiKey,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api", APIKeyAuth(h.apiKey))
	api.GET("/sessions", h.ListSessions)
	api.GET("/sessions/:chat_id", h.GetSession)
	api.GET("/alerts", h.RecentAlerts)
	api.GET("/actions", h.RecentActions)
}
