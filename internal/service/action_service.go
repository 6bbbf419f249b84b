package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"token-alert-bot/internal/alert"
	"token-alert-bot/internal/domain"
	"token-alert-bot/internal/journal"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var ErrUnknownAction = errors.New("unknown action")

// ActionService reacts to a user pressing one of an alert's buttons. It holds
// no per-event state and never touches the dedup ledger, so it is safe to call
// concurrently with itself and with running pipelines.
type ActionService struct {
	tracer    trace.Tracer
	responder ActionResponder
	journal   journal.Journal
	now       func() time.Time
}

func NewActionService(tracer trace.Tracer, responder ActionResponder, j journal.Journal) *ActionService {
	return &ActionService{tracer: tracer, responder: responder, journal: j, now: time.Now}
}

func (s *ActionService) Handle(ctx context.Context, ev domain.ActionEvent) error {
	ctx, span := s.tracer.Start(ctx, "action.handle")
	defer span.End()
	span.SetAttributes(
		attribute.String("action.kind", string(ev.Kind)),
		attribute.String("token.address", ev.Address),
		attribute.Int64("chat_id", int64(ev.Message.ChatID)),
	)

	if err := s.responder.AcknowledgeAction(ctx, ev.ID); err != nil {
		log.Warn().Err(err).Str("event_id", ev.ID).Msg("acknowledge action failed")
	}

	if ev.Kind != domain.ActionAcquire && ev.Kind != domain.ActionDismiss {
		return fmt.Errorf("%w: %q", ErrUnknownAction, ev.Kind)
	}

	retracted, err := s.responder.RetractActionControls(ctx, ev.Message)
	switch {
	case err != nil:
		span.RecordError(err)
		log.Warn().Err(err).Int("message_id", ev.Message.MessageID).Msg("retract action controls failed")
	case !retracted:
		log.Debug().Int("message_id", ev.Message.MessageID).Msg("action controls already retracted")
		return nil
	}

	s.record(ctx, ev)

	if err := s.responder.ReplyText(ctx, ev.Message.ChatID, alert.ConfirmationText(ev.Kind, ev.Address)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("send confirmation: %w", err)
	}
	return nil
}

func (s *ActionService) record(ctx context.Context, ev domain.ActionEvent) {
	if s.journal == nil {
		return
	}
	err := s.journal.RecordAction(ctx, domain.ActionRecord{
		ChatID:    ev.Message.ChatID,
		MessageID: ev.Message.MessageID,
		UserID:    ev.UserID,
		Kind:      ev.Kind,
		Address:   ev.Address,
		ChosenAt:  s.now().UTC(),
	})
	if err != nil {
		log.Warn().Err(err).Str("address", ev.Address).Msg("journal write failed")
	}
}
