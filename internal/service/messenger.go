package service

import (
	"context"

	"token-alert-bot/internal/domain"
)

// AlertSender delivers composed alerts. Both methods attach the alert's two
// action buttons.
type AlertSender interface {
	SendText(ctx context.Context, chatID domain.ChatID, text string, actions [2]domain.Action) (domain.MessageRef, error)
	SendImageWithCaption(ctx context.Context, chatID domain.ChatID, imageURL, caption string, actions [2]domain.Action) (domain.MessageRef, error)
}

// ActionResponder is the part of the chat transport used when a user presses
// an alert button.
type ActionResponder interface {
	AcknowledgeAction(ctx context.Context, eventID string) error
	// RetractActionControls removes the buttons from ref. It reports false,
	// without error, when they were already removed.
	RetractActionControls(ctx context.Context, ref domain.MessageRef) (bool, error)
	ReplyText(ctx context.Context, chatID domain.ChatID, text string) error
}

// Messenger is the full transport surface the core depends on.
type Messenger interface {
	AlertSender
	ActionResponder
}
