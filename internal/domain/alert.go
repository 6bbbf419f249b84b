package domain

import (
	"fmt"
	"strings"
	"time"
)

type ChatID int64

type ActionKind string

const (
	ActionAcquire ActionKind = "acquire"
	ActionDismiss ActionKind = "dismiss"
)

// ActionKinds lists the two actions every alert carries, in button order.
var ActionKinds = []ActionKind{ActionAcquire, ActionDismiss}

func ParseActionKind(s string) (ActionKind, error) {
	switch k := ActionKind(strings.ToLower(strings.TrimSpace(s))); k {
	case ActionAcquire, ActionDismiss:
		return k, nil
	default:
		return "", fmt.Errorf("unknown action kind %q", s)
	}
}

type Action struct {
	Kind    ActionKind `json:"kind"`
	Address string     `json:"address"`
	Label   string     `json:"label"`
}

type AlertVariant string

const (
	VariantText  AlertVariant = "text"
	VariantPhoto AlertVariant = "photo"
)

// Alert is a composed, dispatch-ready notification for one token.
type Alert struct {
	ID           string         `json:"id"`
	Token        Token          `json:"token"`
	SafetyPassed bool           `json:"safety_passed"`
	Analysis     AnalysisRecord `json:"analysis"`
	Text         string         `json:"text"`
	Variant      AlertVariant   `json:"variant"`
	Actions      [2]Action      `json:"actions"`
	ComposedAt   time.Time      `json:"composed_at"`
}

// MessageRef identifies a message already delivered to a chat.
type MessageRef struct {
	ChatID    ChatID `json:"chat_id"`
	MessageID int    `json:"message_id"`
}

// ActionEvent is a user's button selection on a previously sent alert.
type ActionEvent struct {
	ID      string     `json:"id"`
	Kind    ActionKind `json:"kind"`
	Address string     `json:"address"`
	Message MessageRef `json:"message"`
	UserID  int64      `json:"user_id"`
}

// AlertRecord is the journal entry written for each dispatch attempt.
type AlertRecord struct {
	AlertID   string       `json:"alert_id"`
	ChatID    ChatID       `json:"chat_id"`
	Address   string       `json:"address"`
	Name      string       `json:"name"`
	Variant   AlertVariant `json:"variant"`
	MessageID int          `json:"message_id,omitempty"`
	Delivered bool         `json:"delivered"`
	Error     string       `json:"error,omitempty"`
	SentAt    time.Time    `json:"sent_at"`
}

// ActionRecord is the journal entry for a user's choice.
type ActionRecord struct {
	ChatID    ChatID     `json:"chat_id"`
	MessageID int        `json:"message_id"`
	UserID    int64      `json:"user_id"`
	Kind      ActionKind `json:"kind"`
	Address   string     `json:"address"`
	ChosenAt  time.Time  `json:"chosen_at"`
}

// CycleResult counts what happened to each candidate in one poll cycle.
type CycleResult struct {
	Candidates  int `json:"candidates"`
	AlreadySeen int `json:"already_seen"`
	Unsafe      int `json:"unsafe"`
	NoData      int `json:"no_data"`
	Dispatched  int `json:"dispatched"`
	Failed      int `json:"failed"`
}
