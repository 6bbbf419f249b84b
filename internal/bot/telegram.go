package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"token-alert-bot/internal/domain"
	"token-alert-bot/internal/job"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

const (
	startedText        = "📡 Bot started. You'll receive token alerts."
	alreadyRunningText = "📡 Already running. Use /status to see progress."
	stoppedText        = "🛑 Alerts stopped. Send /start to resume."
	notRunningText     = "Not running. Send /start to begin."
)

var ErrNoToken = errors.New("TELEGRAM_BOT_TOKEN not set")

// SessionController starts and stops the per-chat pipeline.
type SessionController interface {
	Start(ctx context.Context, chatID domain.ChatID) bool
	Stop(chatID domain.ChatID) bool
	Info(chatID domain.ChatID) (job.SessionInfo, bool)
}

// ActionHandler reacts to an alert button press.
type ActionHandler interface {
	Handle(ctx context.Context, ev domain.ActionEvent) error
}

type Options struct {
	Token       string
	PollTimeout time.Duration
	// URL and Client override the Bot API endpoint and transport.
	URL    string
	Client *http.Client
	// Offline skips the getMe call made on construction.
	Offline bool
	// Synchronous runs handlers on the polling goroutine.
	Synchronous bool
}

// Bot is the Telegram transport. It sends alerts with inline Buy/Ignore
// buttons and routes commands and button presses back into the core.
type Bot struct {
	tb *tele.Bot

	mu        sync.Mutex
	pending   map[domain.MessageRef]struct{}
	retracted map[domain.MessageRef]struct{}
}

func New(opts Options) (*Bot, error) {
	if opts.Token == "" {
		return nil, ErrNoToken
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 10 * time.Second
	}
	tb, err := tele.NewBot(tele.Settings{
		Token:       opts.Token,
		URL:         opts.URL,
		Client:      opts.Client,
		Offline:     opts.Offline,
		Synchronous: opts.Synchronous,
		ParseMode:   tele.ModeMarkdown,
		Poller:      &tele.LongPoller{Timeout: opts.PollTimeout},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("telegram handler error")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Bot{
		tb:        tb,
		pending:   make(map[domain.MessageRef]struct{}),
		retracted: make(map[domain.MessageRef]struct{}),
	}, nil
}

// Register wires commands and button callbacks. Sessions launched from /start
// live until ctx is cancelled.
func (b *Bot) Register(ctx context.Context, sessions SessionController, actions ActionHandler) {
	r := &router{ctx: ctx, sessions: sessions, actions: actions}
	b.tb.Handle("/start", r.onStart)
	b.tb.Handle("/stop", r.onStop)
	b.tb.Handle("/status", r.onStatus)
	for _, kind := range domain.ActionKinds {
		b.tb.Handle(&tele.Btn{Unique: string(kind)}, r.onAction(kind))
	}
}

// Start polls for updates. Blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.tb.Me.Username).Msg("telegram bot started")
	b.tb.Start()
}

func (b *Bot) Stop() {
	b.tb.Stop()
}

func actionMarkup(actions [2]domain.Action) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	row := make([]tele.Btn, 0, len(actions))
	for _, a := range actions {
		row = append(row, markup.Data(a.Label, string(a.Kind), a.Address))
	}
	markup.Inline(markup.Row(row...))
	return markup
}

func toRef(chatID domain.ChatID, msg *tele.Message) domain.MessageRef {
	ref := domain.MessageRef{ChatID: chatID}
	if msg != nil {
		ref.MessageID = msg.ID
	}
	return ref
}

func (b *Bot) SendText(ctx context.Context, chatID domain.ChatID, text string, actions [2]domain.Action) (domain.MessageRef, error) {
	msg, err := b.tb.Send(tele.ChatID(chatID), text, actionMarkup(actions))
	if err != nil {
		return domain.MessageRef{}, fmt.Errorf("send text: %w", err)
	}
	return toRef(chatID, msg), nil
}

func (b *Bot) SendImageWithCaption(ctx context.Context, chatID domain.ChatID, imageURL, caption string, actions [2]domain.Action) (domain.MessageRef, error) {
	photo := &tele.Photo{File: tele.FromURL(imageURL), Caption: caption}
	msg, err := b.tb.Send(tele.ChatID(chatID), photo, actionMarkup(actions))
	if err != nil {
		return domain.MessageRef{}, fmt.Errorf("send photo: %w", err)
	}
	return toRef(chatID, msg), nil
}

func (b *Bot) AcknowledgeAction(ctx context.Context, eventID string) error {
	return b.tb.Respond(&tele.Callback{ID: eventID})
}

// RetractActionControls strips the inline keyboard from ref. Only the first
// call that gets the edit through (or finds the markup already gone) yields
// true; calls racing an in-flight edit yield false. A failed edit releases the
// claim so a later press can retry it.
func (b *Bot) RetractActionControls(ctx context.Context, ref domain.MessageRef) (bool, error) {
	b.mu.Lock()
	_, done := b.retracted[ref]
	_, inFlight := b.pending[ref]
	if done || inFlight {
		b.mu.Unlock()
		return false, nil
	}
	b.pending[ref] = struct{}{}
	b.mu.Unlock()

	stored := tele.StoredMessage{MessageID: strconv.Itoa(ref.MessageID), ChatID: int64(ref.ChatID)}
	_, err := b.tb.EditReplyMarkup(stored, nil)

	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, ref)
	switch {
	case err == nil:
		b.retracted[ref] = struct{}{}
		return true, nil
	case isNotModified(err):
		b.retracted[ref] = struct{}{}
		return false, nil
	default:
		return false, fmt.Errorf("edit reply markup: %w", err)
	}
}

func isNotModified(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "message is not modified")
}

func (b *Bot) ReplyText(ctx context.Context, chatID domain.ChatID, text string) error {
	_, err := b.tb.Send(tele.ChatID(chatID), text)
	return err
}

type router struct {
	ctx      context.Context
	sessions SessionController
	actions  ActionHandler
}

func (r *router) onStart(c tele.Context) error {
	chatID := domain.ChatID(c.Chat().ID)
	if !r.sessions.Start(r.ctx, chatID) {
		return c.Send(alreadyRunningText)
	}
	return c.Send(startedText)
}

func (r *router) onStop(c tele.Context) error {
	if !r.sessions.Stop(domain.ChatID(c.Chat().ID)) {
		return c.Send(notRunningText)
	}
	return c.Send(stoppedText)
}

func (r *router) onStatus(c tele.Context) error {
	info, ok := r.sessions.Info(domain.ChatID(c.Chat().ID))
	if !ok {
		return c.Send(notRunningText)
	}
	return c.Send(statusText(info))
}

func statusText(info job.SessionInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📡 Running since %s\n", info.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "🔁 Cycles: %d\n", info.Cycles)
	fmt.Fprintf(&sb, "👀 Tokens seen: %d", info.Seen)
	if info.Cycles > 0 {
		last := info.LastResult
		fmt.Fprintf(&sb, "\n🧾 Last cycle: %d candidates, %d sent, %d unsafe, %d no data, %d failed",
			last.Candidates, last.Dispatched, last.Unsafe, last.NoData, last.Failed)
	}
	return sb.String()
}

func (r *router) onAction(kind domain.ActionKind) tele.HandlerFunc {
	return func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		ev := domain.ActionEvent{
			ID:      cb.ID,
			Kind:    kind,
			Address: strings.TrimSpace(cb.Data),
		}
		if cb.Message != nil && cb.Message.Chat != nil {
			ev.Message = domain.MessageRef{ChatID: domain.ChatID(cb.Message.Chat.ID), MessageID: cb.Message.ID}
		}
		if sender := c.Sender(); sender != nil {
			ev.UserID = sender.ID
		}
		if err := r.actions.Handle(r.ctx, ev); err != nil {
			log.Error().Err(err).Str("kind", string(kind)).Str("address", ev.Address).Msg("action handling failed")
		}
		return nil
	}
}
