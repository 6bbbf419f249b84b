// Package alert renders token alerts and action confirmations as Telegram
// Markdown.
package alert

import (
	"fmt"
	"strings"
	"time"

	"token-alert-bot/internal/domain"

	"github.com/google/uuid"
)

const (
	DefaultTokenLinkBase = "https://pump.fun/token"

	// MaxCaptionLength is Telegram's limit for photo captions.
	MaxCaptionLength = 1024

	placeholderNA      = "N/A"
	placeholderUnknown = "Unknown"
)

var actionLabels = map[domain.ActionKind]string{
	domain.ActionAcquire: "🛒 Buy",
	domain.ActionDismiss: "❌ Ignore",
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

type Composer struct {
	tokenLinkBase string
	now           func() time.Time
	newID         func() string
}

func NewComposer(tokenLinkBase string) *Composer {
	if tokenLinkBase == "" {
		tokenLinkBase = DefaultTokenLinkBase
	}
	return &Composer{
		tokenLinkBase: strings.TrimRight(tokenLinkBase, "/"),
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// Compose never fails. Absent analytics render as placeholders so every alert
// has the same layout.
func (c *Composer) Compose(token domain.Token, record domain.AnalysisRecord) domain.Alert {
	variant := domain.VariantText
	text := c.render(token, record)
	if token.HasImage() {
		variant = domain.VariantPhoto
		text = truncate(text, MaxCaptionLength)
	}

	return domain.Alert{
		ID:           c.newID(),
		Token:        token,
		SafetyPassed: true,
		Analysis:     record,
		Text:         text,
		Variant:      variant,
		Actions:      Actions(token.Address),
		ComposedAt:   c.now().UTC(),
	}
}

func (c *Composer) render(token domain.Token, r domain.AnalysisRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚀 New Token: *%s*\n", markdownEscaper.Replace(token.DisplayName()))
	fmt.Fprintf(&b, "🆔 Address: `%s`\n\n", token.Address)
	b.WriteString("✅ RugCheck: GOOD\n")
	fmt.Fprintf(&b, "📊 Liquidity: %s$\n", markdownEscaper.Replace(r.Liquidity.OrElse(placeholderNA)))
	fmt.Fprintf(&b, "👥 Holders: %s\n", markdownEscaper.Replace(r.Holders.OrElse(placeholderUnknown)))
	fmt.Fprintf(&b, "📈 Market Cap: %s$\n", markdownEscaper.Replace(r.MarketCap.OrElse(placeholderNA)))
	fmt.Fprintf(&b, "💰 Price: %s SOL\n", markdownEscaper.Replace(r.Price.OrElse(placeholderNA)))
	fmt.Fprintf(&b, "⏳ Contract Age: %s\n", markdownEscaper.Replace(r.Age.OrElse(placeholderUnknown)))
	fmt.Fprintf(&b, "📉 Trend: %s\n\n", markdownEscaper.Replace(r.Trend.OrElse(placeholderUnknown)))
	fmt.Fprintf(&b, "🔗 [Token Link](%s/%s)", c.tokenLinkBase, token.Address)
	return b.String()
}

// Actions returns the acquire and dismiss actions for address, in button order.
func Actions(address string) [2]domain.Action {
	var out [2]domain.Action
	for i, kind := range domain.ActionKinds {
		out[i] = domain.Action{Kind: kind, Address: address, Label: actionLabels[kind]}
	}
	return out
}

// ConfirmationText is sent back to the chat after a user picks an action.
func ConfirmationText(kind domain.ActionKind, address string) string {
	switch kind {
	case domain.ActionAcquire:
		return fmt.Sprintf("✅ Buy token:\n`%s`", address)
	case domain.ActionDismiss:
		return fmt.Sprintf("🚫 Ignored token:\n`%s`", address)
	default:
		return fmt.Sprintf("Unknown action for token:\n`%s`", address)
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
