package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"token-alert-bot/internal/domain"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultFeedURL = "https://api.pump.fun/v1/tokens"
	solanaKeyLen   = 32
)

// FeedProvider lists newly launched tokens from the discovery provider.
type FeedProvider struct {
	http   jsonClient
	tracer trace.Tracer

	// validateAddresses drops entries whose address is not a base58 Solana key.
	validateAddresses bool
}

type FeedOptions struct {
	URL               string
	Timeout           time.Duration
	MaxPerMinute      int
	ValidateAddresses bool
}

func NewFeedProvider(tracer trace.Tracer, opts FeedOptions) *FeedProvider {
	if opts.URL == "" {
		opts.URL = defaultFeedURL
	}
	return &FeedProvider{
		http:              newJSONClient(opts.URL, opts.Timeout, opts.MaxPerMinute),
		tracer:            tracer,
		validateAddresses: opts.ValidateAddresses,
	}
}

type feedResponse struct {
	Tokens *[]domain.Token `json:"tokens"`
}

// FetchTokens performs a single read of the feed. Entries without an address
// are dropped and repeated addresses keep their first position.
func (p *FeedProvider) FetchTokens(ctx context.Context) ([]domain.Token, error) {
	ctx, span := p.tracer.Start(ctx, "feed.fetch-tokens")
	defer span.End()

	var payload feedResponse
	if err := p.http.getJSON(ctx, p.http.baseURL, &payload); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	if payload.Tokens == nil {
		err := fmt.Errorf("fetch feed: %w: missing tokens array", ErrDecode)
		span.RecordError(err)
		return nil, err
	}

	raw := *payload.Tokens
	tokens := make([]domain.Token, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, tok := range raw {
		tok.Address = strings.TrimSpace(tok.Address)
		if tok.Address == "" {
			continue
		}
		if p.validateAddresses && !isSolanaAddress(tok.Address) {
			log.Debug().Str("address", tok.Address).Msg("feed entry has invalid address")
			continue
		}
		if _, dup := seen[tok.Address]; dup {
			continue
		}
		seen[tok.Address] = struct{}{}
		tokens = append(tokens, tok)
	}

	span.SetAttributes(
		attribute.Int("feed.raw_count", len(raw)),
		attribute.Int("feed.candidate_count", len(tokens)),
	)
	return tokens, nil
}

// FetchCandidates never fails: any error is logged and reported as an empty
// feed so the poll loop keeps running through provider outages.
func (p *FeedProvider) FetchCandidates(ctx context.Context) []domain.Token {
	tokens, err := p.FetchTokens(ctx)
	if err != nil {
		log.Error().Err(err).Msg("error fetching new tokens")
		return nil
	}
	return tokens
}

func isSolanaAddress(address string) bool {
	decoded, err := base58.Decode(address)
	return err == nil && len(decoded) == solanaKeyLen
}
