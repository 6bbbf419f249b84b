package provider

import (
	"context"
	"fmt"
	"time"

	"token-alert-bot/internal/domain"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultEnrichmentURL = "https://api.gmgn.xyz/token"

// EnrichmentProvider fetches market analytics for one address.
type EnrichmentProvider struct {
	http   jsonClient
	tracer trace.Tracer
}

type EnrichmentOptions struct {
	BaseURL      string
	Timeout      time.Duration
	MaxPerMinute int
}

func NewEnrichmentProvider(tracer trace.Tracer, opts EnrichmentOptions) *EnrichmentProvider {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultEnrichmentURL
	}
	return &EnrichmentProvider{
		http:   newJSONClient(opts.BaseURL, opts.Timeout, opts.MaxPerMinute),
		tracer: tracer,
	}
}

// Fetch returns ErrNotFound when the provider answered but knew none of the
// analytics fields.
func (p *EnrichmentProvider) Fetch(ctx context.Context, address string) (domain.AnalysisRecord, error) {
	ctx, span := p.tracer.Start(ctx, "enrichment.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("token.address", address))

	var record domain.AnalysisRecord
	if err := p.http.getJSON(ctx, p.http.addressURL(address), &record); err != nil {
		span.RecordError(err)
		return domain.AnalysisRecord{}, fmt.Errorf("analyze %s: %w", address, err)
	}
	if record.IsEmpty() {
		err := fmt.Errorf("analyze %s: %w: no analytics fields", address, ErrNotFound)
		span.RecordError(err)
		return domain.AnalysisRecord{}, err
	}
	return record, nil
}

// Analyze degrades every failure to an all-absent record.
func (p *EnrichmentProvider) Analyze(ctx context.Context, address string) domain.AnalysisRecord {
	record, err := p.Fetch(ctx, address)
	if err != nil {
		log.Error().Err(err).Str("address", address).Msg("error analyzing token")
		return domain.AnalysisRecord{}
	}
	return record
}
