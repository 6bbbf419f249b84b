package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultSafetyURL = "https://api.rugcheck.xyz/api/check"
	StatusGood       = "GOOD"
)

// SafetyProvider asks the rug-check service for a verdict on one address.
type SafetyProvider struct {
	http     jsonClient
	tracer   trace.Tracer
	accepted map[string]struct{}
}

type SafetyOptions struct {
	BaseURL      string
	Timeout      time.Duration
	MaxPerMinute int
	// AcceptedStatuses are compared exactly, case included. Defaults to GOOD.
	AcceptedStatuses []string
}

func NewSafetyProvider(tracer trace.Tracer, opts SafetyOptions) *SafetyProvider {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultSafetyURL
	}
	if len(opts.AcceptedStatuses) == 0 {
		opts.AcceptedStatuses = []string{StatusGood}
	}
	accepted := make(map[string]struct{}, len(opts.AcceptedStatuses))
	for _, s := range opts.AcceptedStatuses {
		accepted[s] = struct{}{}
	}
	return &SafetyProvider{
		http:     newJSONClient(opts.BaseURL, opts.Timeout, opts.MaxPerMinute),
		tracer:   tracer,
		accepted: accepted,
	}
}

// Check returns the raw status string reported for address.
func (p *SafetyProvider) Check(ctx context.Context, address string) (string, error) {
	ctx, span := p.tracer.Start(ctx, "safety.check")
	defer span.End()
	span.SetAttributes(attribute.String("token.address", address))

	var payload struct {
		Status *string `json:"status"`
	}
	if err := p.http.getJSON(ctx, p.http.addressURL(address), &payload); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("safety check %s: %w", address, err)
	}
	if payload.Status == nil || *payload.Status == "" {
		err := fmt.Errorf("safety check %s: %w: no status", address, ErrNotFound)
		span.RecordError(err)
		return "", err
	}

	span.SetAttributes(attribute.String("safety.status", *payload.Status))
	return *payload.Status, nil
}

// IsSafe is fail-closed: only an accepted status yields true.
func (p *SafetyProvider) IsSafe(ctx context.Context, address string) bool {
	status, err := p.Check(ctx, address)
	if err != nil {
		log.Error().Err(err).Str("address", address).Msg("error checking rug")
		return false
	}
	_, ok := p.accepted[status]
	return ok
}
