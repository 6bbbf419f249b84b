package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"token-alert-bot/internal/domain"
	"token-alert-bot/internal/journal"
	"token-alert-bot/internal/ledger"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type CandidateSource interface {
	FetchCandidates(ctx context.Context) []domain.Token
}

type SafetyGate interface {
	IsSafe(ctx context.Context, address string) bool
}

type Analyzer interface {
	Analyze(ctx context.Context, address string) domain.AnalysisRecord
}

type AlertComposer interface {
	Compose(token domain.Token, record domain.AnalysisRecord) domain.Alert
}

// MarkPolicy decides when a dispatched address enters the ledger.
type MarkPolicy string

const (
	// MarkOnAttempt marks the address once a send was attempted, even if it
	// failed. A failed delivery is never retried.
	MarkOnAttempt MarkPolicy = "attempt"
	// MarkOnDelivery only marks addresses whose alert was delivered; failed
	// sends are retried on the next cycle.
	MarkOnDelivery MarkPolicy = "delivered"
)

func ParseMarkPolicy(s string) (MarkPolicy, error) {
	switch p := MarkPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case MarkOnAttempt, MarkOnDelivery:
		return p, nil
	default:
		return "", fmt.Errorf("unknown mark policy %q", s)
	}
}

const DefaultPipelineWorkers = 4

type PipelineConfig struct {
	Workers    int
	MarkPolicy MarkPolicy
}

// PipelineService runs one discovery → safety → enrichment → alert cycle.
type PipelineService struct {
	tracer   trace.Tracer
	feed     CandidateSource
	safety   SafetyGate
	analyzer Analyzer
	composer AlertComposer
	sender   AlertSender
	journal  journal.Journal
	workers  int
	policy   MarkPolicy
	now      func() time.Time
}

func NewPipelineService(
	tracer trace.Tracer,
	feed CandidateSource,
	safety SafetyGate,
	analyzer Analyzer,
	composer AlertComposer,
	sender AlertSender,
	j journal.Journal,
	cfg PipelineConfig,
) *PipelineService {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultPipelineWorkers
	}
	if cfg.MarkPolicy == "" {
		cfg.MarkPolicy = MarkOnAttempt
	}
	return &PipelineService{
		tracer:   tracer,
		feed:     feed,
		safety:   safety,
		analyzer: analyzer,
		composer: composer,
		sender:   sender,
		journal:  j,
		workers:  cfg.Workers,
		policy:   cfg.MarkPolicy,
		now:      time.Now,
	}
}

type outcome int

const (
	outcomeSeen outcome = iota
	outcomeUnsafe
	outcomeNoData
	outcomeReady
)

type evaluation struct {
	outcome outcome
	token   domain.Token
	record  domain.AnalysisRecord
}

// RunCycle processes one feed response for chatID. Filtering runs
// concurrently across addresses; alerts are dispatched one at a time in feed
// order.
func (s *PipelineService) RunCycle(ctx context.Context, chatID domain.ChatID, ldg ledger.Ledger) domain.CycleResult {
	ctx, span := s.tracer.Start(ctx, "pipeline.run-cycle")
	defer span.End()
	span.SetAttributes(attribute.Int64("chat_id", int64(chatID)))

	tokens := s.feed.FetchCandidates(ctx)
	result := domain.CycleResult{Candidates: len(tokens)}

	evals := make([]evaluation, len(tokens))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, tok := range tokens {
		i, tok := i, tok
		g.Go(func() error {
			evals[i] = s.evaluate(ctx, tok, ldg)
			return nil
		})
	}
	_ = g.Wait()

	for _, ev := range evals {
		switch ev.outcome {
		case outcomeSeen:
			result.AlreadySeen++
		case outcomeUnsafe:
			result.Unsafe++
		case outcomeNoData:
			result.NoData++
		case outcomeReady:
			s.dispatch(ctx, chatID, ldg, ev, &result)
		}
	}

	span.SetAttributes(
		attribute.Int("cycle.candidates", result.Candidates),
		attribute.Int("cycle.dispatched", result.Dispatched),
		attribute.Int("cycle.failed", result.Failed),
	)
	return result
}

func (s *PipelineService) evaluate(ctx context.Context, tok domain.Token, ldg ledger.Ledger) evaluation {
	ev := evaluation{token: tok}
	if ldg.HasSeen(tok.Address) {
		ev.outcome = outcomeSeen
		return ev
	}

	if !s.safety.IsSafe(ctx, tok.Address) {
		log.Info().Str("address", tok.Address).Str("name", tok.Name).Msg("token failed rug check")
		ev.outcome = outcomeUnsafe
		return ev
	}

	ev.record = s.analyzer.Analyze(ctx, tok.Address)
	if ev.record.IsEmpty() {
		log.Info().Str("address", tok.Address).Str("name", tok.Name).Msg("token analysis failed")
		ev.outcome = outcomeNoData
		return ev
	}

	ev.outcome = outcomeReady
	return ev
}

func (s *PipelineService) dispatch(ctx context.Context, chatID domain.ChatID, ldg ledger.Ledger, ev evaluation, result *domain.CycleResult) {
	address := ev.token.Address
	if !ldg.Reserve(address) {
		// Another cycle sharing this ledger got there first.
		result.AlreadySeen++
		return
	}

	alert := s.composer.Compose(ev.token, ev.record)

	var (
		ref domain.MessageRef
		err error
	)
	switch alert.Variant {
	case domain.VariantPhoto:
		ref, err = s.sender.SendImageWithCaption(ctx, chatID, alert.Token.Image, alert.Text, alert.Actions)
	default:
		ref, err = s.sender.SendText(ctx, chatID, alert.Text, alert.Actions)
	}

	s.record(ctx, chatID, alert, ref, err)

	if err != nil {
		result.Failed++
		log.Error().Err(err).Str("address", address).Int64("chat_id", int64(chatID)).Msg("alert delivery failed")
		if s.policy == MarkOnDelivery {
			ldg.Release(address)
			return
		}
	} else {
		result.Dispatched++
		log.Info().Str("address", address).Int64("chat_id", int64(chatID)).Int("message_id", ref.MessageID).Msg("alert sent")
	}
	ldg.MarkSeen(address)
}

func (s *PipelineService) record(ctx context.Context, chatID domain.ChatID, alert domain.Alert, ref domain.MessageRef, sendErr error) {
	if s.journal == nil {
		return
	}
	rec := domain.AlertRecord{
		AlertID:   alert.ID,
		ChatID:    chatID,
		Address:   alert.Token.Address,
		Name:      alert.Token.Name,
		Variant:   alert.Variant,
		MessageID: ref.MessageID,
		Delivered: sendErr == nil,
		SentAt:    s.now().UTC(),
	}
	if sendErr != nil {
		rec.Error = sendErr.Error()
	}
	if err := s.journal.RecordAlert(ctx, rec); err != nil {
		log.Warn().Err(err).Str("address", rec.Address).Msg("journal write failed")
	}
}
