package job

import (
	"context"
	"sync"
	"time"

	"token-alert-bot/internal/domain"
	"token-alert-bot/internal/ledger"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const DefaultPollInterval = 30 * time.Second

// CycleRunner executes one pipeline cycle for a chat against its ledger.
type CycleRunner interface {
	RunCycle(ctx context.Context, chatID domain.ChatID, ldg ledger.Ledger) domain.CycleResult
}

// JobStats is a point-in-time view of a PipelineJob.
type JobStats struct {
	Cycles     int                `json:"cycles"`
	Seen       int                `json:"seen"`
	LastResult domain.CycleResult `json:"last_result"`
	LastRunAt  time.Time          `json:"last_run_at"`
}

// PipelineJob polls the feed for one chat until its context is cancelled.
type PipelineJob struct {
	tracer   trace.Tracer
	runner   CycleRunner
	chatID   domain.ChatID
	ledger   ledger.Ledger
	interval time.Duration

	mu        sync.Mutex
	cycles    int
	last      domain.CycleResult
	lastRunAt time.Time
}

func NewPipelineJob(tracer trace.Tracer, runner CycleRunner, chatID domain.ChatID, ldg ledger.Ledger, interval time.Duration) *PipelineJob {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PipelineJob{
		tracer:   tracer,
		runner:   runner,
		chatID:   chatID,
		ledger:   ldg,
		interval: interval,
	}
}

// Start runs a cycle immediately and then one more after every interval of
// idle time. Cancellation is only observed between cycles; a cycle that has
// begun always runs to completion. Blocks until ctx is cancelled.
func (j *PipelineJob) Start(ctx context.Context) {
	log.Info().Int64("chat_id", int64(j.chatID)).Dur("interval", j.interval).Msg("pipeline job starting")

	for ctx.Err() == nil {
		j.runOnce(ctx)
		if !sleep(ctx, j.interval) {
			break
		}
	}
	log.Info().Int64("chat_id", int64(j.chatID)).Int("cycles", j.Stats().Cycles).Msg("pipeline job stopped")
}

// sleep waits for d and reports false if ctx was cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (j *PipelineJob) runOnce(ctx context.Context) {
	ctx, span := j.tracer.Start(context.WithoutCancel(ctx), "job.pipeline-cycle")
	defer span.End()
	span.SetAttributes(attribute.Int64("chat_id", int64(j.chatID)))

	start := time.Now()
	result := j.runner.RunCycle(ctx, j.chatID, j.ledger)

	j.mu.Lock()
	j.cycles++
	j.last = result
	j.lastRunAt = start
	j.mu.Unlock()

	log.Info().
		Int64("chat_id", int64(j.chatID)).
		Int("candidates", result.Candidates).
		Int("already_seen", result.AlreadySeen).
		Int("unsafe", result.Unsafe).
		Int("no_data", result.NoData).
		Int("dispatched", result.Dispatched).
		Int("failed", result.Failed).
		Dur("took", time.Since(start)).
		Msg("pipeline cycle complete")
}

func (j *PipelineJob) Stats() JobStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobStats{
		Cycles:     j.cycles,
		Seen:       j.ledger.Len(),
		LastResult: j.last,
		LastRunAt:  j.lastRunAt,
	}
}
