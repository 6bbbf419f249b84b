package job

import (
	"context"
	"sort"
	"sync"
	"time"

	"token-alert-bot/internal/domain"
	"token-alert-bot/internal/ledger"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// SessionInfo describes a running pipeline session.
type SessionInfo struct {
	ChatID    domain.ChatID `json:"chat_id"`
	StartedAt time.Time     `json:"started_at"`
	JobStats
}

type session struct {
	job       *PipelineJob
	cancel    context.CancelFunc
	startedAt time.Time
	done      chan struct{}
}

// Sessions keeps at most one PipelineJob per chat. A chat's ledger outlives
// its session, so stopping and restarting a chat does not repeat alerts.
type Sessions struct {
	tracer    trace.Tracer
	runner    CycleRunner
	interval  time.Duration
	newLedger func() ledger.Ledger

	mu      sync.Mutex
	running map[domain.ChatID]*session
	ledgers map[domain.ChatID]ledger.Ledger
	wg      sync.WaitGroup
}

func NewSessions(tracer trace.Tracer, runner CycleRunner, interval time.Duration) *Sessions {
	return &Sessions{
		tracer:    tracer,
		runner:    runner,
		interval:  interval,
		newLedger: func() ledger.Ledger { return ledger.NewMemory() },
		running:   make(map[domain.ChatID]*session),
		ledgers:   make(map[domain.ChatID]ledger.Ledger),
	}
}

// Start launches the pipeline for chatID. It returns false when a session for
// the chat is already running. The session lives until ctx is cancelled or
// Stop is called.
func (s *Sessions) Start(ctx context.Context, chatID domain.ChatID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.running[chatID]; ok {
		return false
	}

	ldg, ok := s.ledgers[chatID]
	if !ok {
		ldg = s.newLedger()
		s.ledgers[chatID] = ldg
	}

	ctx, cancel := context.WithCancel(ctx)
	sess := &session{
		job:       NewPipelineJob(s.tracer, s.runner, chatID, ldg, s.interval),
		cancel:    cancel,
		startedAt: time.Now().UTC(),
		done:      make(chan struct{}),
	}
	s.running[chatID] = sess

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(sess.done)
		sess.job.Start(ctx)

		s.mu.Lock()
		if s.running[chatID] == sess {
			delete(s.running, chatID)
		}
		s.mu.Unlock()
	}()

	log.Info().Int64("chat_id", int64(chatID)).Msg("session started")
	return true
}

// Stop cancels the chat's session. A cycle in progress still completes.
func (s *Sessions) Stop(chatID domain.ChatID) bool {
	s.mu.Lock()
	sess, ok := s.running[chatID]
	if ok {
		delete(s.running, chatID)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	sess.cancel()
	log.Info().Int64("chat_id", int64(chatID)).Msg("session stopped")
	return true
}

// StopAll cancels every session and waits for their in-flight cycles, or
// until ctx expires.
func (s *Sessions) StopAll(ctx context.Context) error {
	s.mu.Lock()
	for chatID, sess := range s.running {
		sess.cancel()
		delete(s.running, chatID)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sessions) Info(chatID domain.ChatID) (SessionInfo, bool) {
	s.mu.Lock()
	sess, ok := s.running[chatID]
	s.mu.Unlock()
	if !ok {
		return SessionInfo{}, false
	}
	return SessionInfo{ChatID: chatID, StartedAt: sess.startedAt, JobStats: sess.job.Stats()}, true
}

// Snapshot lists running sessions ordered by chat id.
func (s *Sessions) Snapshot() []SessionInfo {
	s.mu.Lock()
	out := make([]SessionInfo, 0, len(s.running))
	sessions := make([]*session, 0, len(s.running))
	ids := make([]domain.ChatID, 0, len(s.running))
	for chatID, sess := range s.running {
		ids = append(ids, chatID)
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for i, sess := range sessions {
		out = append(out, SessionInfo{ChatID: ids[i], StartedAt: sess.startedAt, JobStats: sess.job.Stats()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out
}
