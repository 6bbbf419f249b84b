// Package journal keeps a record of dispatched alerts and the actions users
// picked on them. It is an audit surface only; nothing in the pipeline reads it
// back to make decisions.
package journal

import (
	"context"
	"sync"

	"token-alert-bot/internal/domain"
)

type Journal interface {
	RecordAlert(ctx context.Context, rec domain.AlertRecord) error
	RecordAction(ctx context.Context, rec domain.ActionRecord) error
	RecentAlerts(ctx context.Context, limit int) ([]domain.AlertRecord, error)
	RecentActions(ctx context.Context, limit int) ([]domain.ActionRecord, error)
}

const DefaultMemoryCapacity = 500

// Memory keeps the newest entries in a bounded buffer. Once full, the oldest
// entries are discarded.
type Memory struct {
	mu      sync.Mutex
	max     int
	alerts  []domain.AlertRecord
	actions []domain.ActionRecord
}

func NewMemory(max int) *Memory {
	if max <= 0 {
		max = DefaultMemoryCapacity
	}
	return &Memory{max: max}
}

func (m *Memory) RecordAlert(_ context.Context, rec domain.AlertRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = appendCapped(m.alerts, rec, m.max)
	return nil
}

func (m *Memory) RecordAction(_ context.Context, rec domain.ActionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = appendCapped(m.actions, rec, m.max)
	return nil
}

// RecentAlerts returns up to limit alerts, newest first.
func (m *Memory) RecentAlerts(_ context.Context, limit int) ([]domain.AlertRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return newestFirst(m.alerts, limit), nil
}

// RecentActions returns up to limit actions, newest first.
func (m *Memory) RecentActions(_ context.Context, limit int) ([]domain.ActionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return newestFirst(m.actions, limit), nil
}

func appendCapped[T any](buf []T, v T, max int) []T {
	buf = append(buf, v)
	if len(buf) > max {
		buf = append(buf[:0:0], buf[len(buf)-max:]...)
	}
	return buf
}

func newestFirst[T any](buf []T, limit int) []T {
	if limit <= 0 || limit > len(buf) {
		limit = len(buf)
	}
	out := make([]T, 0, limit)
	for i := len(buf) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, buf[i])
	}
	return out
}
