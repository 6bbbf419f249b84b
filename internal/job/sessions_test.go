package job

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionsStartIsIdempotentPerChat(t *testing.T) {
	runner := newStubRunner()
	s := NewSessions(testTracer, runner, time.Hour)
	defer s.StopAll(context.Background())

	assert.True(t, s.Start(context.Background(), 1))
	assert.False(t, s.Start(context.Background(), 1))
	assert.True(t, s.Start(context.Background(), 2))

	eventually(t, func() bool { return runner.count(1) == 1 && runner.count(2) == 1 })
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, runner.count(1), "second start must not launch another loop")

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.EqualValues(t, 1, snap[0].ChatID)
	assert.EqualValues(t, 2, snap[1].ChatID)
	assert.Equal(t, 1, snap[0].Cycles)
}

func TestSessionsStopAndRestartKeepsLedger(t *testing.T) {
	runner := newStubRunner()
	s := NewSessions(testTracer, runner, time.Hour)
	defer s.StopAll(context.Background())

	require.True(t, s.Start(context.Background(), 1))
	eventually(t, func() bool { return runner.count(1) == 1 })
	first := s.ledgers[1]

	assert.True(t, s.Stop(1))
	assert.False(t, s.Stop(1))
	_, ok := s.Info(1)
	assert.False(t, ok)

	require.True(t, s.Start(context.Background(), 1))
	eventually(t, func() bool { return runner.count(1) == 2 })
	assert.Same(t, first, s.ledgers[1])

	info, ok := s.Info(1)
	require.True(t, ok)
	assert.Equal(t, 1, info.Seen)
}

func TestSessionsParentCancellationEndsSession(t *testing.T) {
	runner := newStubRunner()
	s := NewSessions(testTracer, runner, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, s.Start(ctx, 1))
	eventually(t, func() bool { return runner.count(1) == 1 })

	cancel()
	eventually(t, func() bool {
		_, ok := s.Info(1)
		return !ok
	})
	assert.True(t, s.Start(context.Background(), 1))
	require.NoError(t, s.StopAll(context.Background()))
}

func TestSessionsStopAllWaitsForCycles(t *testing.T) {
	runner := newStubRunner()
	runner.block = make(chan struct{})
	runner.started = make(chan struct{}, 1)
	s := NewSessions(testTracer, runner, time.Hour)

	require.True(t, s.Start(context.Background(), 1))
	<-runner.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.StopAll(ctx), context.DeadlineExceeded)

	close(runner.block)
	require.NoError(t, s.StopAll(context.Background()))
	assert.Equal(t, 1, runner.count(1))
	assert.Empty(t, s.Snapshot())
}
