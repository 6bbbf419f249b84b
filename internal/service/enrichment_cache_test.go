package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"token-alert-bot/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	data   map[string][]byte
	ttls   map[string]time.Duration
	setErr error
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = append([]byte(nil), v...)
	case string:
		f.data[key] = []byte(v)
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func TestCachedAnalyzerMissThenHit(t *testing.T) {
	inner := &fakeAnalyzer{records: map[string]domain.AnalysisRecord{
		"A1": {Liquidity: domain.NumberMetric(1000), Trend: domain.TextMetric("up")},
	}}
	rdb := newFakeRedis()
	c := NewCachedAnalyzer(testTracer, inner, rdb, 0)

	first := c.Analyze(context.Background(), "A1")
	second := c.Analyze(context.Background(), "A1")

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, "1000", second.Liquidity.String())
	assert.Equal(t, "up", second.Trend.String())
	assert.Equal(t, first.Liquidity.String(), second.Liquidity.String())
	assert.Equal(t, DefaultAnalysisCacheTTL, rdb.ttls["analysis:A1"])
}

func TestCachedAnalyzerSkipsEmptyRecords(t *testing.T) {
	inner := &fakeAnalyzer{records: map[string]domain.AnalysisRecord{"A1": {}}}
	rdb := newFakeRedis()
	c := NewCachedAnalyzer(testTracer, inner, rdb, time.Minute)

	assert.True(t, c.Analyze(context.Background(), "A1").IsEmpty())
	assert.True(t, c.Analyze(context.Background(), "A1").IsEmpty())
	assert.Equal(t, 2, inner.calls)
	assert.Empty(t, rdb.data)
}

func TestCachedAnalyzerFallsThroughOnRedisErrors(t *testing.T) {
	inner := &fakeAnalyzer{records: map[string]domain.AnalysisRecord{}}
	rdb := newFakeRedis()
	rdb.getErr = errors.New("connection reset")
	rdb.setErr = errors.New("connection reset")
	c := NewCachedAnalyzer(testTracer, inner, rdb, time.Minute)

	rec := c.Analyze(context.Background(), "A1")
	require.False(t, rec.IsEmpty())
	assert.Equal(t, 1, inner.calls)
}

func TestCachedAnalyzerWithoutRedis(t *testing.T) {
	inner := &fakeAnalyzer{records: map[string]domain.AnalysisRecord{}}
	c := NewCachedAnalyzer(testTracer, inner, nil, time.Minute)

	c.Analyze(context.Background(), "A1")
	c.Analyze(context.Background(), "A1")
	assert.Equal(t, 2, inner.calls)
}
