package service

import (
	"context"
	"encoding/json"
	"time"

	"token-alert-bot/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const DefaultAnalysisCacheTTL = 60 * time.Second

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// CachedAnalyzer puts a short-lived Redis cache in front of an Analyzer so
// that chats watching the same feed share one enrichment call per token.
// Empty records are never cached.
type CachedAnalyzer struct {
	tracer trace.Tracer
	next   Analyzer
	redis  RedisClient
	ttl    time.Duration
}

func NewCachedAnalyzer(tracer trace.Tracer, next Analyzer, redisClient RedisClient, ttl time.Duration) *CachedAnalyzer {
	if ttl <= 0 {
		ttl = DefaultAnalysisCacheTTL
	}
	return &CachedAnalyzer{tracer: tracer, next: next, redis: redisClient, ttl: ttl}
}

func (c *CachedAnalyzer) Analyze(ctx context.Context, address string) domain.AnalysisRecord {
	ctx, span := c.tracer.Start(ctx, "analysis-cache.analyze")
	defer span.End()

	if c.redis != nil {
		cached, err := c.get(ctx, address)
		if err != nil {
			log.Warn().Err(err).Str("address", address).Msg("redis cache read error")
		}
		if cached != nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return *cached
		}
	}

	record := c.next.Analyze(ctx, address)
	if c.redis != nil && !record.IsEmpty() {
		if err := c.set(ctx, address, record); err != nil {
			log.Warn().Err(err).Str("address", address).Msg("redis cache write error")
		}
	}
	return record
}

func analysisKey(address string) string {
	return "analysis:" + address
}

func (c *CachedAnalyzer) set(ctx context.Context, address string, record domain.AnalysisRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, analysisKey(address), data, c.ttl).Err()
}

func (c *CachedAnalyzer) get(ctx context.Context, address string) (*domain.AnalysisRecord, error) {
	data, err := c.redis.Get(ctx, analysisKey(address)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var record domain.AnalysisRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	if record.IsEmpty() {
		return nil, nil
	}
	return &record, nil
}
