package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/ledgerline/internal/config"
)

const keyUploadIngestCompany = "upload:ingest:company:%s"

// UploadIngestLimiter guards the statement and revenue upload endpoints with
// a per-company token bucket. Disabled (and nil) when no redis address is
// configured; a nil limiter always allows.
type UploadIngestLimiter struct {
	enabled bool

	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewUploadIngestLimiter(cfg config.Config) *UploadIngestLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	if cfg.IngestRateLimit <= 0 || cfg.IngestRateWindow <= 0 {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
	})

	return &UploadIngestLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    float64(cfg.IngestRateLimit) / float64(cfg.IngestRateWindow),
		burst:   cfg.IngestRateLimit,
	}
}

func (l *UploadIngestLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *UploadIngestLimiter) AllowCompany(ctx context.Context, companyID string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyUploadIngestCompany, strings.TrimSpace(companyID)), l.rate, l.burst)
}
