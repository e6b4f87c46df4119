package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	// SummaryCacheTTL is deliberately short: the dashboard summary is a
	// function of "today" (lazy expiry), so stale entries must age out fast
	// even without an invalidating status change.
	SummaryCacheTTL = 60 * time.Second

	summaryKeyPrefix = "inventory:summary:"
)

// SummaryCache stores rendered dashboard summaries keyed by a filter
// fingerprint. Payloads are opaque JSON produced by the aggregation service;
// redaction happens after retrieval, so cached entries are always the
// unredacted form and must never be returned to a caller directly.
type SummaryCache struct {
	client *RedisClient
}

// NewSummaryCache creates a SummaryCache backed by the given RedisClient.
func NewSummaryCache(r *RedisClient) *SummaryCache {
	return &SummaryCache{client: r}
}

// Key derives the cache key for a filter fingerprint string.
func (c *SummaryCache) Key(filterFingerprint string) string {
	sum := sha256.Sum256([]byte(filterFingerprint))
	return summaryKeyPrefix + hex.EncodeToString(sum[:8])
}

// Get returns the cached payload for key. Returns redis.Nil when absent.
func (c *SummaryCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Client().Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Set stores payload under key with the summary TTL.
func (c *SummaryCache) Set(ctx context.Context, key string, payload []byte) error {
	if err := c.client.Client().Set(ctx, key, payload, SummaryCacheTTL).Err(); err != nil {
		return fmt.Errorf("summary cache set: %w", err)
	}
	return nil
}

// InvalidateAll drops every cached summary. Called by the worker whenever a
// unit is created or changes status, since any filter's counts may have moved.
func (c *SummaryCache) InvalidateAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Client().Scan(ctx, cursor, summaryKeyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("summary cache scan: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Client().Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("summary cache del: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
