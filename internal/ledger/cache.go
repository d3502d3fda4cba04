package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// SettlementCache keeps computed settlement views in Redis. A stale view is
// never served past a mutation: the invoice service invalidates the key
// after every commit, and the TTL bounds the damage if an invalidation is
// lost.
type SettlementCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger

	hits   prometheus.Counter
	misses prometheus.Counter
}

func NewSettlementCache(client *redis.Client, ttl time.Duration, logger *slog.Logger, hits, misses prometheus.Counter) *SettlementCache {
	return &SettlementCache{client: client, ttl: ttl, logger: logger, hits: hits, misses: misses}
}

func settlementKey(tenantID, invoiceID uuid.UUID) string {
	return fmt.Sprintf("settlement:%s:%s", tenantID, invoiceID)
}

// Get returns the cached view, or nil on a miss. Cache errors degrade to a
// miss; the caller recomputes.
func (c *SettlementCache) Get(ctx context.Context, tenantID, invoiceID uuid.UUID) *SettlementView {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := c.client.Get(ctx, settlementKey(tenantID, invoiceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.miss()
		return nil
	}
	if err != nil {
		c.logger.Warn("settlement cache read failed", slog.Any("error", err))
		c.miss()
		return nil
	}
	var view SettlementView
	if err := json.Unmarshal(raw, &view); err != nil {
		c.logger.Warn("settlement cache entry corrupt", slog.Any("error", err))
		c.miss()
		return nil
	}
	if c.hits != nil {
		c.hits.Inc()
	}
	return &view
}

// Set stores the view. Failures are logged, not returned; the cache is an
// optimisation.
func (c *SettlementCache) Set(ctx context.Context, tenantID, invoiceID uuid.UUID, view SettlementView) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(view)
	if err != nil {
		c.logger.Warn("settlement cache encode failed", slog.Any("error", err))
		return
	}
	if err := c.client.Set(ctx, settlementKey(tenantID, invoiceID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("settlement cache write failed", slog.Any("error", err))
	}
}

// Invalidate drops the cached view for an invoice. Satisfies the invoice
// service's CacheInvalidator.
func (c *SettlementCache) Invalidate(ctx context.Context, tenantID, invoiceID uuid.UUID) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, settlementKey(tenantID, invoiceID)).Err(); err != nil {
		c.logger.Warn("settlement cache invalidation failed",
			slog.String("invoice_id", invoiceID.String()), slog.Any("error", err))
	}
}

func (c *SettlementCache) miss() {
	if c.misses != nil {
		c.misses.Inc()
	}
}
