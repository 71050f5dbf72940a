// Package housekeeping runs the scheduled purge of expired pending registrations on asynq.
package housekeeping

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"storefront/backend/internal/metrics"
)

// TypePendingPurge is the asynq task type for the pending-registration purge.
const TypePendingPurge = "pending:purge"

// PurgePayload optionally overrides the configured age. Zero means use the handler's TTL.
type PurgePayload struct {
	MaxAgeSeconds int64 `json:"maxAgeSeconds,omitempty"`
}

// Purger deletes pending registrations older than age and returns how many were removed.
type Purger interface {
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// NewPurgeTask builds a purge task. A zero maxAge defers to the worker's TTL.
func NewPurgeTask(maxAge time.Duration) (*asynq.Task, error) {
	b, err := json.Marshal(PurgePayload{MaxAgeSeconds: int64(maxAge / time.Second)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePendingPurge, b, asynq.MaxRetry(3), asynq.Timeout(time.Minute)), nil
}

// PurgeHandler processes TypePendingPurge tasks.
type PurgeHandler struct {
	store   Purger
	ttl     time.Duration
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewPurgeHandler returns a handler that deletes registrations older than ttl.
func NewPurgeHandler(store Purger, ttl time.Duration, m *metrics.Metrics, log *zap.Logger) *PurgeHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PurgeHandler{store: store, ttl: ttl, metrics: m, log: log}
}

// ProcessTask implements asynq.Handler. A malformed payload is not retried.
func (h *PurgeHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	age := h.ttl
	if len(t.Payload()) > 0 {
		var p PurgePayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("purge payload: %v: %w", err, asynq.SkipRetry)
		}
		if p.MaxAgeSeconds > 0 {
			age = time.Duration(p.MaxAgeSeconds) * time.Second
		}
	}
	if age <= 0 {
		return fmt.Errorf("purge: non-positive max age %v: %w", age, asynq.SkipRetry)
	}
	n, err := h.store.PurgeOlderThan(ctx, age)
	if err != nil {
		return fmt.Errorf("purge pending registrations: %w", err)
	}
	h.metrics.Purged(n)
	h.log.Info("purged expired pending registrations", zap.Int64("removed", n), zap.Duration("max_age", age))
	return nil
}
