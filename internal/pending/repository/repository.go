// Package repository persists pending registrations.
package repository

import (
	"context"
	"time"

	"storefront/backend/internal/pending/domain"
)

// Repository stores registrations awaiting phone confirmation. Lookups return (nil, nil) when
// nothing matches; errors are reserved for storage failures.
type Repository interface {
	// Put deletes every unverified registration for phone and inserts a new one, atomically.
	Put(ctx context.Context, phone, token string, data domain.UserData) (string, error)
	FindByPhoneAndToken(ctx context.Context, phone, token string) (*domain.Registration, error)
	FindByToken(ctx context.Context, token string) (*domain.Registration, error)
	// MarkVerified flips verified on the unverified row matching phone and token. false means no such row.
	MarkVerified(ctx context.Context, phone, token string) (bool, error)
	Remove(ctx context.Context, phone, token string) (bool, error)
	// PurgeOlderThan deletes registrations created more than age ago, verified or not.
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)
}
