package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/backend/internal/pending/domain"
)

// MemoryRepository is an in-process Repository mirroring the Postgres semantics under one mutex.
// Used by tests and local tooling.
type MemoryRepository struct {
	mu   sync.Mutex
	rows map[string]*domain.Registration // keyed by verification token
	now  func() time.Time
}

// NewMemoryRepository returns an empty MemoryRepository. A nil now uses time.Now.
func NewMemoryRepository(now func() time.Time) *MemoryRepository {
	if now == nil {
		now = time.Now
	}
	return &MemoryRepository{rows: make(map[string]*domain.Registration), now: now}
}

func (m *MemoryRepository) Put(ctx context.Context, phone, token string, data domain.UserData) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for tok, reg := range m.rows {
		if reg.Phone == phone && !reg.Verified {
			delete(m.rows, tok)
		}
	}
	id := uuid.New().String()
	m.rows[token] = &domain.Registration{
		ID:                id,
		Phone:             phone,
		VerificationToken: token,
		UserData:          data,
		CreatedAt:         m.now().UTC(),
	}
	return id, nil
}

func (m *MemoryRepository) FindByPhoneAndToken(ctx context.Context, phone, token string) (*domain.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.rows[token]
	if !ok || reg.Phone != phone {
		return nil, nil
	}
	return copyRegistration(reg), nil
}

func (m *MemoryRepository) FindByToken(ctx context.Context, token string) (*domain.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.rows[token]
	if !ok {
		return nil, nil
	}
	return copyRegistration(reg), nil
}

func (m *MemoryRepository) MarkVerified(ctx context.Context, phone, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.rows[token]
	if !ok || reg.Phone != phone || reg.Verified {
		return false, nil
	}
	now := m.now().UTC()
	reg.Verified = true
	reg.VerifiedAt = &now
	return true, nil
}

func (m *MemoryRepository) Remove(ctx context.Context, phone, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.rows[token]
	if !ok || reg.Phone != phone {
		return false, nil
	}
	delete(m.rows, token)
	return true, nil
}

func (m *MemoryRepository) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().UTC().Add(-age)
	var n int64
	for tok, reg := range m.rows {
		if reg.CreatedAt.Before(cutoff) {
			delete(m.rows, tok)
			n++
		}
	}
	return n, nil
}

// CountByPhone returns how many registrations exist for phone, and how many of them are unverified.
func (m *MemoryRepository) CountByPhone(phone string) (total, unverified int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, reg := range m.rows {
		if reg.Phone != phone {
			continue
		}
		total++
		if !reg.Verified {
			unverified++
		}
	}
	return total, unverified
}

func copyRegistration(reg *domain.Registration) *domain.Registration {
	cp := *reg
	if reg.VerifiedAt != nil {
		t := *reg.VerifiedAt
		cp.VerifiedAt = &t
	}
	return &cp
}
