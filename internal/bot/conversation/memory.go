package conversation

import (
	"context"
	"sync"
	"time"
)

type tokenEntry struct {
	token   string
	expires time.Time
}

// MemoryStore is an in-process store with the same semantics as RedisStore. Used by tests and
// single-instance polling setups.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[int64]tokenEntry
	chats  map[string]int64
	ttl    time.Duration
	now    func() time.Time
}

// NewMemoryStore returns an empty MemoryStore. A non-positive ttl falls back to one hour.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryStore{
		tokens: make(map[int64]tokenEntry),
		chats:  make(map[string]int64),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (m *MemoryStore) SaveToken(_ context.Context, chatID int64, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[chatID] = tokenEntry{token: token, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Token(_ context.Context, chatID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.tokens[chatID]
	if !ok {
		return "", nil
	}
	if !m.now().Before(e.expires) {
		delete(m.tokens, chatID)
		return "", nil
	}
	return e.token, nil
}

func (m *MemoryStore) RememberChat(_ context.Context, chatID int64, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats[phone] = chatID
	delete(m.tokens, chatID)
	return nil
}

func (m *MemoryStore) ChatForPhone(_ context.Context, phone string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chatID, ok := m.chats[phone]
	return chatID, ok, nil
}
