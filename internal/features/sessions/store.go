package sessions

import (
	"context"
	"sync"
	"time"
)

// Store — хранилище состояния сессий. Реализации: Repository (PostgreSQL)
// и MemoryStore (без БД, живёт до перезапуска).
type Store interface {
	// TouchLogin отмечает успешный логин. firstRun == true, если сессия встречается впервые.
	TouchLogin(ctx context.Context, name string, tgUserID int64) (firstRun bool, err error)
	MarkInvalid(ctx context.Context, name, reason string) error
	IsInvalid(ctx context.Context, name string) (bool, error)
	SaveSnapshot(ctx context.Context, s Snapshot) error
}

// MemoryStore хранит состояние в памяти процесса.
type MemoryStore struct {
	mu        sync.Mutex
	records   map[string]*Record
	snapshots []Snapshot
	now       func() time.Time
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record), now: time.Now}
}

func (m *MemoryStore) TouchLogin(ctx context.Context, name string, tgUserID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	r, ok := m.records[name]
	if !ok {
		r = &Record{Name: name, FirstRunAt: now}
		m.records[name] = r
	}
	if tgUserID != 0 {
		r.TgUserID = tgUserID
	}
	r.LastLoginAt = &now
	r.UpdatedAt = now
	return !ok, nil
}

func (m *MemoryStore) MarkInvalid(ctx context.Context, name, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[name]
	if !ok {
		r = &Record{Name: name, FirstRunAt: m.now()}
		m.records[name] = r
	}
	r.IsInvalid = true
	r.InvalidReason = reason
	r.UpdatedAt = m.now()
	return nil
}

func (m *MemoryStore) IsInvalid(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[name]
	return ok && r.IsInvalid, nil
}

func (m *MemoryStore) SaveSnapshot(ctx context.Context, s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.CreatedAt.IsZero() {
		s.CreatedAt = m.now()
	}
	m.snapshots = append(m.snapshots, s)
	if r, ok := m.records[s.Session]; ok {
		r.Balance = s.Balance
		r.UpdatedAt = s.CreatedAt
	}
	return nil
}

// Get возвращает копию записи сессии.
func (m *MemoryStore) Get(name string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[name]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Snapshots возвращает копию всех снимков.
func (m *MemoryStore) Snapshots() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Snapshot(nil), m.snapshots...)
}
