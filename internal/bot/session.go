package bot

import (
	"sync"
	"time"
)

// Session — access token сессии и его срок жизни.
// Реализует api.TokenSource: клиент читает токен на каждый запрос.
type Session struct {
	mu       sync.RWMutex
	name     string
	token    string
	issuedAt time.Time
	ttl      time.Duration
}

// NewSession создаёт сессию без токена.
func NewSession(name string) *Session {
	return &Session{name: name}
}

func (s *Session) Name() string { return s.name }

// AccessToken возвращает текущий токен или пустую строку.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Expired — токена нет или с момента выдачи прошло не меньше TTL.
func (s *Session) Expired(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token == "" || now.Sub(s.issuedAt) >= s.ttl
}

// Refresh сохраняет новый токен.
func (s *Session) Refresh(token string, now time.Time, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.issuedAt = now
	s.ttl = ttl
}

// Invalidate сбрасывает токен: следующий цикл начнётся с логина.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

// TTL — срок жизни текущего токена.
func (s *Session) TTL() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ttl
}
