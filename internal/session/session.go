// Package session хранит сессии пользователей фронтенда и API в памяти.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"zabbix_input/internal/fields"
)

// Session сессия пользователя
type Session struct {
	ID         string
	UserID     string
	Username   string
	Created    time.Time
	LastAccess time.Time
}

// Token CSRF токен сессии для полей с FlagAction
func (s Session) Token() fields.SessionToken {
	return fields.SessionToken(s.ID)
}

// Store потокобезопасное хранилище сессий с ограниченным временем жизни
type Store struct {
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore создает хранилище
func NewStore(ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// NewID возвращает идентификатор из 32 шестнадцатеричных символов
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Create открывает сессию пользователя
func (s *Store) Create(userID, username string) Session {
	now := s.now()
	sess := &Session{
		ID:         NewID(),
		UserID:     userID,
		Username:   username,
		Created:    now,
		LastAccess: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Debug("Session created", zap.String("user", username))
	return *sess
}

// Get возвращает активную сессию и продлевает ее
func (s *Store) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}

	now := s.now()
	if now.Sub(sess.LastAccess) > s.ttl {
		delete(s.sessions, id)
		return Session{}, false
	}
	sess.LastAccess = now
	return *sess, true
}

// Delete закрывает сессию; возвращает false, если ее не было
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Purge удаляет просроченные сессии и возвращает их число
func (s *Store) Purge() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.LastAccess) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Debug("Expired sessions purged", zap.Int("count", removed))
	}
	return removed
}

// Len число сессий в хранилище
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
