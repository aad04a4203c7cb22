package in_memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iamvkosarev/llm-relay/internal/model"
)

type sessionEntry struct {
	session   model.Session
	expiresAt time.Time
}

type SessionStorage struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]sessionEntry
	now      func() time.Time
}

func NewSessionStorage() *SessionStorage {
	return &SessionStorage{
		sessions: make(map[uuid.UUID]sessionEntry),
		now:      time.Now,
	}
}

func (s *SessionStorage) CreateSession(_ context.Context, userID string, ttl time.Duration) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	session := model.Session{
		SessionID: uuid.New(),
		UserID:    userID,
		CreatedAt: now,
	}
	entry := sessionEntry{session: session}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	s.sessions[session.SessionID] = entry
	return session, nil
}

func (s *SessionStorage) GetSession(_ context.Context, sessionID uuid.UUID) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		return model.Session{}, model.ErrSessionNotFound
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.sessions, sessionID)
		return model.Session{}, model.ErrSessionNotFound
	}
	return entry.session, nil
}

func (s *SessionStorage) DeleteSession(_ context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}
