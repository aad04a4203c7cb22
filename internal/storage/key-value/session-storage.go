package key_value

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/iamvkosarev/llm-relay/internal/model"
	"github.com/redis/go-redis/v9"
)

type sessionInternal struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionStorage struct {
	rdb       *redis.Client
	keyPrefix string
}

func NewSessionStorage(rdb *redis.Client, keyPrefix string) *SessionStorage {
	return &SessionStorage{
		rdb:       rdb,
		keyPrefix: keyPrefix,
	}
}

func (s *SessionStorage) CreateSession(ctx context.Context, userID string, ttl time.Duration) (model.Session, error) {
	session := model.Session{
		SessionID: uuid.New(),
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	sessionJSON, err := json.Marshal(
		sessionInternal{
			SessionID: session.SessionID.String(),
			UserID:    session.UserID,
			CreatedAt: session.CreatedAt,
		},
	)
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to marshal session: %w", err)
	}
	sessionKey := getSessionKey(s.keyPrefix, session.SessionID)
	if err = s.rdb.Set(ctx, sessionKey, sessionJSON, ttl).Err(); err != nil {
		return model.Session{}, fmt.Errorf("failed to save session %s: %w", sessionKey, err)
	}
	return session, nil
}

func (s *SessionStorage) GetSession(ctx context.Context, sessionID uuid.UUID) (model.Session, error) {
	sessionKey := getSessionKey(s.keyPrefix, sessionID)
	sessionRaw, err := s.rdb.Get(ctx, sessionKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Session{}, model.ErrSessionNotFound
		}
		return model.Session{}, fmt.Errorf("failed to get session %s: %w", sessionKey, err)
	}
	var sessionInt sessionInternal
	if err = json.Unmarshal([]byte(sessionRaw), &sessionInt); err != nil {
		return model.Session{}, fmt.Errorf("failed to unmarshal session %s: %w", sessionKey, err)
	}
	return model.Session{
		SessionID: sessionID,
		UserID:    sessionInt.UserID,
		CreatedAt: sessionInt.CreatedAt,
	}, nil
}

func (s *SessionStorage) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	sessionKey := getSessionKey(s.keyPrefix, sessionID)
	if err := s.rdb.Del(ctx, sessionKey).Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionKey, err)
	}
	return nil
}

func getSessionKey(prefix string, sessionID uuid.UUID) string {
	return fmt.Sprintf("%s:session_%s", prefix, sessionID.String())
}
