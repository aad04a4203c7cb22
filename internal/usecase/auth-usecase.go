package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iamvkosarev/llm-relay/internal/model"
)

type SessionStorage interface {
	CreateSession(ctx context.Context, userID string, ttl time.Duration) (model.Session, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (model.Session, error)
	DeleteSession(ctx context.Context, sessionID uuid.UUID) error
}

type AuthUsecaseDeps struct {
	SessionStorage SessionStorage
}

// AuthUsecase accepts any non-empty username and password; the username
// becomes the user id.
type AuthUsecase struct {
	AuthUsecaseDeps
	sessionTTL time.Duration
}

func NewAuthUsecase(deps AuthUsecaseDeps, sessionTTL time.Duration) *AuthUsecase {
	return &AuthUsecase{
		AuthUsecaseDeps: deps,
		sessionTTL:      sessionTTL,
	}
}

func (a *AuthUsecase) Login(ctx context.Context, username, password string) (model.Session, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return model.Session{}, model.ErrInvalidCredentials
	}
	session, err := a.SessionStorage.CreateSession(ctx, username, a.sessionTTL)
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

func (a *AuthUsecase) Logout(ctx context.Context, sessionID uuid.UUID) error {
	if err := a.SessionStorage.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (a *AuthUsecase) Authenticate(ctx context.Context, sessionID uuid.UUID) (model.Session, error) {
	session, err := a.SessionStorage.GetSession(ctx, sessionID)
	if err != nil {
		return model.Session{}, err
	}
	return session, nil
}
