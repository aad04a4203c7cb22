package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/iamvkosarev/llm-relay/internal/model"
	in_memory "github.com/iamvkosarev/llm-relay/internal/storage/in-memory"
	"github.com/stretchr/testify/require"
)

func newTestAuth() *AuthUsecase {
	return NewAuthUsecase(AuthUsecaseDeps{SessionStorage: in_memory.NewSessionStorage()}, time.Hour)
}

func TestAuth_LoginAuthenticateLogout(t *testing.T) {
	ctx := context.Background()
	auth := newTestAuth()

	session, err := auth.Login(ctx, "  alice ", "secret")
	require.NoError(t, err)
	require.Equal(t, "alice", session.UserID)

	got, err := auth.Authenticate(ctx, session.SessionID)
	require.NoError(t, err)
	require.Equal(t, "alice", got.UserID)

	require.NoError(t, auth.Logout(ctx, session.SessionID))
	_, err = auth.Authenticate(ctx, session.SessionID)
	require.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestAuth_LoginRejectsBlankCredentials(t *testing.T) {
	ctx := context.Background()
	auth := newTestAuth()

	for _, c := range [][2]string{{"", "x"}, {"alice", ""}, {"   ", "x"}, {"alice", "  "}} {
		_, err := auth.Login(ctx, c[0], c[1])
		require.ErrorIs(t, err, model.ErrInvalidCredentials, c)
	}
}

func TestAuth_UnknownSession(t *testing.T) {
	_, err := newTestAuth().Authenticate(context.Background(), uuid.New())
	require.ErrorIs(t, err, model.ErrSessionNotFound)
}
