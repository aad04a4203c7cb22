package model

import (
	"time"

	"github.com/google/uuid"
)

type Session struct {
	SessionID uuid.UUID
	UserID    string
	CreatedAt time.Time
}
