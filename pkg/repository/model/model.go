package model

import (
	"context"
	"time"
)

type User struct {
	ID        int64
	TgUserID  int64
	TgChatID  int64
	Username  *string
	FirstName *string
	LastName  *string
}

// Session states persisted per Telegram user.
const (
	SessionAnonymous     = "anonymous"
	SessionAuthenticated = "authenticated"
)

// AuthPayload is the backend login kept for a Telegram user.
type AuthPayload struct {
	Token     string    `json:"token,omitempty"`
	UserID    int64     `json:"user_id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

type SessionData struct {
	State   string
	Payload AuthPayload
}

type Repo interface {
	// Telegram profiles
	UpsertUser(ctx context.Context, u User) (int64, error)

	// Auth session: loaded once per chat, written on login/logout
	LoadSession(ctx context.Context, userID int64) (*SessionData, error)
	SaveSession(ctx context.Context, userID int64, s SessionData) error
}
