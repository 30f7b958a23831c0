// Package auth keeps the per-user backend login explicit: a Session value is
// loaded once when a chat starts, replaced on login and cleared on logout.
// Nothing else reads or writes the persisted copy.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/napryag/tg_physio_bot/pkg/api"
	"github.com/napryag/tg_physio_bot/pkg/repository/model"
	"github.com/napryag/tg_physio_bot/pkg/utils/errs"
)

// Session is the authenticated identity of one chat.
type Session struct {
	Token     string
	UserID    int64
	Name      string
	Role      string
	ExpiresAt time.Time
}

// Valid reports whether the session carries a token that has not expired.
func (s Session) Valid(now time.Time) bool {
	if s.Token == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (api.LoginResponse, error)
}

type SessionStore interface {
	LoadSession(ctx context.Context, userID int64) (*model.SessionData, error)
	SaveSession(ctx context.Context, userID int64, s model.SessionData) error
}

// Manager owns the login/logout lifecycle.
type Manager struct {
	store  SessionStore
	auth   Authenticator
	logger zerolog.Logger
	now    func() time.Time
}

func NewManager(store SessionStore, auth Authenticator, logger zerolog.Logger) *Manager {
	return &Manager{
		store:  store,
		auth:   auth,
		logger: logger.With().Str("component", "auth").Logger(),
		now:    time.Now,
	}
}

// Load reads the persisted session. Expired or missing sessions load as the
// zero Session.
func (m *Manager) Load(ctx context.Context, tgUserID int64) (Session, error) {
	data, err := m.store.LoadSession(ctx, tgUserID)
	if err != nil {
		return Session{}, errs.New("load session").Arg("user", tgUserID).Wrap(err)
	}
	if data == nil || data.State != model.SessionAuthenticated {
		return Session{}, nil
	}
	s := Session{
		Token:     data.Payload.Token,
		UserID:    data.Payload.UserID,
		Name:      data.Payload.Name,
		Role:      data.Payload.Role,
		ExpiresAt: data.Payload.ExpiresAt,
	}
	if !s.Valid(m.now()) {
		m.logger.Debug().Int64("user", tgUserID).Msg("stored session expired")
		return Session{}, nil
	}
	return s, nil
}

// Login authenticates against the backend and persists the result.
func (m *Manager) Login(ctx context.Context, tgUserID int64, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Session{}, errs.Input("Uso: /login <correo> <contraseña>")
	}

	resp, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return Session{}, errs.New("login").Arg("user", tgUserID).Wrap(err)
	}

	s := Session{
		Token:  resp.Token,
		UserID: resp.User.ID,
		Name:   resp.User.Name,
		Role:   resp.User.Role,
	}
	claims, err := decodeClaims(resp.Token)
	if err != nil {
		m.logger.Debug().Err(err).Msg("token is not a readable JWT")
	} else {
		if claims.ExpiresAt != nil {
			s.ExpiresAt = claims.ExpiresAt.Time
		}
		if s.Role == "" {
			s.Role = claims.Role
		}
		if s.UserID == 0 {
			s.UserID = claims.UserID
		}
	}

	data := model.SessionData{
		State: model.SessionAuthenticated,
		Payload: model.AuthPayload{
			Token:     s.Token,
			UserID:    s.UserID,
			Name:      s.Name,
			Role:      s.Role,
			ExpiresAt: s.ExpiresAt,
		},
	}
	if err := m.store.SaveSession(ctx, tgUserID, data); err != nil {
		return Session{}, errs.New("save session").Arg("user", tgUserID).Wrap(err)
	}
	m.logger.Info().Int64("user", tgUserID).Str("role", s.Role).Msg("logged in")
	return s, nil
}

// Logout forgets the persisted session.
func (m *Manager) Logout(ctx context.Context, tgUserID int64) error {
	if err := m.store.SaveSession(ctx, tgUserID, model.SessionData{State: model.SessionAnonymous}); err != nil {
		return errs.New("clear session").Arg("user", tgUserID).Wrap(err)
	}
	m.logger.Info().Int64("user", tgUserID).Msg("logged out")
	return nil
}

type tokenClaims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"rol"`
	jwt.RegisteredClaims
}

// decodeClaims reads claims without verifying the signature; the backend
// verifies every request.
func decodeClaims(token string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}
