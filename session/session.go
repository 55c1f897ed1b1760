// Package session holds the signed-in identity of the admin client and notifies subscribers
// when it changes.
package session

import (
	"context"
	"slices"
	"time"

	"github.com/jrsteele09/bizadmin/identity"
)

// tokenSkew treats an id token as expired slightly early so it does not lapse in flight.
const tokenSkew = 10 * time.Second

// Session is an authenticated identity. Values are never mutated once published by a Store.
type Session struct {
	UserID       string    `json:"userId"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName,omitempty"`
	Provider     string    `json:"provider"`
	IDToken      string    `json:"idToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Roles        []string  `json:"roles,omitempty"`
}

// Authenticated reports whether the session holds an id token valid at now.
func (s *Session) Authenticated(now time.Time) bool {
	return s != nil && s.IDToken != "" && now.Before(s.ExpiresAt)
}

func (s *Session) HasRole(role string) bool {
	return s != nil && slices.Contains(s.Roles, role)
}

func (s *Session) usable(now time.Time) bool {
	return s.Authenticated(now.Add(tokenSkew))
}

func (s *Session) user() *identity.User {
	return &identity.User{
		UID:          s.UserID,
		Email:        s.Email,
		DisplayName:  s.DisplayName,
		ProviderID:   s.Provider,
		IDToken:      s.IDToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
	}
}

func fromUser(u *identity.User) *Session {
	s := &Session{
		UserID:       u.UID,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		Provider:     u.ProviderID,
		IDToken:      u.IDToken,
		RefreshToken: u.RefreshToken,
		ExpiresAt:    u.ExpiresAt,
	}
	if claims, err := identity.ParseClaims(u.IDToken); err == nil {
		s.Roles = claims.Roles
		if s.ExpiresAt.IsZero() {
			s.ExpiresAt = claims.ExpiresAt
		}
		if s.DisplayName == "" {
			s.DisplayName = claims.Name
		}
	}
	return s
}

// Reason says why the session changed.
type Reason string

const (
	ReasonRestored Reason = "restored"
	ReasonLogin    Reason = "login"
	ReasonLogout   Reason = "logout"
	ReasonExpired  Reason = "expired"
)

// Change is delivered to subscribers. Session is nil when signed out.
type Change struct {
	Session *Session
	Reason  Reason
}

// Persister keeps the session across process restarts. Load returns nil, nil when nothing is saved.
type Persister interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
}
