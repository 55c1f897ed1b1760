package views

import (
	"context"

	"github.com/jrsteele09/bizadmin/identity"
	"github.com/jrsteele09/bizadmin/internal/errors"
	"github.com/jrsteele09/bizadmin/session"
)

// Authenticator is the part of the session store the login page drives.
type Authenticator interface {
	Login(ctx context.Context, creds identity.Credentials) (*session.Session, error)
	LoginWithExternalProvider(ctx context.Context) (*session.Session, error)
	Register(ctx context.Context, profile identity.Profile) (*session.Session, error)
}

// Notice is the toast shown after a sign-in attempt.
type Notice struct {
	Success bool   `json:"success" yaml:"success"`
	Message string `json:"message" yaml:"message"`
}

const (
	msgInvalidCredentials = "Invalid email or password"
	msgGoogleCancelled    = "Google sign-in was cancelled"
	msgGoogleFailed       = "Google sign-in failed"
	msgRegisterFailed     = "Registration failed, please try again"
)

// Login is the sign-in and registration page. Failures are reported with a generic notice;
// the detailed error is returned for logging.
type Login struct {
	auth Authenticator
}

func NewLogin(auth Authenticator) *Login {
	return &Login{auth: auth}
}

func (v *Login) Submit(ctx context.Context, creds identity.Credentials) (Notice, error) {
	s, err := v.auth.Login(ctx, creds)
	if err != nil {
		return Notice{Message: msgInvalidCredentials}, err
	}
	return welcome(s), nil
}

func (v *Login) Google(ctx context.Context) (Notice, error) {
	s, err := v.auth.LoginWithExternalProvider(ctx)
	if errors.IsAuthKind(err, errors.PopupClosed) {
		return Notice{Message: msgGoogleCancelled}, err
	}
	if err != nil {
		return Notice{Message: msgGoogleFailed}, err
	}
	return welcome(s), nil
}

func (v *Login) Register(ctx context.Context, profile identity.Profile) (Notice, error) {
	s, err := v.auth.Register(ctx, profile)
	if err != nil {
		var verr *errors.ValidationError
		switch {
		case errors.As(err, &verr), errors.Is(err, errors.ErrWeakPassword), errors.Is(err, errors.ErrAccountExists):
			return Notice{Message: err.Error()}, err
		}
		return Notice{Message: msgRegisterFailed}, err
	}
	return welcome(s), nil
}

func welcome(s *session.Session) Notice {
	name := s.DisplayName
	if name == "" {
		name = s.Email
	}
	return Notice{Success: true, Message: "Welcome, " + name}
}
