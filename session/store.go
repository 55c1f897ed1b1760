package session

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/bizadmin/apiclient"
	"github.com/jrsteele09/bizadmin/identity"
	"github.com/jrsteele09/bizadmin/internal/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// AuthAPI is the backend side of sign-in.
type AuthAPI interface {
	VerifyToken(ctx context.Context, idToken string) (*apiclient.AuthResponse, error)
	GoogleSignIn(ctx context.Context, idToken string) (*apiclient.AuthResponse, error)
	Register(ctx context.Context, body apiclient.RegisterRequest) (*apiclient.AuthResponse, error)
}

type Option func(s *Store)

// WithPersister keeps the session across restarts; without it sessions live in memory only.
func WithPersister(p Persister) Option {
	return func(s *Store) {
		s.persister = p
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store owns the current session. Its lock is never held across network calls or callbacks.
type Store struct {
	provider  identity.Provider
	api       AuthAPI
	persister Persister
	log       zerolog.Logger
	now       func() time.Time

	lock        sync.Mutex
	current     *Session
	tokens      oauth2.TokenSource
	subscribers map[int]func(Change)
	nextSubID   int
	restored    bool
	ready       chan struct{}

	refreshGroup singleflight.Group
}

func NewStore(provider identity.Provider, api AuthAPI, options ...Option) *Store {
	s := &Store{
		provider:    provider,
		api:         api,
		log:         zerolog.Nop(),
		now:         time.Now,
		subscribers: make(map[int]func(Change)),
		ready:       make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Login signs in with email and password and has the backend verify the new id token.
// If the backend rejects it the provider session is signed out again and the store is unchanged.
func (s *Store) Login(ctx context.Context, creds identity.Credentials) (*Session, error) {
	if err := creds.Validate(); err != nil {
		return nil, errors.NewAuthError(errors.InvalidCredentials, err)
	}
	user, err := s.provider.SignInWithPassword(ctx, creds)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidCredentials) {
			return nil, errors.NewAuthError(errors.InvalidCredentials, err)
		}
		return nil, errors.Wrapf(err, "sign in %s", creds.Email)
	}

	resp, err := s.api.VerifyToken(ctx, user.IDToken)
	if err = backendOutcome(resp, err); err != nil {
		s.rollbackSignIn(ctx, user)
		return nil, errors.NewAuthError(errors.BackendVerificationFailed, err)
	}
	return s.establish(ctx, user, ReasonLogin), nil
}

// LoginWithExternalProvider runs the provider's external (Google) flow and registers the
// resulting id token with the backend.
func (s *Store) LoginWithExternalProvider(ctx context.Context) (*Session, error) {
	user, err := s.provider.SignInWithExternal(ctx)
	if err != nil {
		if errors.Is(err, errors.ErrPopupClosed) {
			return nil, errors.NewAuthError(errors.PopupClosed, err)
		}
		return nil, errors.Wrapf(err, "external sign in")
	}

	resp, err := s.api.GoogleSignIn(ctx, user.IDToken)
	if err = backendOutcome(resp, err); err != nil {
		s.rollbackSignIn(ctx, user)
		return nil, errors.NewAuthError(errors.BackendVerificationFailed, err)
	}
	return s.establish(ctx, user, ReasonLogin), nil
}

// Register creates a provider account and the matching backend profile. When the backend call
// fails the provider account is deleted again; a failed deletion is logged, not retried.
func (s *Store) Register(ctx context.Context, profile identity.Profile) (*Session, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	user, err := s.provider.CreateAccount(ctx, profile)
	if err != nil {
		return nil, errors.Wrapf(err, "create account %s", profile.Email)
	}

	resp, err := s.api.Register(ctx, apiclient.RegisterRequest{
		Email:    profile.Email,
		Password: profile.Password,
		Name:     profile.Name,
	})
	if err = backendOutcome(resp, err); err != nil {
		if delErr := s.provider.DeleteAccount(context.WithoutCancel(ctx), user); delErr != nil {
			s.log.Error().Err(delErr).Str("email", profile.Email).Str("uid", user.UID).
				Msg("failed to delete provider account after backend registration failed")
		}
		return nil, errors.NewAuthError(errors.BackendVerificationFailed, err)
	}
	return s.establish(ctx, user, ReasonLogin), nil
}

// Logout ends the session. Calling it without a session does nothing.
func (s *Store) Logout(ctx context.Context) error {
	s.lock.Lock()
	current := s.current
	s.current = nil
	s.tokens = nil
	s.lock.Unlock()

	if current == nil {
		return nil
	}
	if err := s.provider.SignOut(ctx, current.user()); err != nil {
		s.log.Warn().Err(err).Msg("provider sign out failed")
	}
	var clearErr error
	if s.persister != nil {
		clearErr = s.persister.Clear(ctx)
	}
	s.notify(Change{Reason: ReasonLogout})
	return errors.Wrapf(clearErr, "clear saved session")
}

// Restore loads a saved session and refreshes its id token. It always ends by marking
// restoration complete and notifying subscribers, signed in or not.
func (s *Store) Restore(ctx context.Context) *Session {
	restored := s.restore(ctx)

	s.lock.Lock()
	if s.current == nil && restored != nil {
		s.current = restored
		s.tokens = s.provider.TokenSource(context.WithoutCancel(ctx), restored.user())
	}
	current := s.current
	if !s.restored {
		s.restored = true
		close(s.ready)
	}
	s.lock.Unlock()

	s.notify(Change{Session: current, Reason: ReasonRestored})
	return current
}

func (s *Store) restore(ctx context.Context) *Session {
	if s.persister == nil {
		return nil
	}
	saved, err := s.persister.Load(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("could not load saved session")
		return nil
	}
	if saved == nil || saved.RefreshToken == "" {
		return nil
	}

	tok, err := s.provider.TokenSource(ctx, saved.user()).Token()
	if err != nil {
		s.log.Info().Err(err).Str("email", saved.Email).Msg("saved session could not be refreshed")
		if clearErr := s.persister.Clear(ctx); clearErr != nil {
			s.log.Warn().Err(clearErr).Msg("could not clear saved session")
		}
		return nil
	}
	restored := withToken(saved, tok)
	s.save(ctx, restored)
	return restored
}

// Token returns the current id token, refreshing it through the provider when it has expired.
// A failed refresh expires the session.
func (s *Store) Token(ctx context.Context) (string, error) {
	current := s.Current()
	if current == nil {
		return "", errors.ErrNoSession
	}
	if current.usable(s.now()) {
		return current.IDToken, nil
	}

	ch := s.refreshGroup.DoChan(current.RefreshToken, func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx), current)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(*Session).IDToken, nil
	}
}

func (s *Store) refresh(ctx context.Context, stale *Session) (*Session, error) {
	s.lock.Lock()
	current, tokens := s.current, s.tokens
	s.lock.Unlock()
	if current != stale {
		// Another caller already refreshed, or the session ended.
		if current.usable(s.now()) {
			return current, nil
		}
		return nil, errors.ErrNoSession
	}

	var (
		tok   *oauth2.Token
		fresh *Session
		err   = errors.ErrNoSession
	)
	if tokens != nil {
		tok, err = tokens.Token()
	}
	if err == nil {
		fresh = withToken(stale, tok)
		if !fresh.Authenticated(s.now()) {
			err = errors.New("provider returned an expired token")
		}
	}
	if err != nil {
		s.expire(ctx, stale, err)
		return nil, errors.Wrapf(errors.ErrSessionExpired, "refresh failed: %v", err)
	}

	s.lock.Lock()
	if s.current != stale {
		// Logged out or replaced while refreshing.
		s.lock.Unlock()
		return nil, errors.ErrNoSession
	}
	s.current = fresh
	s.lock.Unlock()
	s.save(ctx, fresh)
	return fresh, nil
}

func (s *Store) expire(ctx context.Context, stale *Session, cause error) {
	s.lock.Lock()
	if s.current != stale {
		s.lock.Unlock()
		return
	}
	s.current = nil
	s.tokens = nil
	s.lock.Unlock()

	s.log.Info().Err(cause).Str("email", stale.Email).Msg("session expired")
	if s.persister != nil {
		if err := s.persister.Clear(ctx); err != nil {
			s.log.Warn().Err(err).Msg("could not clear saved session")
		}
	}
	s.notify(Change{Reason: ReasonExpired})
}

// Current returns the session snapshot or nil.
func (s *Store) Current() *Session {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.current
}

// Subscribe registers fn for every change until the returned function is called.
// fn runs synchronously on the goroutine that caused the change.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.lock.Lock()
	defer s.lock.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	return func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		delete(s.subscribers, id)
	}
}

// Ready is closed once Restore has finished.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

func (s *Store) Restored() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.restored
}

func (s *Store) establish(ctx context.Context, user *identity.User, reason Reason) *Session {
	next := fromUser(user)
	if next.ExpiresAt.IsZero() {
		next.ExpiresAt = identity.ExpiryOf(user.IDToken, s.now().Add(time.Hour))
	}
	tokens := s.provider.TokenSource(context.WithoutCancel(ctx), user)

	s.lock.Lock()
	s.current = next
	s.tokens = tokens
	s.lock.Unlock()

	s.save(ctx, next)
	s.log.Info().Str("email", next.Email).Str("provider", next.Provider).Msg("signed in")
	s.notify(Change{Session: next, Reason: reason})
	return next
}

func (s *Store) rollbackSignIn(ctx context.Context, user *identity.User) {
	if err := s.provider.SignOut(context.WithoutCancel(ctx), user); err != nil {
		s.log.Warn().Err(err).Str("email", user.Email).Msg("provider sign out after failed verification")
	}
}

func (s *Store) save(ctx context.Context, session *Session) {
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(ctx, session); err != nil {
		s.log.Warn().Err(err).Msg("could not save session")
	}
}

func (s *Store) notify(change Change) {
	s.lock.Lock()
	subs := make([]func(Change), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.lock.Unlock()
	for _, fn := range subs {
		fn(change)
	}
}

// backendOutcome treats an unsuccessful acknowledgement like a failed call.
func backendOutcome(resp *apiclient.AuthResponse, err error) error {
	if err != nil {
		return err
	}
	if resp != nil && !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "backend did not accept the token"
		}
		return &errors.APIError{Kind: errors.APIStatus, Status: 200, Message: msg}
	}
	return nil
}

func withToken(prev *Session, tok *oauth2.Token) *Session {
	next := *prev
	next.IDToken = identity.IDTokenFromOAuth(tok)
	next.ExpiresAt = tok.Expiry
	if tok.RefreshToken != "" {
		next.RefreshToken = tok.RefreshToken
	}
	if next.ExpiresAt.IsZero() {
		next.ExpiresAt = identity.ExpiryOf(next.IDToken, prev.ExpiresAt)
	}
	if claims, err := identity.ParseClaims(next.IDToken); err == nil && claims.Roles != nil {
		next.Roles = claims.Roles
	}
	return &next
}
