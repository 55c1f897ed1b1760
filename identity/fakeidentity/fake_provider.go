package fakeidentity

import (
	"context"
	"fmt"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/bizadmin/identity"
	"github.com/jrsteele09/bizadmin/internal/errors"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

var _ identity.Provider = (*FakeProvider)(nil)

const signingSecret = "fake-identity-secret"

type account struct {
	uid          string
	email        string
	name         string
	passwordHash string
	roles        []string
}

// FakeProvider is an in-memory identity provider for tests and offline use.
type FakeProvider struct {
	accounts      map[string]*account // email -> account
	refreshTokens map[string]string   // refresh token -> email
	lock          sync.RWMutex

	TokenTTL        time.Duration
	ExternalEmail   string // account used by SignInWithExternal; empty means the user closed the popup
	FailRefresh     bool
	FailDelete      bool
	Now             func() time.Time
	SignIns         int
	SignOuts        int
	Deletes         int
	Refreshes       int
	ExternalSignIns int
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		accounts:      make(map[string]*account),
		refreshTokens: make(map[string]string),
		TokenTTL:      time.Hour,
		Now:           time.Now,
	}
}

// AddAccount seeds an account with a password and optional roles.
func (p *FakeProvider) AddAccount(email, password, name string, roles ...string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	p.accounts[email] = &account{uid: uuid.New().String(), email: email, name: name, passwordHash: string(hash), roles: roles}
	return nil
}

// HasAccount reports whether an account exists for email.
func (p *FakeProvider) HasAccount(email string) bool {
	p.lock.RLock()
	defer p.lock.RUnlock()
	_, ok := p.accounts[email]
	return ok
}

func (p *FakeProvider) SignInWithPassword(_ context.Context, creds identity.Credentials) (*identity.User, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	acc, ok := p.accounts[creds.Email]
	if !ok || bcrypt.CompareHashAndPassword([]byte(acc.passwordHash), []byte(creds.Password)) != nil {
		return nil, errors.ErrInvalidCredentials
	}
	p.SignIns++
	return p.issue(acc, identity.ProviderPassword)
}

func (p *FakeProvider) SignInWithExternal(_ context.Context) (*identity.User, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.ExternalEmail == "" {
		return nil, errors.ErrPopupClosed
	}
	acc, ok := p.accounts[p.ExternalEmail]
	if !ok {
		acc = &account{uid: uuid.New().String(), email: p.ExternalEmail}
		p.accounts[p.ExternalEmail] = acc
	}
	p.ExternalSignIns++
	return p.issue(acc, identity.ProviderGoogle)
}

func (p *FakeProvider) CreateAccount(_ context.Context, profile identity.Profile) (*identity.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(profile.Password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	if _, exists := p.accounts[profile.Email]; exists {
		return nil, errors.ErrAccountExists
	}
	acc := &account{uid: uuid.New().String(), email: profile.Email, name: profile.Name, passwordHash: string(hash)}
	p.accounts[profile.Email] = acc
	return p.issue(acc, identity.ProviderPassword)
}

func (p *FakeProvider) DeleteAccount(_ context.Context, user *identity.User) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.FailDelete {
		return fmt.Errorf("fake delete failure")
	}
	acc, ok := p.accounts[user.Email]
	if !ok || acc.uid != user.UID {
		return errors.ErrAccountNotFound
	}
	delete(p.accounts, user.Email)
	delete(p.refreshTokens, user.RefreshToken)
	p.Deletes++
	return nil
}

func (p *FakeProvider) SignOut(_ context.Context, user *identity.User) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if user != nil {
		delete(p.refreshTokens, user.RefreshToken)
	}
	p.SignOuts++
	return nil
}

// TokenSource reuses the user's id token until it expires by the provider clock, then refreshes.
func (p *FakeProvider) TokenSource(_ context.Context, user *identity.User) oauth2.TokenSource {
	return &refreshSource{provider: p, current: user.Token(), refreshToken: user.RefreshToken}
}

// Refresh exchanges a refresh token for a new id token.
func (p *FakeProvider) Refresh(refreshToken string) (*identity.User, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.Refreshes++
	if p.FailRefresh {
		return nil, errors.ErrSessionExpired
	}
	email, ok := p.refreshTokens[refreshToken]
	if !ok {
		return nil, errors.ErrSessionExpired
	}
	acc, ok := p.accounts[email]
	if !ok {
		return nil, errors.ErrAccountNotFound
	}
	delete(p.refreshTokens, refreshToken)
	return p.issue(acc, identity.ProviderPassword)
}

// issue mints a signed id token; caller holds the lock.
func (p *FakeProvider) issue(acc *account, providerID string) (*identity.User, error) {
	now := p.Now()
	expires := now.Add(p.TokenTTL)
	roles := make([]any, 0, len(acc.roles))
	for _, r := range acc.roles {
		roles = append(roles, r)
	}
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"iss":   "fake-identity",
		"sub":   acc.uid,
		"email": acc.email,
		"name":  acc.name,
		"roles": roles,
		"iat":   now.Unix(),
		"exp":   expires.Unix(),
		"jti":   uuid.New().String(),
	}).SignedString([]byte(signingSecret))
	if err != nil {
		return nil, err
	}
	refresh := uuid.New().String()
	p.refreshTokens[refresh] = acc.email
	return &identity.User{
		UID:          acc.uid,
		Email:        acc.email,
		DisplayName:  acc.name,
		ProviderID:   providerID,
		IDToken:      raw,
		RefreshToken: refresh,
		ExpiresAt:    expires,
	}, nil
}

type refreshSource struct {
	provider     *FakeProvider
	current      *oauth2.Token
	refreshToken string
	lock         sync.Mutex
}

func (s *refreshSource) Token() (*oauth2.Token, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.current != nil && s.current.AccessToken != "" && s.provider.Now().Add(10*time.Second).Before(s.current.Expiry) {
		return s.current, nil
	}
	u, err := s.provider.Refresh(s.refreshToken)
	if err != nil {
		return nil, err
	}
	s.refreshToken = u.RefreshToken
	s.current = u.Token()
	return s.current, nil
}
