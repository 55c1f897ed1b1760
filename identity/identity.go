// Package identity describes the third-party identity provider the admin client signs in with.
// The provider issues id tokens; the backend verifies them and owns everything else.
package identity

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// Provider IDs reported on User.ProviderID.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google.com"
)

// Credentials are an email/password pair for password sign-in.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// User is a provider account signed in on this process.
type User struct {
	UID          string    // Provider account id (Firebase localId)
	Email        string    // Account email
	DisplayName  string    // Name on the account, may be empty
	ProviderID   string    // password or google.com
	IDToken      string    // Short-lived id token sent to the backend as bearer
	RefreshToken string    // Long-lived credential used for silent restoration
	ExpiresAt    time.Time // Expiry of IDToken
}

// Token converts the user's credentials to an oauth2 token for refreshing token sources.
func (u *User) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  u.IDToken,
		RefreshToken: u.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       u.ExpiresAt,
	}
}

// Provider is the identity provider contract used by the session store.
type Provider interface {
	// SignInWithPassword fails with errors.ErrInvalidCredentials when the provider rejects the pair.
	SignInWithPassword(ctx context.Context, creds Credentials) (*User, error)

	// SignInWithExternal runs the third-party (Google) flow; errors.ErrPopupClosed when abandoned.
	SignInWithExternal(ctx context.Context) (*User, error)

	// CreateAccount creates and signs in a new account.
	CreateAccount(ctx context.Context, profile Profile) (*User, error)

	// DeleteAccount removes an account created by CreateAccount.
	DeleteAccount(ctx context.Context, user *User) error

	// SignOut ends the provider-side session of user.
	SignOut(ctx context.Context, user *User) error

	// TokenSource yields fresh id tokens for user, refreshing with its refresh token.
	TokenSource(ctx context.Context, user *User) oauth2.TokenSource
}

// IDTokenFromOAuth returns the id token carried by an oauth2 token. Providers that return the
// id token separately put it in the id_token extra field.
func IDTokenFromOAuth(tok *oauth2.Token) string {
	if tok == nil {
		return ""
	}
	if raw, ok := tok.Extra("id_token").(string); ok && raw != "" {
		return raw
	}
	return tok.AccessToken
}
