// Package googleflow obtains a Google id token through the browser using the OAuth2
// authorization-code flow with PKCE and a loopback redirect listener.
package googleflow

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/bizadmin/internal/errors"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleIssuer = "https://accounts.google.com"
	callbackPath = "/callback"
)

// Opener shows the authorization URL to the user, usually by launching a browser.
type Opener func(authURL string) error

// Flow runs one interactive Google sign-in per IDToken call.
type Flow struct {
	config     oauth2.Config
	issuer     string
	verifier   *oidc.IDTokenVerifier
	open       Opener
	listenAddr string
	timeout    time.Duration
	log        zerolog.Logger
}

type Option func(*Flow)

// WithEndpoint replaces Google's endpoints, used against test servers.
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(f *Flow) { f.config.Endpoint = ep }
}

func WithVerifier(v *oidc.IDTokenVerifier) Option {
	return func(f *Flow) { f.verifier = v }
}

func WithListenAddr(addr string) Option {
	return func(f *Flow) { f.listenAddr = addr }
}

// WithTimeout bounds how long the user has to finish signing in.
func WithTimeout(d time.Duration) Option {
	return func(f *Flow) { f.timeout = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(f *Flow) { f.log = l }
}

func New(clientID, clientSecret string, open Opener, options ...Option) *Flow {
	f := &Flow{
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		issuer:     googleIssuer,
		open:       open,
		listenAddr: "127.0.0.1:0",
		timeout:    5 * time.Minute,
		log:        zerolog.Nop(),
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

type callbackResult struct {
	code string
	err  error
}

// IDToken runs the flow and returns a verified Google id token.
// Abandoning the flow (denied consent, timeout, cancelled ctx) yields errors.ErrPopupClosed.
func (f *Flow) IDToken(ctx context.Context) (string, error) {
	verifier, err := f.idTokenVerifier(ctx)
	if err != nil {
		return "", err
	}

	listener, err := net.Listen("tcp", f.listenAddr)
	if err != nil {
		return "", pkgerrors.Wrap(err, "[googleflow] listen")
	}

	cfg := f.config
	cfg.RedirectURL = fmt.Sprintf("http://%s%s", listener.Addr().String(), callbackPath)

	state := randomString(24)
	nonce := randomString(24)
	codeVerifier := oauth2.GenerateVerifier()

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		res := callbackResult{code: r.FormValue("code")}
		switch {
		case r.FormValue("error") != "":
			res.err = errors.Wrapf(errors.ErrPopupClosed, "%s", r.FormValue("error"))
		case r.FormValue("state") != state:
			res.err = pkgerrors.New("[googleflow] state mismatch")
		case res.code == "":
			res.err = pkgerrors.New("[googleflow] missing code")
		}
		if res.err != nil {
			http.Error(w, "Sign-in failed, you can close this window.", http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "Signed in, you can close this window.")
		}
		select {
		case results <- res:
		default:
		}
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			f.log.Error().Err(err).Msg("googleflow callback server")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	authURL := cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(codeVerifier), oidc.Nonce(nonce))
	if err := f.open(authURL); err != nil {
		return "", pkgerrors.Wrap(err, "[googleflow] open browser")
	}

	waitCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var res callbackResult
	select {
	case <-waitCtx.Done():
		return "", errors.Wrapf(errors.ErrPopupClosed, "%v", waitCtx.Err())
	case res = <-results:
	}
	if res.err != nil {
		return "", res.err
	}

	tok, err := cfg.Exchange(ctx, res.code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return "", pkgerrors.Wrap(err, "[googleflow] token exchange failed")
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok {
		return "", pkgerrors.New("[googleflow] no id token in response")
	}

	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return "", pkgerrors.Wrap(err, "[googleflow] id token verification failed")
	}
	if idToken.Nonce != nonce {
		return "", pkgerrors.New("[googleflow] invalid nonce")
	}
	return rawIDToken, nil
}

func (f *Flow) idTokenVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	if f.verifier != nil {
		return f.verifier, nil
	}
	provider, err := oidc.NewProvider(ctx, f.issuer)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[googleflow] failed to create OIDC provider")
	}
	f.verifier = provider.Verifier(&oidc.Config{ClientID: f.config.ClientID})
	return f.verifier, nil
}

func randomString(length int) string {
	b := make([]byte, length)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
