// Package firebase signs in against the Firebase Authentication REST API.
package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/bizadmin/identity"
	"github.com/jrsteele09/bizadmin/internal/errors"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	defaultAccountsURL = "https://identitytoolkit.googleapis.com/v1"
	defaultTokenURL    = "https://securetoken.googleapis.com/v1/token"
	issuerPrefix       = "https://securetoken.google.com/"
	// Google publishes the securetoken signing keys here; id tokens carry the kid.
	jwksURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
)

var _ identity.Provider = (*Client)(nil)

// ExternalFlow obtains a Google id token from the user, for example through a browser.
type ExternalFlow interface {
	IDToken(ctx context.Context) (string, error)
}

// Client talks to Firebase Authentication.
type Client struct {
	apiKey      string
	projectID   string
	accountsURL string
	tokenURL    string
	httpClient  *http.Client
	verifier    *oidc.IDTokenVerifier
	external    ExternalFlow
	log         zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithAccountsURL points the client at another identity toolkit, for example the auth emulator.
func WithAccountsURL(u string) Option {
	return func(c *Client) { c.accountsURL = strings.TrimRight(u, "/") }
}

// WithTokenURL overrides the securetoken refresh endpoint.
func WithTokenURL(u string) Option {
	return func(c *Client) { c.tokenURL = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithVerifier replaces the id-token verifier. A nil verifier disables verification (emulator).
func WithVerifier(v *oidc.IDTokenVerifier) Option {
	return func(c *Client) { c.verifier = v }
}

func WithExternalFlow(f ExternalFlow) Option {
	return func(c *Client) { c.external = f }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a Firebase client for the project.
func New(apiKey, projectID string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, pkgerrors.New("[firebase.New] api key is required")
	}
	if projectID == "" {
		return nil, pkgerrors.New("[firebase.New] project id is required")
	}

	c := &Client{
		apiKey:      apiKey,
		projectID:   projectID,
		accountsURL: defaultAccountsURL,
		tokenURL:    defaultTokenURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		log:         zerolog.Nop(),
	}
	c.verifier = oidc.NewVerifier(
		issuerPrefix+projectID,
		oidc.NewRemoteKeySet(oidc.ClientContext(context.Background(), c.httpClient), jwksURL),
		&oidc.Config{ClientID: projectID},
	)

	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

type authResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	ProviderID   string `json:"providerId"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) SignInWithPassword(ctx context.Context, creds identity.Credentials) (*identity.User, error) {
	var resp authResponse
	err := c.post(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             creds.Email,
		"password":          creds.Password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[SignInWithPassword]")
	}
	resp.ProviderID = identity.ProviderPassword
	return c.user(ctx, resp)
}

func (c *Client) SignInWithExternal(ctx context.Context) (*identity.User, error) {
	if c.external == nil {
		return nil, errors.Wrapf(errors.ErrUnsupported, "no external sign-in flow configured")
	}
	googleIDToken, err := c.external.IDToken(ctx)
	if err != nil {
		return nil, err
	}

	postBody := url.Values{"id_token": {googleIDToken}, "providerId": {identity.ProviderGoogle}}
	var resp authResponse
	err = c.post(ctx, "accounts:signInWithIdp", map[string]any{
		"postBody":          postBody.Encode(),
		"requestUri":        "http://localhost",
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[SignInWithExternal]")
	}
	if resp.ProviderID == "" {
		resp.ProviderID = identity.ProviderGoogle
	}
	return c.user(ctx, resp)
}

func (c *Client) CreateAccount(ctx context.Context, profile identity.Profile) (*identity.User, error) {
	var resp authResponse
	err := c.post(ctx, "accounts:signUp", map[string]any{
		"email":             profile.Email,
		"password":          profile.Password,
		"displayName":       profile.Name,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[CreateAccount]")
	}
	if resp.DisplayName == "" {
		resp.DisplayName = profile.Name
	}
	resp.ProviderID = identity.ProviderPassword
	return c.user(ctx, resp)
}

func (c *Client) DeleteAccount(ctx context.Context, user *identity.User) error {
	if user == nil || user.IDToken == "" {
		return errors.ErrAccountNotFound
	}
	if err := c.post(ctx, "accounts:delete", map[string]any{"idToken": user.IDToken}, nil); err != nil {
		return pkgerrors.Wrap(err, "[DeleteAccount]")
	}
	return nil
}

// SignOut is local for Firebase: dropping the refresh token ends the session.
func (c *Client) SignOut(_ context.Context, user *identity.User) error {
	if user != nil {
		c.log.Debug().Str("uid", user.UID).Msg("firebase sign out")
	}
	return nil
}

// TokenSource refreshes id tokens with the securetoken endpoint through the oauth2 refresh grant.
func (c *Client) TokenSource(ctx context.Context, user *identity.User) oauth2.TokenSource {
	cfg := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.tokenURL + "?key=" + url.QueryEscape(c.apiKey),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	return &idTokenSource{base: cfg.TokenSource(ctx, user.Token())}
}

type idTokenSource struct {
	base oauth2.TokenSource
}

// Token returns the refreshed id token as the access token so callers can send it as bearer.
func (s *idTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	out := *tok
	out.AccessToken = identity.IDTokenFromOAuth(tok)
	out.Expiry = identity.ExpiryOf(out.AccessToken, tok.Expiry)
	return &out, nil
}

func (c *Client) user(ctx context.Context, resp authResponse) (*identity.User, error) {
	if resp.IDToken == "" {
		return nil, errors.Wrapf(errors.ErrBadPayload, "firebase response without idToken")
	}
	if c.verifier != nil {
		if _, err := c.verifier.Verify(ctx, resp.IDToken); err != nil {
			return nil, pkgerrors.Wrap(err, "[firebase] id token verification failed")
		}
	}

	fallback := time.Now().Add(time.Hour)
	if secs, err := strconv.Atoi(resp.ExpiresIn); err == nil && secs > 0 {
		fallback = time.Now().Add(time.Duration(secs) * time.Second)
	}

	return &identity.User{
		UID:          resp.LocalID,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		ProviderID:   resp.ProviderID,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    identity.ExpiryOf(resp.IDToken, fallback),
	}, nil
}

func (c *Client) post(ctx context.Context, method string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/%s?key=%s", c.accountsURL, method, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		var fe errorResponse
		if jsonErr := json.Unmarshal(data, &fe); jsonErr != nil || fe.Error.Message == "" {
			return fmt.Errorf("firebase %s: status %d", method, resp.StatusCode)
		}
		c.log.Debug().Str("method", method).Str("code", fe.Error.Message).Msg("firebase rejected request")
		return mapError(fe.Error.Message)
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// mapError turns Firebase error codes into package errors. Codes may carry a " : detail" suffix.
func mapError(message string) error {
	code := strings.TrimSpace(strings.SplitN(message, ":", 2)[0])
	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED", "INVALID_EMAIL":
		return errors.Wrapf(errors.ErrInvalidCredentials, "%s", code)
	case "EMAIL_EXISTS":
		return errors.Wrapf(errors.ErrAccountExists, "%s", code)
	case "WEAK_PASSWORD":
		return errors.Wrapf(errors.ErrWeakPassword, "%s", code)
	case "USER_NOT_FOUND", "INVALID_ID_TOKEN":
		return errors.Wrapf(errors.ErrAccountNotFound, "%s", code)
	default:
		return fmt.Errorf("firebase: %s", message)
	}
}
