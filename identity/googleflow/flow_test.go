package googleflow_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/bizadmin/identity/googleflow"
	"github.com/jrsteele09/bizadmin/internal/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testIssuer   = "https://accounts.example.test"
	testClientID = "client-1"
)

type fakeGoogle struct {
	key       *rsa.PrivateKey
	server    *httptest.Server
	lock      sync.Mutex
	nonce     string
	challenge string
	verified  bool
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	g := &fakeGoogle{key: key}
	g.server = httptest.NewServer(http.HandlerFunc(g.token))
	t.Cleanup(g.server.Close)
	return g
}

func (g *fakeGoogle) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.Form.Get("code") != "good-code" {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
		return
	}
	g.lock.Lock()
	defer g.lock.Unlock()

	sum := sha256.Sum256([]byte(r.Form.Get("code_verifier")))
	g.verified = base64.RawURLEncoding.EncodeToString(sum[:]) == g.challenge

	now := time.Now()
	idToken, _ := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, jwtlib.MapClaims{
		"iss":   testIssuer,
		"aud":   testClientID,
		"sub":   "google-sub",
		"email": "g@b.com",
		"nonce": g.nonce,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}).SignedString(g.key)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": "google-access",
		"token_type":   "Bearer",
		"expires_in":   3600,
		"id_token":     idToken,
	})
}

// browser simulates the user completing (or cancelling) consent.
func (g *fakeGoogle) browser(t *testing.T, query url.Values) googleflow.Opener {
	return func(authURL string) error {
		u, err := url.Parse(authURL)
		require.NoError(t, err)
		params := u.Query()

		g.lock.Lock()
		g.nonce = params.Get("nonce")
		g.challenge = params.Get("code_challenge")
		g.lock.Unlock()

		q := url.Values{"state": {params.Get("state")}}
		for k, v := range query {
			q[k] = v
		}
		go func() {
			resp, err := http.Get(params.Get("redirect_uri") + "?" + q.Encode())
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}
}

func (g *fakeGoogle) flow(t *testing.T, open googleflow.Opener, opts ...googleflow.Option) *googleflow.Flow {
	verifier := oidc.NewVerifier(testIssuer,
		&oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&g.key.PublicKey}},
		&oidc.Config{ClientID: testClientID})
	base := []googleflow.Option{
		googleflow.WithEndpoint(oauth2.Endpoint{AuthURL: g.server.URL + "/auth", TokenURL: g.server.URL + "/token"}),
		googleflow.WithVerifier(verifier),
	}
	return googleflow.New(testClientID, "secret", open, append(base, opts...)...)
}

func TestIDTokenCompletesFlow(t *testing.T) {
	g := newFakeGoogle(t)
	f := g.flow(t, g.browser(t, url.Values{"code": {"good-code"}}))

	raw, err := f.IDToken(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	g.lock.Lock()
	defer g.lock.Unlock()
	require.True(t, g.verified, "PKCE verifier must match the challenge")
}

func TestIDTokenAccessDenied(t *testing.T) {
	g := newFakeGoogle(t)
	f := g.flow(t, g.browser(t, url.Values{"error": {"access_denied"}}))

	_, err := f.IDToken(context.Background())
	require.ErrorIs(t, err, errors.ErrPopupClosed)
}

func TestIDTokenTimeoutIsPopupClosed(t *testing.T) {
	g := newFakeGoogle(t)
	f := g.flow(t, func(string) error { return nil }, googleflow.WithTimeout(50*time.Millisecond))

	_, err := f.IDToken(context.Background())
	require.ErrorIs(t, err, errors.ErrPopupClosed)
}
