package firebase_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/bizadmin/identity"
	"github.com/jrsteele09/bizadmin/identity/firebase"
	"github.com/jrsteele09/bizadmin/internal/errors"
	"github.com/stretchr/testify/require"
)

const (
	testProject = "demo-project"
	testAPIKey  = "api-key-1"
)

type fakeFirebase struct {
	t        *testing.T
	key      *rsa.PrivateKey
	server   *httptest.Server
	deleted  []string
	requests map[string]int
}

func newFakeFirebase(t *testing.T) *fakeFirebase {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &fakeFirebase{t: t, key: key, requests: map[string]int{}}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeFirebase) idToken(sub, email string) string {
	now := time.Now()
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, jwtlib.MapClaims{
		"iss":   "https://securetoken.google.com/" + testProject,
		"aud":   testProject,
		"sub":   sub,
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}).SignedString(f.key)
	require.NoError(f.t, err)
	return raw
}

func (f *fakeFirebase) handle(w http.ResponseWriter, r *http.Request) {
	f.requests[r.URL.Path]++
	if r.URL.Query().Get("key") != testAPIKey {
		http.Error(w, `{"error":{"code":400,"message":"API_KEY_INVALID"}}`, http.StatusBadRequest)
		return
	}

	if r.URL.Path == "/token" {
		require.NoError(f.t, r.ParseForm())
		require.Equal(f.t, "refresh_token", r.Form.Get("grant_type"))
		tok := f.idToken("uid-1", "a@b.com")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  tok,
			"id_token":      tok,
			"refresh_token": "refresh-2",
			"expires_in":    3600,
			"token_type":    "Bearer",
		})
		return
	}

	var body map[string]any
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))

	switch r.URL.Path {
	case "/accounts:signInWithPassword":
		if body["password"] != "right" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"INVALID_LOGIN_CREDENTIALS"}}`))
			return
		}
		f.writeAuth(w, "uid-1", body["email"].(string))
	case "/accounts:signUp":
		if body["email"] == "taken@b.com" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"EMAIL_EXISTS"}}`))
			return
		}
		f.writeAuth(w, "uid-new", body["email"].(string))
	case "/accounts:delete":
		f.deleted = append(f.deleted, body["idToken"].(string))
		_, _ = w.Write([]byte(`{}`))
	case "/accounts:signInWithIdp":
		postBody, err := url.ParseQuery(body["postBody"].(string))
		require.NoError(f.t, err)
		require.Equal(f.t, "google-id-token", postBody.Get("id_token"))
		f.writeAuth(w, "uid-g", "g@b.com")
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeFirebase) writeAuth(w http.ResponseWriter, uid, email string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"localId":      uid,
		"email":        email,
		"idToken":      f.idToken(uid, email),
		"refreshToken": "refresh-1",
		"expiresIn":    "3600",
	})
}

type staticFlow struct{ token string }

func (s staticFlow) IDToken(context.Context) (string, error) {
	if s.token == "" {
		return "", errors.ErrPopupClosed
	}
	return s.token, nil
}

func newClient(t *testing.T, f *fakeFirebase, opts ...firebase.Option) *firebase.Client {
	t.Helper()
	verifier := oidc.NewVerifier(
		"https://securetoken.google.com/"+testProject,
		&oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&f.key.PublicKey}},
		&oidc.Config{ClientID: testProject},
	)
	base := []firebase.Option{
		firebase.WithAccountsURL(f.server.URL),
		firebase.WithTokenURL(f.server.URL + "/token"),
		firebase.WithVerifier(verifier),
	}
	c, err := firebase.New(testAPIKey, testProject, append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func TestNewRequiresKeys(t *testing.T) {
	_, err := firebase.New("", testProject)
	require.Error(t, err)
	_, err = firebase.New(testAPIKey, "")
	require.Error(t, err)
}

func TestSignInWithPassword(t *testing.T) {
	f := newFakeFirebase(t)
	c := newClient(t, f)

	u, err := c.SignInWithPassword(context.Background(), identity.Credentials{Email: "a@b.com", Password: "right"})
	require.NoError(t, err)
	require.Equal(t, "uid-1", u.UID)
	require.Equal(t, "refresh-1", u.RefreshToken)
	require.WithinDuration(t, time.Now().Add(time.Hour), u.ExpiresAt, 5*time.Second)

	_, err = c.SignInWithPassword(context.Background(), identity.Credentials{Email: "a@b.com", Password: "wrong"})
	require.ErrorIs(t, err, errors.ErrInvalidCredentials)
}

func TestSignInRejectsUnverifiableToken(t *testing.T) {
	f := newFakeFirebase(t)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	verifier := oidc.NewVerifier(
		"https://securetoken.google.com/"+testProject,
		&oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&other.PublicKey}},
		&oidc.Config{ClientID: testProject},
	)
	c := newClient(t, f, firebase.WithVerifier(verifier))

	_, err = c.SignInWithPassword(context.Background(), identity.Credentials{Email: "a@b.com", Password: "right"})
	require.Error(t, err)
}

func TestCreateAndDeleteAccount(t *testing.T) {
	f := newFakeFirebase(t)
	c := newClient(t, f)

	_, err := c.CreateAccount(context.Background(), identity.Profile{Email: "taken@b.com", Password: "Passw0rd1"})
	require.ErrorIs(t, err, errors.ErrAccountExists)

	u, err := c.CreateAccount(context.Background(), identity.Profile{Email: "n@b.com", Password: "Passw0rd1", Name: "New"})
	require.NoError(t, err)
	require.Equal(t, "New", u.DisplayName)

	require.NoError(t, c.DeleteAccount(context.Background(), u))
	require.Equal(t, []string{u.IDToken}, f.deleted)
}

func TestSignInWithExternal(t *testing.T) {
	f := newFakeFirebase(t)

	c := newClient(t, f, firebase.WithExternalFlow(staticFlow{}))
	_, err := c.SignInWithExternal(context.Background())
	require.ErrorIs(t, err, errors.ErrPopupClosed)

	c = newClient(t, f, firebase.WithExternalFlow(staticFlow{token: "google-id-token"}))
	u, err := c.SignInWithExternal(context.Background())
	require.NoError(t, err)
	require.Equal(t, identity.ProviderGoogle, u.ProviderID)
	require.Equal(t, "g@b.com", u.Email)
}

func TestTokenSourceRefreshes(t *testing.T) {
	f := newFakeFirebase(t)
	c := newClient(t, f)

	expired := &identity.User{IDToken: "old", RefreshToken: "refresh-1", ExpiresAt: time.Now().Add(-time.Minute)}
	tok, err := c.TokenSource(context.Background(), expired).Token()
	require.NoError(t, err)
	require.NotEqual(t, "old", tok.AccessToken)
	require.Equal(t, "refresh-2", tok.RefreshToken)
	require.Equal(t, 1, f.requests["/token"])
}
