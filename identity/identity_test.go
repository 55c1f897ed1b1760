package identity_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/bizadmin/identity"
	"github.com/jrsteele09/bizadmin/internal/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func signed(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func TestParseClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	raw := signed(t, jwtlib.MapClaims{
		"sub":   "uid-1",
		"email": "a@b.com",
		"name":  "Ada",
		"iss":   "https://securetoken.google.com/demo",
		"exp":   exp.Unix(),
		"roles": []any{"editor"},
		"admin": true,
	})

	c, err := identity.ParseClaims(raw)
	require.NoError(t, err)
	require.Equal(t, "uid-1", c.Subject)
	require.Equal(t, "a@b.com", c.Email)
	require.Equal(t, "Ada", c.Name)
	require.Equal(t, exp.Unix(), c.ExpiresAt.Unix())
	require.ElementsMatch(t, []string{"editor", "admin"}, c.Roles)
}

func TestParseClaimsRejectsGarbage(t *testing.T) {
	_, err := identity.ParseClaims("")
	require.Error(t, err)
	_, err = identity.ParseClaims("not-a-jwt")
	require.Error(t, err)

	fallback := time.Unix(42, 0)
	require.Equal(t, fallback, identity.ExpiryOf("not-a-jwt", fallback))
}

func TestProfileValidate(t *testing.T) {
	tests := []struct {
		name    string
		profile identity.Profile
		wantErr error
		valErr  bool
	}{
		{name: "ok", profile: identity.Profile{Email: "a@b.com", Password: "Passw0rdX", Name: "Ada"}},
		{name: "bad email", profile: identity.Profile{Email: "nope", Password: "Passw0rdX"}, valErr: true},
		{name: "missing password", profile: identity.Profile{Email: "a@b.com"}, valErr: true},
		{name: "weak password", profile: identity.Profile{Email: "a@b.com", Password: "password"}, wantErr: errors.ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			switch {
			case tt.valErr:
				var ve *errors.ValidationError
				require.ErrorAs(t, err, &ve)
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
			}
		})
	}
}

func TestIDTokenFromOAuth(t *testing.T) {
	tok := &oauth2.Token{AccessToken: "access"}
	require.Equal(t, "access", identity.IDTokenFromOAuth(tok))
	require.Equal(t, "idtok", identity.IDTokenFromOAuth(tok.WithExtra(map[string]any{"id_token": "idtok"})))
	require.Equal(t, "", identity.IDTokenFromOAuth(nil))
}
