package identity

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/bizadmin/internal/utils"
)

// Claims are the id token claims the client cares about. They are read without verifying the
// signature: the backend is responsible for verification, the client only needs expiry and
// display data.
type Claims struct {
	Subject   string
	Email     string
	Name      string
	Issuer    string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ParseClaims extracts Claims from a raw JWT id token.
func ParseClaims(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, errors.New("empty token")
	}

	token, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("error extracting claims")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		sub, _ = claims["user_id"].(string)
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	iss, _ := claims["iss"].(string)
	iat, _ := claims["iat"].(float64)
	exp, _ := claims["exp"].(float64)

	var roles []string
	if claimRoles, ok := claims["roles"].([]any); ok {
		roles = utils.ToStringSlice(claimRoles)
	}
	if admin, ok := claims["admin"].(bool); ok && admin {
		roles = append(roles, "admin")
	}

	c := &Claims{
		Subject: sub,
		Email:   email,
		Name:    name,
		Issuer:  iss,
		Roles:   roles,
	}
	if iat > 0 {
		c.IssuedAt = time.Unix(int64(iat), 0)
	}
	if exp > 0 {
		c.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return c, nil
}

// ExpiryOf returns the exp claim of rawToken, or fallback when it cannot be read.
func ExpiryOf(rawToken string, fallback time.Time) time.Time {
	c, err := ParseClaims(rawToken)
	if err != nil || c.ExpiresAt.IsZero() {
		return fallback
	}
	return c.ExpiresAt
}
