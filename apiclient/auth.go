package apiclient

import (
	"context"
	"net/http"
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// AuthResponse is the backend's acknowledgement of an auth call.
type AuthResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// VerifyToken asks the backend to verify idToken and establish its session.
func (c *Client) VerifyToken(ctx context.Context, idToken string) (*AuthResponse, error) {
	var resp AuthResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "/auth/verify", bearer: idToken}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GoogleSignIn sends the id token of a Google sign-in for verification and user upsert.
func (c *Client) GoogleSignIn(ctx context.Context, idToken string) (*AuthResponse, error) {
	var resp AuthResponse
	err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      "/auth/google",
		body:      map[string]string{"idToken": idToken},
		anonymous: true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates the backend profile for a newly created identity account.
func (c *Client) Register(ctx context.Context, body RegisterRequest) (*AuthResponse, error) {
	var resp AuthResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "/auth/register", body: body, anonymous: true}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
