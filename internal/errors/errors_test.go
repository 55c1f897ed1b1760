package errors_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/jrsteele09/bizadmin/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestAuthErrorKinds(t *testing.T) {
	err := fmt.Errorf("login: %w", errors.NewAuthError(errors.InvalidCredentials, errors.ErrInvalidCredentials))
	require.True(t, errors.IsAuthKind(err, errors.InvalidCredentials))
	require.False(t, errors.IsAuthKind(err, errors.PopupClosed))
	require.ErrorIs(t, err, errors.ErrInvalidCredentials)
}

func TestAPIError(t *testing.T) {
	notFound := &errors.APIError{Kind: errors.APIStatus, Status: 404, Message: "business not found"}
	require.Equal(t, "api: status 404: business not found", notFound.Error())
	require.False(t, notFound.Transient())
	require.Equal(t, 404, errors.StatusCode(errors.Wrapf(notFound, "get")))

	timeout := &errors.APIError{Kind: errors.Timeout, Err: context.DeadlineExceeded}
	require.True(t, timeout.Transient())
	require.ErrorIs(t, timeout, context.DeadlineExceeded)
	require.Equal(t, 0, errors.StatusCode(stderrors.New("plain")))
}

func TestCacheErrorUnwraps(t *testing.T) {
	inner := &errors.APIError{Kind: errors.NetworkError}
	err := &errors.CacheError{Key: "businesses?page=1", Err: inner}
	var ae *errors.APIError
	require.True(t, errors.As(err, &ae))
	require.Contains(t, err.Error(), "businesses?page=1")
}

func TestWrapfNil(t *testing.T) {
	require.NoError(t, errors.Wrapf(nil, "ignored"))
}

func TestValidationErrorMessageIsSorted(t *testing.T) {
	err := &errors.ValidationError{Fields: map[string]string{
		"title":    "failed required",
		"date":     "failed required",
		"location": "failed required",
	}}
	for range 20 {
		require.Equal(t, "validation failed: date failed required, location failed required, title failed required", err.Error())
	}
}
