package validation

import (
	"testing"

	"github.com/jrsteele09/bizadmin/internal/errors"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `validate:"required"`
	Email string `validate:"omitempty,email"`
}

type wireSample struct {
	BusinessID string `json:"businessId,omitempty" validate:"required"`
	Location   string `json:"-" validate:"required"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(sample{Name: "a"}))

	err := Struct(sample{Email: "nope"})
	var verr *errors.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "failed required", verr.Fields["name"])
	require.Equal(t, "failed email", verr.Fields["email"])
}

func TestFieldsUseJSONNames(t *testing.T) {
	err := Struct(wireSample{})
	var verr *errors.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, map[string]string{
		"businessId": "failed required",
		"location":   "failed required",
	}, verr.Fields)
	require.Equal(t, "validation failed: businessId failed required, location failed required", err.Error())
}
