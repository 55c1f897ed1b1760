package utils_test

import (
	"testing"

	"github.com/jrsteele09/bizadmin/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestValueAndPtr(t *testing.T) {
	require.Equal(t, "", utils.Value[string](nil))
	require.Equal(t, "x", utils.Value(utils.Ptr("x")))
}

func TestToStringSlice(t *testing.T) {
	require.Equal(t, []string{"admin", "viewer"}, utils.ToStringSlice([]any{"admin", 3, "viewer"}))
}

func TestJoinNonEmpty(t *testing.T) {
	require.Equal(t, "a,b", utils.JoinNonEmpty([]string{" a", "", "b ", "  "}, ","))
	require.Equal(t, "", utils.JoinNonEmpty(nil, ","))
}

func TestValueOr(t *testing.T) {
	require.Equal(t, 15, utils.ValueOr(nil, 15))
	require.Equal(t, 3, utils.ValueOr(utils.Ptr(3), 15))
}
