package logging_test

import (
	"bytes"
	"testing"

	"github.com/jrsteele09/bizadmin/internal/logging"
	"github.com/stretchr/testify/require"
)

func TestJSONOutsideDev(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewWithWriter(&buf, "PROD", "warn")
	log.Info().Msg("dropped")
	log.Warn().Str("resource", "businesses").Msg("kept")
	require.NotContains(t, buf.String(), "dropped")
	require.Contains(t, buf.String(), `"resource":"businesses"`)
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewWithWriter(&buf, "PROD", "loud")
	log.Debug().Msg("hidden")
	log.Info().Msg("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")
}
