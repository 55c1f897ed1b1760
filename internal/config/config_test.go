package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/bizadmin/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNewReadsEnvironment(t *testing.T) {
	t.Setenv("BIZADMIN_API_URL", "https://api.example.com/")
	t.Setenv("BIZADMIN_REQUEST_TIMEOUT", "3s")
	t.Setenv("BIZADMIN_CACHE_RETRIES", "0")
	t.Setenv("BIZADMIN_SESSION_STORE", "redis")

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com", c.GetAPIURL())
	require.Equal(t, 3*time.Second, c.GetRequestTimeout())
	require.Equal(t, 0, c.GetCacheRetries())
	require.Equal(t, "redis", c.GetSessionStore())
}

func TestDefaults(t *testing.T) {
	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000", c.GetAPIURL())
	require.Equal(t, 15*time.Second, c.GetRequestTimeout())
	require.Equal(t, 1, c.GetCacheRetries())
	require.Equal(t, 5*time.Minute, c.GetCacheGCTime())
	require.Equal(t, "file", c.GetSessionStore())
	require.Equal(t, "DEV", c.GetEnv())
}

func TestFromVarsNormalises(t *testing.T) {
	c := config.FromVars(config.EnvVars{SessionStore: "bogus", CacheRetries: -2, Env: "prod"})
	require.Equal(t, "file", c.GetSessionStore())
	require.Equal(t, 0, c.GetCacheRetries())
	require.Equal(t, "PROD", c.GetEnv())
	require.Equal(t, 15*time.Second, c.GetRequestTimeout())
}
