package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config interface {
	EnvConfig
	BackendConfig
	IdentityConfig
	CacheConfig
	SessionConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type BackendConfig interface {
	GetAPIURL() string
	GetRequestTimeout() time.Duration
}

type mainConfig struct {
	EnvVars
}

// New loads the configuration from BIZADMIN_* environment variables.
func New() (Config, error) {
	var vars EnvVars
	if err := envconfig.Process("bizadmin", &vars); err != nil {
		return nil, err
	}
	return mainConfig{EnvVars: vars}, nil
}

// FromVars wraps already populated variables, mostly for tests.
func FromVars(vars EnvVars) Config {
	return mainConfig{EnvVars: vars}
}
