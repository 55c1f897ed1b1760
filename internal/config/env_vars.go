package config

import (
	"strings"
	"time"
)

// EnvVars mirrors the BIZADMIN_* environment. Field tags are read by envconfig.
type EnvVars struct {
	AppName string `envconfig:"APP_NAME" default:"BizAdmin"`
	Env     string `envconfig:"ENV" default:"DEV"`
	Level   string `envconfig:"LOG_LEVEL" default:"info"`

	APIURL         string        `envconfig:"API_URL" default:"http://localhost:8000"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`

	FirebaseAPIKey     string `envconfig:"FIREBASE_API_KEY"`
	FirebaseProjectID  string `envconfig:"FIREBASE_PROJECT_ID"`
	GoogleClientID     string `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET"`

	CacheStaleTime  time.Duration `envconfig:"CACHE_STALE_TIME" default:"0s"`
	CacheGCTime     time.Duration `envconfig:"CACHE_GC_TIME" default:"5m"`
	CacheRetries    int           `envconfig:"CACHE_RETRIES" default:"1"`
	CacheRetryDelay time.Duration `envconfig:"CACHE_RETRY_DELAY" default:"1s"`

	SessionStore string `envconfig:"SESSION_STORE" default:"file"`
	SessionFile  string `envconfig:"SESSION_FILE"`
	RedisAddr    string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
}

var (
	_ EnvConfig     = EnvVars{}
	_ BackendConfig = EnvVars{}
)

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return strings.ToUpper(e.Env)
}

func (e EnvVars) GetLogLevel() string {
	return e.Level
}

// GetAPIURL returns the backend origin without a trailing slash; the /api/v1 prefix is added by the client.
func (e EnvVars) GetAPIURL() string {
	return strings.TrimRight(e.APIURL, "/")
}

func (e EnvVars) GetRequestTimeout() time.Duration {
	if e.RequestTimeout <= 0 {
		return 15 * time.Second
	}
	return e.RequestTimeout
}
