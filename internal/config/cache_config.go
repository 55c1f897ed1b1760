package config

import "time"

type CacheConfig interface {
	GetCacheStaleTime() time.Duration
	GetCacheGCTime() time.Duration
	GetCacheRetries() int
	GetCacheRetryDelay() time.Duration
}

type SessionConfig interface {
	GetSessionStore() string
	GetSessionFile() string
	GetRedisAddr() string
}

var (
	_ CacheConfig   = EnvVars{}
	_ SessionConfig = EnvVars{}
)

func (e EnvVars) GetCacheStaleTime() time.Duration {
	return e.CacheStaleTime
}

func (e EnvVars) GetCacheGCTime() time.Duration {
	if e.CacheGCTime <= 0 {
		return 5 * time.Minute
	}
	return e.CacheGCTime
}

func (e EnvVars) GetCacheRetries() int {
	if e.CacheRetries < 0 {
		return 0
	}
	return e.CacheRetries
}

func (e EnvVars) GetCacheRetryDelay() time.Duration {
	return e.CacheRetryDelay
}

// GetSessionStore is one of "file", "redis" or "memory".
func (e EnvVars) GetSessionStore() string {
	switch e.SessionStore {
	case "redis", "memory":
		return e.SessionStore
	default:
		return "file"
	}
}

func (e EnvVars) GetSessionFile() string {
	return e.SessionFile
}

func (e EnvVars) GetRedisAddr() string {
	return e.RedisAddr
}
