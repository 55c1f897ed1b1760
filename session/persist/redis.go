package persist

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jrsteele09/bizadmin/session"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ session.Persister = (*RedisPersister)(nil)

const (
	defaultRedisKey = "bizadmin:session:current"
	// Refresh tokens outlive id tokens, so the key lives for the refresh lifetime.
	defaultRedisTTL = 30 * 24 * time.Hour
)

type RedisOption func(p *RedisPersister)

func WithKey(key string) RedisOption {
	return func(p *RedisPersister) {
		p.key = key
	}
}

func WithTTL(ttl time.Duration) RedisOption {
	return func(p *RedisPersister) {
		p.ttl = ttl
	}
}

// RedisPersister keeps the session under one key so several shells on a host share it.
type RedisPersister struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

func NewRedisPersister(client redis.UniversalClient, options ...RedisOption) *RedisPersister {
	p := &RedisPersister{client: client, key: defaultRedisKey, ttl: defaultRedisTTL}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// DialRedis connects to addr and checks the connection.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "[DialRedis] ping %s", addr)
	}
	return client, nil
}

func (p *RedisPersister) Load(ctx context.Context) (*session.Session, error) {
	data, err := p.client.Get(ctx, p.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[RedisPersister.Load] get")
	}
	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "[RedisPersister.Load] decode")
	}
	return &s, nil
}

func (p *RedisPersister) Save(ctx context.Context, s *session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "[RedisPersister.Save] encode")
	}
	return errors.Wrap(p.client.Set(ctx, p.key, data, p.ttl).Err(), "[RedisPersister.Save] set")
}

func (p *RedisPersister) Clear(ctx context.Context) error {
	return errors.Wrap(p.client.Del(ctx, p.key).Err(), "[RedisPersister.Clear] del")
}
