package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
	"github.com/pyramid-aftercare/portal/internal/core/ports"
)

// SessionCache keeps the resolved user and the credential-store session
// under two keys: <key> and <key>_session.
type SessionCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration // 0 = no expiry
}

var (
	_ ports.SessionCache = (*SessionCache)(nil)
	_ ports.TokenStore   = (*SessionCache)(nil)
)

func NewSessionCache(client *redis.Client, key string, ttl time.Duration) *SessionCache {
	return &SessionCache{client: client, key: key, ttl: ttl}
}

func (c *SessionCache) Load(ctx context.Context) (*domain.UserRecord, error) {
	var u domain.UserRecord
	ok, err := c.get(ctx, c.key, &u)
	if err != nil || !ok {
		return nil, err
	}
	return &u, nil
}

func (c *SessionCache) Save(ctx context.Context, u *domain.UserRecord) error {
	return c.set(ctx, c.key, u)
}

func (c *SessionCache) Clear(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}

func (c *SessionCache) LoadSession(ctx context.Context) (*domain.Session, error) {
	var s domain.Session
	ok, err := c.get(ctx, c.sessionKey(), &s)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

func (c *SessionCache) SaveSession(ctx context.Context, s *domain.Session) error {
	return c.set(ctx, c.sessionKey(), s)
}

func (c *SessionCache) ClearSession(ctx context.Context) error {
	return c.client.Del(ctx, c.sessionKey()).Err()
}

func (c *SessionCache) sessionKey() string { return c.key + "_session" }

func (c *SessionCache) get(ctx context.Context, key string, v any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("session cache get: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrCacheCorrupt, err)
	}
	return true, nil
}

func (c *SessionCache) set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}
