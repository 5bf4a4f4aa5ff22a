package inmemory

import (
	"context"
	"sync"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
	"github.com/pyramid-aftercare/portal/internal/core/ports"
)

// SessionCache is a process-local session cache and token store.
type SessionCache struct {
	mu      sync.Mutex
	user    *domain.UserRecord
	session *domain.Session
}

var (
	_ ports.SessionCache = (*SessionCache)(nil)
	_ ports.TokenStore   = (*SessionCache)(nil)
)

func NewSessionCache() *SessionCache {
	return &SessionCache{}
}

func (c *SessionCache) Load(context.Context) (*domain.UserRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user.Clone(), nil
}

func (c *SessionCache) Save(_ context.Context, u *domain.UserRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = u.Clone()
	return nil
}

func (c *SessionCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = nil
	return nil
}

func (c *SessionCache) LoadSession(context.Context) (*domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, nil
	}
	s := *c.session
	return &s, nil
}

func (c *SessionCache) SaveSession(_ context.Context, s *domain.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *s
	c.session = &cp
	return nil
}

func (c *SessionCache) ClearSession(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
	return nil
}
