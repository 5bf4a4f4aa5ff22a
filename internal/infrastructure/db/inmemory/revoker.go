package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/pyramid-aftercare/portal/internal/core/ports"
)

// TokenRevoker keeps revoked token ids in memory until they expire.
type TokenRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

var _ ports.TokenRevoker = (*TokenRevoker)(nil)

func NewTokenRevoker() *TokenRevoker {
	return &TokenRevoker{revoked: make(map[string]time.Time), now: time.Now}
}

func (r *TokenRevoker) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[tokenID] = r.now().Add(ttl)
	return nil
}

func (r *TokenRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	until, ok := r.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !r.now().Before(until) {
		delete(r.revoked, tokenID)
		return false, nil
	}
	return true, nil
}
