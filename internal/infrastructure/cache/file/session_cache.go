// Package file implements the local session cache on the filesystem: one
// JSON document per key, the desktop counterpart of browser local storage.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
	"github.com/pyramid-aftercare/portal/internal/core/ports"
)

// SessionCache stores the resolved user in <dir>/<key>.json and the
// credential-store session in <dir>/<key>_session.json.
type SessionCache struct {
	dir string
	key string
}

var (
	_ ports.SessionCache = (*SessionCache)(nil)
	_ ports.TokenStore   = (*SessionCache)(nil)
)

func NewSessionCache(dir, key string) *SessionCache {
	return &SessionCache{dir: dir, key: key}
}

func (c *SessionCache) Load(_ context.Context) (*domain.UserRecord, error) {
	var u domain.UserRecord
	ok, err := c.read(c.path(c.key), &u)
	if err != nil || !ok {
		return nil, err
	}
	return &u, nil
}

func (c *SessionCache) Save(_ context.Context, u *domain.UserRecord) error {
	return c.write(c.path(c.key), u)
}

func (c *SessionCache) Clear(_ context.Context) error {
	return c.remove(c.path(c.key))
}

func (c *SessionCache) LoadSession(_ context.Context) (*domain.Session, error) {
	var s domain.Session
	ok, err := c.read(c.path(c.key+"_session"), &s)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

func (c *SessionCache) SaveSession(_ context.Context, s *domain.Session) error {
	return c.write(c.path(c.key+"_session"), s)
}

func (c *SessionCache) ClearSession(_ context.Context) error {
	return c.remove(c.path(c.key + "_session"))
}

func (c *SessionCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

func (c *SessionCache) read(path string, v any) (bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("session cache read: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrCacheCorrupt, err)
	}
	return true, nil
}

// write replaces path atomically so a crash never leaves a half-written entry.
func (c *SessionCache) write(path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return fmt.Errorf("session cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("session cache write: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("session cache write: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("session cache write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("session cache write: %w", err)
	}
	return os.Rename(tmpName, path)
}

func (c *SessionCache) remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session cache clear: %w", err)
	}
	return nil
}
