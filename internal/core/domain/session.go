package domain

import "time"

// Identity is a bare credential-store account.
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is a live login issued by the credential store.
type Session struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt.IsZero() || !now.Before(s.ExpiresAt)
}

// SessionEventType names a credential-store session change.
type SessionEventType string

const (
	EventSignedIn       SessionEventType = "SIGNED_IN"
	EventSignedOut      SessionEventType = "SIGNED_OUT"
	EventTokenRefreshed SessionEventType = "TOKEN_REFRESHED"
	EventUserUpdated    SessionEventType = "USER_UPDATED"
)

// SessionEvent is delivered to OnSessionChange subscribers.
type SessionEvent struct {
	Type    SessionEventType
	Session *Session // nil on SIGNED_OUT
}

// Claims are the verified contents of an access token.
type Claims struct {
	TokenID   string
	UserID    string
	Email     string
	Role      Role
	ExpiresAt time.Time
}
