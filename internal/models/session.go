package models

import "time"

// Session binds a session identifier to the credentials it authenticated with.
type Session struct {
	ID              string      `json:"id"`
	Credentials     Credentials `json:"credentials"`
	AuthenticatedAt time.Time   `json:"authenticated_at"`
}

// Expired reports whether the session is older than ttl at now. A zero ttl never expires.
func (s Session) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.AuthenticatedAt) > ttl
}
