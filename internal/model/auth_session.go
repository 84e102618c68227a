package model

import "time"

// AuthSession is a signed-in session from the external auth provider.
// Identity is the token sent to the backend in place of a typed user id.
type AuthSession struct {
	Identity  string    `json:"identity"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}
