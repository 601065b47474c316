package models

import "time"

// Identity is who a request acts as. It is rebuilt from the session token on every
// request and is either Anonymous or an authenticated user; it is never persisted.
type Identity struct {
	Authenticated bool
	UserID        uint
	Username      string
	ExpiresAt     time.Time
}

// Anonymous is the identity of a visitor without a valid session.
var Anonymous = Identity{}

// NewIdentity returns an authenticated identity.
func NewIdentity(userID uint, username string, expiresAt time.Time) Identity {
	return Identity{Authenticated: true, UserID: userID, Username: username, ExpiresAt: expiresAt}
}

// Owns reports whether the identity is the author of the post.
func (i Identity) Owns(p *Post) bool {
	return i.Authenticated && p != nil && p.AuthorID == i.UserID
}
