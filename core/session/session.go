// Package session resolves signed-in identities into application users and keeps the
// resolved user in the session cookie read by the route gate.
package session

import (
	"context"
	"net/http"
	"sync"

	"github.com/KhalilH786/GTManager-sub001/core/user"
)

// Identity is the account reference handed out by the identity provider.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

type ctxKey int

const sessionKey ctxKey = iota

// Session is the request-scoped session state. The zero user means Anonymous.
type Session struct {
	mu  sync.RWMutex
	usr *user.User
	w   http.ResponseWriter
}

// NewSession returns an Anonymous session. Cookie changes are written to w when it is not nil.
func NewSession(w http.ResponseWriter) *Session {
	return &Session{w: w}
}

// User returns the resolved user, if any.
func (s *Session) User() (user.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.usr == nil {
		return user.User{}, false
	}
	return *s.usr, true
}

// Authenticated reports whether a user is resolved.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usr != nil
}

func (s *Session) set(usr user.User) {
	s.mu.Lock()
	s.usr = &usr
	s.mu.Unlock()
}

func (s *Session) clear() {
	s.mu.Lock()
	s.usr = nil
	s.mu.Unlock()
}

func (s *Session) writer() http.ResponseWriter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.w
}

// NewContext returns a copy of ctx carrying sess.
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// FromContext returns the session carried by ctx.
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionKey).(*Session)
	return sess, ok && sess != nil
}
