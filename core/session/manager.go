package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/KhalilH786/GTManager-sub001/core"
	"github.com/KhalilH786/GTManager-sub001/core/user"
)

// Manager listens to the Authenticator and keeps the request-scoped Session and the
// session cookie in line with the resolved user. The cookie is written once per state change,
// after resolution completed.
type Manager struct {
	resolver *Resolver
	cookies  *CookieCodec
	logger   core.Logger

	unsubscribe func()
}

func NewManager(auth *Authenticator, resolver *Resolver, cookies *CookieCodec, logger core.Logger) *Manager {
	m := &Manager{
		resolver: resolver,
		cookies:  cookies,
		logger:   logger,
	}
	m.unsubscribe = auth.OnStateChange(m.handle)
	return m
}

// Close stops listening to state changes.
func (m *Manager) Close() {
	m.unsubscribe()
}

func (m *Manager) Cookies() *CookieCodec { return m.cookies }

func (m *Manager) Resolver() *Resolver { return m.resolver }

// Load returns a session for r, populated from a valid session cookie.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) *Session {
	sess := NewSession(w)
	if cookie := m.cookies.Read(r); cookie != nil {
		if usr, err := m.cookies.Decode(cookie.Value); err == nil {
			sess.set(usr)
		}
	}
	return sess
}

func (m *Manager) handle(ctx context.Context, ev Event) error {
	sess, ok := FromContext(ctx)

	switch ev.Kind {
	case SignedIn:
		usr, err := m.resolver.Resolve(ctx, ev.Identity)
		if err != nil {
			if ok {
				m.signOut(sess)
			}
			return err
		}
		m.logger.Info(fmt.Sprintf("session: %s signed in as %q", usr.ID, usr.Role), usr)
		if ok {
			return m.signIn(sess, usr)
		}
	case SignedOut:
		if ok {
			m.signOut(sess)
		}
	}
	return nil
}

func (m *Manager) signIn(sess *Session, usr user.User) error {
	sess.set(usr)
	if w := sess.writer(); w != nil {
		if err := m.cookies.Write(w, usr); err != nil {
			sess.clear()
			return errors.Wrap(err, "writing session cookie")
		}
	}
	return nil
}

func (m *Manager) signOut(sess *Session) {
	sess.clear()
	if w := sess.writer(); w != nil {
		m.cookies.Clear(w)
	}
}
