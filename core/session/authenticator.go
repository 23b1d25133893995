package session

import (
	"context"
	"sort"
	"sync"
)

type (
	// IdentityProvider is the external authentication service.
	IdentityProvider interface {
		// SignInWithPassword returns ErrInvalidCredentials or ErrAccountDisabled on rejection.
		SignInWithPassword(ctx context.Context, email, password string) (Identity, error)
		// SignInWithIDToken verifies a federated identity token. Returns ErrInvalidIDToken on rejection.
		SignInWithIDToken(ctx context.Context, idToken string) (Identity, error)
		// SignOut revokes the refresh tokens of uid.
		SignOut(ctx context.Context, uid string) error
		PasswordResetLink(ctx context.Context, email string) (string, error)
	}

	// AccountProvisioner creates provider accounts. Used by the admin tooling.
	AccountProvisioner interface {
		// GetAccountByEmail returns ErrAccountNotFound when no account uses email.
		GetAccountByEmail(ctx context.Context, email string) (Identity, error)
		// CreateAccount returns ErrAccountExists when email is taken.
		CreateAccount(ctx context.Context, email, password, displayName string) (Identity, error)
	}

	EventKind int

	// Event is a sign-in state change.
	Event struct {
		Kind     EventKind
		Identity Identity
	}

	// Listener handles state changes. ctx is the context of the operation that caused the change.
	Listener func(ctx context.Context, ev Event) error
)

const (
	SignedIn EventKind = iota + 1
	SignedOut
)

func (k EventKind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	}
	return "unknown"
}

// Authenticator signs identities in and out against the provider and notifies
// the registered listeners of every state change, in registration order.
type Authenticator struct {
	provider IdentityProvider

	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

func NewAuthenticator(provider IdentityProvider) *Authenticator {
	return &Authenticator{
		provider:  provider,
		listeners: make(map[int]Listener),
	}
}

// OnStateChange registers fn and returns a func that unregisters it.
func (a *Authenticator) OnStateChange(fn Listener) (unsubscribe func()) {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.listeners, id)
			a.mu.Unlock()
		})
	}
}

// notify runs every listener and returns the first error.
func (a *Authenticator) notify(ctx context.Context, ev Event) error {
	a.mu.RLock()
	ids := make([]int, 0, len(a.listeners))
	for id := range a.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, a.listeners[id])
	}
	a.mu.RUnlock()

	var firstErr error
	for _, fn := range fns {
		if err := fn(ctx, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SignInWithPassword signs in and returns once every listener handled the sign-in.
// A listener error is returned along with the identity.
func (a *Authenticator) SignInWithPassword(ctx context.Context, email, password string) (Identity, error) {
	id, err := a.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return Identity{}, err
	}
	return id, a.notify(ctx, Event{Kind: SignedIn, Identity: id})
}

func (a *Authenticator) SignInWithIDToken(ctx context.Context, idToken string) (Identity, error) {
	id, err := a.provider.SignInWithIDToken(ctx, idToken)
	if err != nil {
		return Identity{}, err
	}
	return id, a.notify(ctx, Event{Kind: SignedIn, Identity: id})
}

// SignOut revokes the provider session of id when its uid is known and always notifies the listeners.
func (a *Authenticator) SignOut(ctx context.Context, id Identity) error {
	var err error
	if id.UID != "" {
		err = a.provider.SignOut(ctx, id.UID)
	}
	if nErr := a.notify(ctx, Event{Kind: SignedOut, Identity: id}); err == nil {
		err = nErr
	}
	return err
}

func (a *Authenticator) PasswordResetLink(ctx context.Context, email string) (string, error) {
	return a.provider.PasswordResetLink(ctx, email)
}
