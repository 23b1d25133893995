// Package memidentity is an in-memory identity provider for local development and tests.
package memidentity

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/KhalilH786/GTManager-sub001/core/session"
)

type account struct {
	identity session.Identity
	password string
	disabled bool
	revoked  int
}

type Provider struct {
	mu       sync.RWMutex
	accounts map[string]*account // {email: account}
	idTokens map[string]string   // {token: email}
}

var (
	_ session.IdentityProvider   = (*Provider)(nil)
	_ session.AccountProvisioner = (*Provider)(nil)
)

func New() *Provider {
	return &Provider{
		accounts: make(map[string]*account),
		idTokens: make(map[string]string),
	}
}

func normEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// AddAccount registers an account. An empty uid gets a generated one.
func (p *Provider) AddAccount(id session.Identity, password string) session.Identity {
	if id.UID == "" {
		id.UID = uuid.NewString()
	}
	p.mu.Lock()
	p.accounts[normEmail(id.Email)] = &account{identity: id, password: password}
	p.mu.Unlock()
	return id
}

// AddIDToken makes token a valid federated token for the account of email.
func (p *Provider) AddIDToken(token, email string) {
	p.mu.Lock()
	p.idTokens[token] = normEmail(email)
	p.mu.Unlock()
}

func (p *Provider) Disable(email string) {
	p.mu.Lock()
	if acc, ok := p.accounts[normEmail(email)]; ok {
		acc.disabled = true
	}
	p.mu.Unlock()
}

// Revocations returns how many times the tokens of uid were revoked.
func (p *Provider) Revocations(uid string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, acc := range p.accounts {
		if acc.identity.UID == uid {
			return acc.revoked
		}
	}
	return 0
}

func (p *Provider) SignInWithPassword(_ context.Context, email, password string) (session.Identity, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	acc, ok := p.accounts[normEmail(email)]
	if !ok || acc.password != password {
		return session.Identity{}, session.ErrInvalidCredentials
	}
	if acc.disabled {
		return session.Identity{}, session.ErrAccountDisabled
	}
	return acc.identity, nil
}

func (p *Provider) SignInWithIDToken(_ context.Context, idToken string) (session.Identity, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	email, ok := p.idTokens[idToken]
	if !ok {
		return session.Identity{}, session.ErrInvalidIDToken
	}
	acc, ok := p.accounts[email]
	if !ok {
		return session.Identity{}, session.ErrInvalidIDToken
	}
	if acc.disabled {
		return session.Identity{}, session.ErrAccountDisabled
	}
	return acc.identity, nil
}

func (p *Provider) SignOut(_ context.Context, uid string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, acc := range p.accounts {
		if acc.identity.UID == uid {
			acc.revoked++
			return nil
		}
	}
	return session.ErrAccountNotFound
}

func (p *Provider) PasswordResetLink(_ context.Context, email string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if _, ok := p.accounts[normEmail(email)]; !ok {
		return "", session.ErrAccountNotFound
	}
	return "https://auth.local/reset?oobCode=" + uuid.NewString(), nil
}

func (p *Provider) GetAccountByEmail(_ context.Context, email string) (session.Identity, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if acc, ok := p.accounts[normEmail(email)]; ok {
		return acc.identity, nil
	}
	return session.Identity{}, session.ErrAccountNotFound
}

func (p *Provider) CreateAccount(_ context.Context, email, password, displayName string) (session.Identity, error) {
	email = normEmail(email)
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.accounts[email]; ok {
		return session.Identity{}, session.ErrAccountExists
	}
	id := session.Identity{UID: uuid.NewString(), Email: email, DisplayName: displayName}
	p.accounts[email] = &account{identity: id, password: password}
	return id, nil
}
