package session

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/KhalilH786/GTManager-sub001/core"
	"github.com/KhalilH786/GTManager-sub001/core/user"
)

// Resolver decides the role of a signed-in identity. First match wins:
//  1. a configured override pair (uid and email) is admin, without any lookup
//  2. the profile document keyed by uid, read under the lookup timeout, gives the role verbatim
//  3. a configured fallback admin email is admin when the document is missing or the lookup failed
//
// Anything else resolves to no user, with ErrNoRole or ErrLookupUnavailable as the cause.
type Resolver struct {
	store     user.ProfileStore
	overrides []core.AdminOverride
	fallbacks []string
	timeout   time.Duration
	logger    core.Logger
}

func NewResolver(store user.ProfileStore, conf core.AuthConfig, timeout time.Duration, logger core.Logger) *Resolver {
	if timeout <= 0 {
		timeout = core.DefaultLookupTimeout
	}
	fallbacks := make([]string, 0, len(conf.FallbackAdminEmails))
	for _, email := range conf.FallbackAdminEmails {
		fallbacks = append(fallbacks, core.CleanString(email, true /* lower */))
	}
	overrides := make([]core.AdminOverride, 0, len(conf.AdminOverrides))
	for _, o := range conf.AdminOverrides {
		overrides = append(overrides, core.AdminOverride{UID: o.UID, Email: core.CleanString(o.Email, true /* lower */)})
	}
	return &Resolver{
		store:     store,
		overrides: overrides,
		fallbacks: fallbacks,
		timeout:   timeout,
		logger:    logger,
	}
}

func (r *Resolver) isOverride(uid, email string) bool {
	for _, o := range r.overrides {
		if o.UID == uid && o.Email == email {
			return true
		}
	}
	return false
}

func (r *Resolver) isFallback(email string) bool {
	return email != "" && core.Contains(r.fallbacks, email)
}

// Resolve returns the user for id. It returns within the lookup timeout.
func (r *Resolver) Resolve(ctx context.Context, id Identity) (user.User, error) {
	email := core.CleanString(id.Email, true /* lower */)

	if r.isOverride(id.UID, email) {
		recordResolution(outcomeOverride)
		return newUser(id, user.User{}, user.RoleAdmin), nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	profile, err := r.store.GetProfile(lookupCtx, id.UID)
	LookupDuration.Observe(time.Since(start).Seconds())
	if err == nil {
		recordResolution(outcomeFound)
		return newUser(id, profile, profile.Role), nil
	}

	kind := ErrLookupUnavailable
	if errors.Cause(err) == user.ErrNotFound {
		kind = ErrNoRole
	} else {
		r.logger.Warn(fmt.Sprintf("session.Resolve(%s): profile lookup failed: %v", id.UID, err), err)
	}

	if r.isFallback(email) {
		recordResolution(outcomeFallback)
		return newUser(id, user.User{}, user.RoleAdmin), nil
	}

	if kind == ErrNoRole {
		recordResolution(outcomeNoRole)
	} else {
		recordResolution(outcomeUnavailable)
	}
	return user.User{}, errors.Wrapf(kind, "resolving %s (%v)", id.UID, err)
}

// newUser builds the resolved user. Profile values win over identity values.
func newUser(id Identity, profile user.User, role user.Role) user.User {
	usr := user.User{
		ID:       id.UID,
		Name:     id.DisplayName,
		Email:    core.CleanString(id.Email, true /* lower */),
		Role:     role,
		PhotoURL: id.PhotoURL,
	}
	if profile.Name != "" {
		usr.Name = profile.Name
	}
	if profile.PhotoURL != "" {
		usr.PhotoURL = profile.PhotoURL
	}
	if usr.Email == "" {
		usr.Email = profile.Email
	}
	return usr
}
