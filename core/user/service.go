package user

import (
	"context"
	"errors"
)

var (
	// errors
	ErrNotFound = errors.New("user not found")
)

type (
	// ProfileStore reads and merges user profile documents keyed by identity uid.
	ProfileStore interface {
		// GetProfile returns ErrNotFound when no document exists for uid.
		GetProfile(ctx context.Context, uid string) (User, error)
		// MergeProfile writes the non-empty fields of usr into its document, creating it if needed.
		MergeProfile(ctx context.Context, usr User) error
	}

	ServiceInterface interface {
		Get(ctx context.Context, uid string) (User, error)
		UpdateProfile(ctx context.Context, usr User, data UpdateProfile) (User, error)
		SetRole(ctx context.Context, uid string, role Role) (User, error)
		Provision(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		store ProfileStore
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(store ProfileStore) *Service {
	return &Service{store: store}
}

func (svc *Service) Get(ctx context.Context, uid string) (User, error) {
	return svc.store.GetProfile(ctx, uid)
}

// UpdateProfile merges the changed fields into the profile of usr. Role and email are left untouched.
func (svc *Service) UpdateProfile(ctx context.Context, usr User, data UpdateProfile) (User, error) {
	patch := User{ID: usr.ID}
	if data.Name != "" {
		usr.Name = data.Name
		patch.Name = data.Name
	}
	if data.PhotoURL != "" {
		usr.PhotoURL = data.PhotoURL
		patch.PhotoURL = data.PhotoURL
	}
	if patch.Name == "" && patch.PhotoURL == "" {
		return usr, nil
	}
	if err := svc.store.MergeProfile(ctx, patch); err != nil {
		return User{}, err
	}
	return usr, nil
}

func (svc *Service) SetRole(ctx context.Context, uid string, role Role) (User, error) {
	usr, err := svc.store.GetProfile(ctx, uid)
	if err != nil {
		return User{}, err
	}
	usr.Role = role
	if err = svc.store.MergeProfile(ctx, User{ID: uid, Role: role}); err != nil {
		return User{}, err
	}
	return usr, nil
}

// Provision writes a full profile document for a freshly created account.
func (svc *Service) Provision(ctx context.Context, usr User) (User, error) {
	if err := svc.store.MergeProfile(ctx, usr); err != nil {
		return User{}, err
	}
	return svc.store.GetProfile(ctx, usr.ID)
}
