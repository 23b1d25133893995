package inmemdb

import (
	"context"
	"time"

	"github.com/KhalilH786/GTManager-sub001/core/user"
)

type profileStore struct {
	db *userTable
}

var _ user.ProfileStore = (*profileStore)(nil)

func NewProfileStore(db ...*DB) *profileStore {
	if len(db) > 0 && db[0] != nil {
		return &profileStore{db: db[0].user}
	}
	return &profileStore{db: Open().user}
}

func (store *profileStore) GetProfile(ctx context.Context, uid string) (user.User, error) {
	store.db.mutex.Lock()
	store.db.reads++
	delay, fault := store.db.delay, store.db.err
	store.db.mutex.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return user.User{}, ctx.Err()
		case <-timer.C:
		}
	}
	if fault != nil {
		return user.User{}, fault
	}

	store.db.mutex.RLock()
	defer store.db.mutex.RUnlock()

	if usr, ok := store.db.table[uid]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

// MergeProfile only overwrites set fields.
func (store *profileStore) MergeProfile(_ context.Context, usr user.User) error {
	store.db.mutex.Lock()
	defer store.db.mutex.Unlock()

	origUsr, ok := store.db.table[usr.ID]
	if !ok {
		origUsr = &user.User{ID: usr.ID}
		store.db.table[usr.ID] = origUsr
	}
	if usr.Name != "" {
		origUsr.Name = usr.Name
	}
	if usr.Email != "" {
		origUsr.Email = usr.Email
	}
	if usr.Role != user.RoleNone {
		origUsr.Role = usr.Role
	}
	if usr.PhotoURL != "" {
		origUsr.PhotoURL = usr.PhotoURL
	}
	return nil
}
