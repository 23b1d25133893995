package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/KhalilH786/GTManager-sub001/core"
	"github.com/KhalilH786/GTManager-sub001/core/user"
)

type profileRow struct {
	UID      string      `db:"uid"`
	Name     string      `db:"name"`
	Email    string      `db:"email"`
	Role     null.String `db:"role"`
	PhotoURL null.String `db:"photo_url"`
}

func (row profileRow) toUser() user.User {
	return user.User{
		ID:       row.UID,
		Name:     row.Name,
		Email:    row.Email,
		Role:     user.Role(row.Role.String),
		PhotoURL: row.PhotoURL.String,
	}
}

type profileStore struct {
	db core.DBExecutor
}

var _ user.ProfileStore = (*profileStore)(nil)

func NewProfileStore(db core.DBExecutor) *profileStore {
	return &profileStore{db: db}
}

func (store *profileStore) GetProfile(ctx context.Context, uid string) (user.User, error) {
	var row profileRow
	q := store.db.Rebind(`SELECT uid, name, email, role, photo_url FROM users WHERE uid = ?`)
	if err := store.db.GetContext(ctx, &row, q, uid); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting profile")
	}
	return row.toUser(), nil
}

// MergeProfile upserts usr, keeping the stored value of every unset field.
func (store *profileStore) MergeProfile(ctx context.Context, usr user.User) error {
	q := store.db.Rebind(`
		INSERT INTO users (uid, name, email, role, photo_url)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (uid) DO UPDATE SET
			name       = COALESCE(NULLIF(EXCLUDED.name, ''), users.name),
			email      = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
			role       = COALESCE(EXCLUDED.role, users.role),
			photo_url  = COALESCE(EXCLUDED.photo_url, users.photo_url),
			updated_at = now()`)

	_, err := store.db.ExecContext(ctx, q,
		usr.ID,
		usr.Name,
		usr.Email,
		null.NewString(string(usr.Role), usr.Role != user.RoleNone),
		null.NewString(usr.PhotoURL, usr.PhotoURL != ""),
	)
	return errors.Wrap(err, "upserting profile")
}
