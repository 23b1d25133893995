package firestoredb

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/KhalilH786/GTManager-sub001/core/user"
)

const usersCollection = "users"

// profileDoc is the stored shape of users/{uid}. Role may be missing or null.
type profileDoc struct {
	Name     string  `firestore:"name"`
	Email    string  `firestore:"email"`
	Role     *string `firestore:"role"`
	PhotoURL string  `firestore:"photoURL"`
}

type profileStore struct {
	client *firestore.Client
}

var _ user.ProfileStore = (*profileStore)(nil)

func NewProfileStore(client *firestore.Client) *profileStore {
	return &profileStore{client: client}
}

func (store *profileStore) GetProfile(ctx context.Context, uid string) (user.User, error) {
	if uid == "" {
		return user.User{}, user.ErrNotFound
	}
	snap, err := store.client.Collection(usersCollection).Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting profile document")
	}

	var doc profileDoc
	if err = snap.DataTo(&doc); err != nil {
		return user.User{}, errors.Wrap(err, "decoding profile document")
	}
	usr := user.User{
		ID:       snap.Ref.ID,
		Name:     doc.Name,
		Email:    doc.Email,
		PhotoURL: doc.PhotoURL,
	}
	if doc.Role != nil {
		usr.Role = user.Role(*doc.Role)
	}
	return usr, nil
}

// MergeProfile only writes set fields.
func (store *profileStore) MergeProfile(ctx context.Context, usr user.User) error {
	data := make(map[string]interface{}, 4)
	if usr.Name != "" {
		data["name"] = usr.Name
	}
	if usr.Email != "" {
		data["email"] = usr.Email
	}
	if usr.Role != user.RoleNone {
		data["role"] = string(usr.Role)
	}
	if usr.PhotoURL != "" {
		data["photoURL"] = usr.PhotoURL
	}
	if len(data) == 0 {
		return nil
	}

	_, err := store.client.Collection(usersCollection).Doc(usr.ID).Set(ctx, data, firestore.MergeAll)
	return errors.Wrap(err, "merging profile document")
}
