package firestoredb

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/KhalilH786/GTManager-sub001/core"
)

// Open connects to the Firestore database of conf.Firebase.ProjectID.
// FIRESTORE_EMULATOR_HOST is honoured by the client library.
func Open(ctx context.Context, conf *core.Config) (*firestore.Client, error) {
	var opts []option.ClientOption
	if conf.Firebase.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(conf.Firebase.CredentialsFile))
	}
	projectID := conf.Firebase.ProjectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "opening firestore client")
	}
	return client, nil
}
