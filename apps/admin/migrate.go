package main

import (
	"context"

	"github.com/pkg/errors"
)

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	db, err := cli.openDB(ctx)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	return gooseRunFunc(db, args[0], args[1:]...)
}
