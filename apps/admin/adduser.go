package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/KhalilH786/GTManager-sub001/core/session"
	"github.com/KhalilH786/GTManager-sub001/core/user"
)

var errInvalidRole = errors.New("invalid role")

// addUser creates the provider account of data, or reuses the existing one, and provisions its profile.
func (cli *commandLine) addUser(ctx context.Context, data user.NewUser) error {
	if err := data.Validate(cli.validate); err != nil {
		return err
	}

	id, err := cli.accounts.CreateAccount(ctx, data.Email, data.Password, data.Name)
	switch {
	case errors.Cause(err) == session.ErrAccountExists:
		if id, err = cli.accounts.GetAccountByEmail(ctx, data.Email); err != nil {
			return errors.Wrap(err, "getting existing account")
		}
		_, _ = fmt.Fprintf(cli.out, "account %s already exists: password left unchanged\n", id.UID)
	case err != nil:
		return errors.Wrap(err, "creating account")
	}

	usr, err := cli.usrSvc.Provision(ctx, user.User{
		ID:    id.UID,
		Name:  data.Name,
		Email: data.Email,
		Role:  data.Role,
	})
	if err != nil {
		return errors.Wrap(err, "provisioning profile")
	}
	_, _ = fmt.Fprintf(cli.out, "user %s <%s> provisioned with role %q\n", usr.ID, usr.Email, usr.Role)
	return nil
}

func (cli *commandLine) setRole(ctx context.Context, uid string, role user.Role) error {
	if !role.IsKnown() {
		return errInvalidRole
	}
	usr, err := cli.usrSvc.SetRole(ctx, uid, role)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "user %s <%s> now has role %q\n", usr.ID, usr.Email, usr.Role)
	return nil
}

func (cli *commandLine) resetPassword(ctx context.Context, email string) error {
	link, err := cli.accounts.PasswordResetLink(ctx, email)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cli.out, link)
	return nil
}
