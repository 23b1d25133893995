package main

import (
	"context"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/KhalilH786/GTManager-sub001/core/session"
	"github.com/KhalilH786/GTManager-sub001/core/user"
	"github.com/KhalilH786/GTManager-sub001/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword       // mockable
	gooseRunFunc     = database.RunMigration // mockable

	errHelp = errors.New("help provided")
)

type (
	// identityProvider provisions accounts and issues password reset links.
	identityProvider interface {
		session.AccountProvisioner
		PasswordResetLink(ctx context.Context, email string) (string, error)
	}

	commandLine struct {
		usrSvc   user.ServiceInterface
		accounts identityProvider
		validate *validator.Validate
		openDB   func(ctx context.Context) (*sqlx.DB, error)
		out      io.Writer
	}
)

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "GT Staff Hub administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	root.AddCommand(
		cli.addUserCmd(),
		cli.setRoleCmd(),
		cli.resetPasswordCmd(),
		cli.migrateCmd(),
	)
	return root
}

// run executes args, args[0] being the program name.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.Execute()
}

func (cli *commandLine) promptPassword(label string) (string, error) {
	_, _ = fmt.Fprint(cli.out, label)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) addUserCmd() *cobra.Command {
	var email, name, role string

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create an account and its profile. The password is prompted next.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || name == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.promptPassword("Enter password:")
			if err != nil {
				return err
			}
			if pwd == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwdConfirm, err := cli.promptPassword("Confirm password:")
			if err != nil {
				return err
			}
			return cli.addUser(cmd.Context(), user.NewUser{
				Name:            name,
				Email:           email,
				Role:            user.Role(role),
				Password:        pwd,
				PasswordConfirm: pwdConfirm,
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "The user's email")
	cmd.Flags().StringVar(&name, "name", "", "The user's display name")
	cmd.Flags().StringVar(&role, "role", "", "One of admin, manager, teacher, principal. Empty for none.")
	return cmd
}

func (cli *commandLine) setRoleCmd() *cobra.Command {
	var uid, role string

	cmd := &cobra.Command{
		Use:   "setrole",
		Short: "Set the role of an existing profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if uid == "" || role == "" {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.setRole(cmd.Context(), uid, user.Role(role))
		},
	}
	cmd.Flags().StringVar(&uid, "uid", "", "The user's identity uid")
	cmd.Flags().StringVar(&role, "role", "", "One of admin, manager, teacher, principal")
	return cmd
}

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Print a password reset link for an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.resetPassword(cmd.Context(), email)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "The user's email")
	return cmd
}

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a database migration command, eg. up, down, status",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.migrate(cmd.Context(), args)
		},
	}
}
