package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/gophbook/internal/common"
)

type userAddOptions struct {
	Name          string
	Email         string
	PasswordStdin bool
}

func NewUserAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &userAddOptions{}

	cmd := &cobra.Command{
		Use:   "useradd",
		Short: "Register a user",
		Long: `Register a user in the users file of the data directory.

The password is prompted for twice without echo, or read as one line from
standard input with --password-stdin. Safe to run while the server is up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserAdd(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email address")
	cmd.Flags().BoolVar(&opts.PasswordStdin, "password-stdin", false, "read the password from standard input")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runUserAdd(rootOpts *RootOptions, opts *userAddOptions, cmd *cobra.Command) error {
	var password []byte
	var err error
	if opts.PasswordStdin {
		password, err = readPasswordLine(cmd.InOrStdin())
	} else {
		password, err = promptPassword(cmd.ErrOrStderr())
	}
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	defer common.WipeByteArray(password)

	svc, err := rootOpts.services(cmd)
	if err != nil {
		return err
	}

	user, err := svc.Users.Register(cmd.Context(), opts.Name, opts.Email, string(password))
	if err != nil {
		return err
	}

	if rootOpts.Format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(user.Identity())
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "registered %s <%s>\n", user.DisplayName, user.Email)
	return err
}
