package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/gophbook/internal/server/models"
)

func NewUsersCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List registered users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsers(rootOpts, cmd)
		},
	}
}

func runUsers(rootOpts *RootOptions, cmd *cobra.Command) error {
	svc, err := rootOpts.services(cmd)
	if err != nil {
		return err
	}

	list, err := svc.Users.List(cmd.Context())
	if err != nil {
		return err
	}

	if rootOpts.Format == "json" {
		ids := make([]models.Identity, 0, len(list))
		for _, u := range list {
			ids = append(ids, u.Identity())
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(ids)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tEMAIL")
	for _, u := range list {
		fmt.Fprintf(tw, "%s\t%s\n", u.DisplayName, u.Email)
	}
	return tw.Flush()
}
