package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Upload the collection files to S3",
		Long: `Upload users.json and data.json to the configured S3 bucket under
backups/<UTC timestamp>/. Connection settings come from the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackup(rootOpts, cmd)
		},
	}
}

func runBackup(rootOpts *RootOptions, cmd *cobra.Command) error {
	svc, err := rootOpts.services(cmd)
	if err != nil {
		return err
	}

	keys, err := svc.Backup.Run(cmd.Context())
	if err != nil {
		return err
	}

	if rootOpts.Format == "json" {
		if keys == nil {
			keys = []string{}
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(keys)
	}
	for _, k := range keys {
		fmt.Fprintf(cmd.OutOrStdout(), "uploaded s3://%s/%s\n", rootOpts.config.S3Bucket, k)
	}
	return nil
}
