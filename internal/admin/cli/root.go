// Package cli implements gophbook-admin, the operator tool that works on the
// same data directory as a running server.
package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/gophbook/internal/logging"
	"github.com/dmitrijs2005/gophbook/internal/server"
	"github.com/dmitrijs2005/gophbook/internal/server/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	DataDir    string
	Format     string // "json" | "text"
	Verbose    bool

	config *config.Config
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "gophbook-admin",
		Short:         "Administer a gophbook data directory",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "server config file (JSON or YAML)")
	cmd.PersistentFlags().StringVarP(&opts.DataDir, "data-dir", "d", "", "data directory, overrides the config file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewUserAddCommand(opts))
	cmd.AddCommand(NewUsersCommand(opts))
	cmd.AddCommand(NewBackupCommand(opts))

	return cmd
}

func (o *RootOptions) loadConfig(cmd *cobra.Command) error {
	c := &config.Config{}
	c.LoadDefaults()

	if o.ConfigFile != "" {
		if err := c.LoadFile(o.ConfigFile); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("data-dir") {
		c.DataDir = o.DataDir
	}

	o.config = c
	return nil
}

// services opens the data directory. Logs go to stderr so they never mix
// with command output.
func (o *RootOptions) services(cmd *cobra.Command) (*server.Services, error) {
	level := logging.ParseLevel(o.config.LogLevel)
	if o.Verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

	return server.NewServices(o.config, logger)
}
