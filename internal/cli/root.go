// Package cli wires the admin binary's subcommands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sboapp/admin/internal/config"
	"github.com/sboapp/admin/internal/logger"
)

// app carries what every subcommand shares.
type app struct {
	version string
	cfg     *config.Config
}

// NewRootCommand builds the command tree. Running the binary without a
// subcommand starts the server.
func NewRootCommand(version string) *cobra.Command {
	a := &app{version: version}

	cmd := &cobra.Command{
		Use:           "sboapp-admin",
		Short:         "Marketing site and admin dashboard for the SBO APP library",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	serve := newServeCmd(a)
	cmd.RunE = serve.RunE
	cmd.Flags().AddFlagSet(serve.Flags())

	cmd.AddCommand(
		serve,
		newSeedCmd(a),
		newCreateAdminCmd(a),
		newAuditCmd(a),
	)
	return cmd
}

func (a *app) loadConfig() error {
	cfg := config.NewConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Init(cfg.Log)
	a.cfg = cfg
	return nil
}
