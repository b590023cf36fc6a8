package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sboapp/admin/internal/entrypoint"
)

func newServeCmd(a *app) *cobra.Command {
	var seedPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Example: `  sboapp-admin serve
  sboapp-admin serve --seed sample
  STORE_DRIVER=redis sboapp-admin serve --seed ./library.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return entrypoint.Run(ctx, a.cfg, a.version, seedPath)
		},
	}
	cmd.Flags().StringVar(&seedPath, "seed", "", `seed file loaded before serving ("sample" for the built-in data)`)
	return cmd
}
