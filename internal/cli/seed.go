package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sboapp/admin/internal/config"
	"github.com/sboapp/admin/internal/entrypoint"
	"github.com/sboapp/admin/internal/logger"
	"github.com/sboapp/admin/internal/seed"
)

func newSeedCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load categories, users, books and the landing page from a YAML file",
		Long: `Loads a YAML seed file into the backing store. Users are matched by email
and books by title and author, so running it twice adds nothing. Every write
is audited under the system actor.

Without --file the built-in sample data is used.`,
		Example: `  sboapp-admin seed
  sboapp-admin seed --file ./library.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Store.Driver == config.StoreDriverMemory {
				logger.Log().Warn("STORE_DRIVER=memory: seeded data is discarded when this command exits; use serve --seed instead")
			}
			f, err := seed.Load(file)
			if err != nil {
				return err
			}
			c, err := entrypoint.Open(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := seed.NewSeeder(c.Library, c.Services).Apply(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"Seeded %d categories, %d subscriptions, %d users, %d books (skipped %d existing)\n",
				res.Categories, res.Subscriptions, res.Users, res.Books, res.Skipped)
			if res.LandingPage {
				fmt.Fprintln(cmd.OutOrStdout(), "Landing page updated")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed file (defaults to the built-in sample)")
	return cmd
}
