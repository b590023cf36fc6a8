package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sboapp/admin/internal/auth"
	"github.com/sboapp/admin/internal/database"
	"github.com/sboapp/admin/internal/entities"
)

func newCreateAdminCmd(a *app) *cobra.Command {
	var email, name, password, role string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator or reset an existing one's password",
		Example: `  sboapp-admin create-admin --email owner@sboapp.com --password '...'
  ADMIN_PASSWORD=... sboapp-admin create-admin --email ops@sboapp.com --role viewer`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password (or ADMIN_PASSWORD) are required")
			}
			adminRole := entities.AdminRole(role)
			if !adminRole.Valid() {
				return fmt.Errorf("unknown role %q (owner, editor or viewer)", role)
			}

			db, err := database.NewDatabase(a.cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			// Tokens are not issued here, so no signing secret is needed.
			service := auth.NewService(db.DB, a.cfg.Auth, nil)
			admin, created, err := service.UpsertAdmin(email, name, password, adminRole)
			if err != nil {
				return err
			}
			verb := "Updated"
			if created {
				verb = "Created"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s administrator %s (id %d)\n", verb, admin.Role, admin.Email, admin.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "administrator email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&password, "password", "", "password (at least 12 characters)")
	cmd.Flags().StringVar(&role, "role", string(entities.AdminRoleOwner), "owner, editor or viewer")
	return cmd
}
