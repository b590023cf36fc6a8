package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sboapp/admin/internal/audit"
	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/entrypoint"
)

func newAuditCmd(a *app) *cobra.Command {
	var (
		limit   int
		filter  audit.Filter
		action  string
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Print the most recent audit log entries, newest first",
		Example: `  sboapp-admin audit
  sboapp-admin audit --limit 200 --action DELETE
  sboapp-admin audit --entity Book --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := entrypoint.Open(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			filter.Action = entities.AuditAction(action)
			logs, err := c.Auditor.Find(cmd.Context(), filter, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(logs)
			}
			if len(logs) == 0 {
				fmt.Fprintln(out, "No audit entries.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tACTION\tENTITY\tID\tADMIN\tDETAILS")
			for _, l := range logs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					time.UnixMilli(l.Timestamp).UTC().Format(time.RFC3339),
					l.Action, l.EntityType, l.EntityID, l.UserEmail, l.Details)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", audit.DefaultLimit, "number of entries")
	cmd.Flags().StringVar(&action, "action", "", "only this action (CREATE, UPDATE, DELETE, SIGN_IN, ...)")
	cmd.Flags().StringVar(&filter.EntityType, "entity", "", "only this entity type (Book, User, Author, ...)")
	cmd.Flags().StringVar(&filter.UserID, "user", "", "only entries by this admin id")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	return cmd
}
