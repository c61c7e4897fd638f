package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/expiry-tracker/internal/extract"
	"github.com/joseph-ayodele/expiry-tracker/internal/server"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Check the database connection and show product counts",
	Long: `DB opens the configured database (PostgreSQL when DB_URL is set, the SQLite
file otherwise), creates the products table if needed, pings it and prints
the owner's product counts by status.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		if err := server.PingDB(ctx, a.db, a.logger, time.Second); err != nil {
			fmt.Fprintln(out, errorStyle.Render("DB health: FAIL"))
			return err
		}
		fmt.Fprintf(out, "DB health: %s (%s)\n", freshStyle.Render("OK"), a.db.Dialect)

		if a.cfg.Owner == "" {
			return nil
		}
		dates, err := a.products.ExpiryDates(ctx, a.cfg.Owner)
		if err != nil {
			return err
		}
		s := extract.Summarize(dates, timeNow())
		fmt.Fprintf(out, "%s total %d, %s, %s, %s\n", mutedStyle.Render(a.cfg.Owner+":"), s.Total,
			expiredStyle.Render(fmt.Sprintf("%d expired", s.Expired)),
			soonStyle.Render(fmt.Sprintf("%d expiring soon", s.ExpiringSoon)),
			freshStyle.Render(fmt.Sprintf("%d fresh", s.Fresh)),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
}
