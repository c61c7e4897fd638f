package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/expiry-tracker/internal/common"
	"github.com/joseph-ayodele/expiry-tracker/internal/notify"
)

var (
	notifyNow bool
	notifyAt  string
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "E-mail the digest of products expiring in three days",
	Long: `Notify sends one e-mail per recipient listing the products that expire
exactly three days from today. Products are addressed to their owner when the
owner is an e-mail address, otherwise to TO_EMAIL.

Without --now the command stays in the foreground and sends the digest every
day at NOTIFY_AT (default 09:00). Without SMTP_HOST the digest is only logged.

Example:
  expiry-tracker notify --now
  expiry-tracker notify --at 07:30`,
	Args: cobra.NoArgs,
	RunE: runNotify,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.Flags().BoolVar(&notifyNow, "now", false, "run the check once and exit")
	notifyCmd.Flags().StringVar(&notifyAt, "at", "", "daily send time HH:MM (overrides NOTIFY_AT)")
}

func newNotifyJob(a *app) *notify.Job {
	n := a.cfg.Notify
	return notify.NewJob(a.products, notify.NewMailer(n, a.logger), n.From, n.To, a.logger)
}

func runNotify(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	job := newNotifyJob(a)

	if notifyNow {
		rep, err := job.Run(ctx, timeNow())
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d product(s) expiring on %s, %d e-mail(s) sent, %d skipped\n",
			titleStyle.Render("notify:"), rep.Products, rep.Day, rep.Sent, rep.Skipped)
		return err
	}

	n := a.cfg.Notify
	if notifyAt != "" {
		n.At = notifyAt
	}
	at, err := n.DailyAt()
	if err != nil {
		return common.NewAppError("CONFIG_ERROR", "--at must be HH:MM", err)
	}
	if err := notify.NewScheduler(job, at, a.logger).Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
