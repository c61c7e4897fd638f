package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/joseph-ayodele/expiry-tracker/internal/entity"
	"github.com/joseph-ayodele/expiry-tracker/internal/extract"
)

// ExpiringLister is the slice of the product store the job reads.
type ExpiringLister interface {
	ListExpiringOn(ctx context.Context, day extract.Date) ([]*entity.Product, error)
}

// Report describes one run of the job.
type Report struct {
	Day      extract.Date `json:"day"`
	Products int          `json:"products"`
	Sent     int          `json:"sent"`
	Skipped  int          `json:"skipped"`
}

// Job sends one digest per recipient for products expiring on TargetDay.
type Job struct {
	store  ExpiringLister
	mailer Mailer
	from   string
	// fallbackTo receives products whose owner is not an e-mail address.
	fallbackTo string
	logger     *slog.Logger
}

func NewJob(store ExpiringLister, mailer Mailer, from, fallbackTo string, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{
		store:      store,
		mailer:     mailer,
		from:       from,
		fallbackTo: fallbackTo,
		logger:     logger,
	}
}

// Run checks once. Nothing is sent when no product expires on the target day.
func (j *Job) Run(ctx context.Context, now time.Time) (Report, error) {
	day := TargetDay(now)
	rep := Report{Day: day}

	products, err := j.store.ListExpiringOn(ctx, day)
	if err != nil {
		return rep, fmt.Errorf("load expiring products: %w", err)
	}
	rep.Products = len(products)
	j.logger.Info("notify.check", "day", day.String(), "products", len(products))
	if len(products) == 0 {
		return rep, nil
	}

	groups := map[string][]*entity.Product{}
	for _, p := range products {
		to := j.recipient(p.Owner)
		if to == "" {
			j.logger.Warn("notify.no_recipient", "product_id", p.ID, "owner", p.Owner)
			rep.Skipped++
			continue
		}
		groups[to] = append(groups[to], p)
	}

	recipients := make([]string, 0, len(groups))
	for to := range groups {
		recipients = append(recipients, to)
	}
	sort.Strings(recipients)

	var errs []error
	for _, to := range recipients {
		msg := Digest(j.from, to, groups[to], now)
		if err := j.mailer.Send(ctx, msg); err != nil {
			j.logger.Error("notify.send.failed", "to", to, "error", err)
			errs = append(errs, fmt.Errorf("send to %s: %w", to, err))
			continue
		}
		rep.Sent++
	}
	return rep, errors.Join(errs...)
}

func (j *Job) recipient(owner string) string {
	if strings.Contains(owner, "@") {
		return owner
	}
	return j.fallbackTo
}
