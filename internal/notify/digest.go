package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/expiry-tracker/internal/entity"
	"github.com/joseph-ayodele/expiry-tracker/internal/extract"
)

// TargetDay is the expiry date the daily digest reports on.
func TargetDay(now time.Time) extract.Date {
	return extract.DateOf(now).AddDays(extract.SoonWindowDays)
}

// Window returns the first and last instant of TargetDay in now's location.
func Window(now time.Time) (lower, upper time.Time) {
	lower = TargetDay(now).In(now.Location())
	upper = lower.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return lower, upper
}

// Message is one outgoing plain-text e-mail.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Subject reads "<n> Grocery Item(s) Expiring Soon!".
func Subject(n int) string {
	return fmt.Sprintf("%d Grocery Item(s) Expiring Soon!", n)
}

// Body lists each product as "i. <name>" followed by its expiry date.
func Body(products []*entity.Product, now time.Time) string {
	var b strings.Builder
	b.WriteString("GROCERY EXPIRY ALERT\n\n")
	fmt.Fprintf(&b, "The following %d product(s) are expiring in %d days:\n\n", len(products), extract.SoonWindowDays)
	for i, p := range products {
		exp := "Unknown"
		if p.ExpiryDate != nil {
			exp = p.ExpiryDate.String()
		}
		fmt.Fprintf(&b, "%d. %s\n   Expires: %s\n\n", i+1, p.DisplayName(), exp)
	}
	b.WriteString("Don't forget to use or dispose of these items soon!\n\n")
	b.WriteString("---\n")
	b.WriteString("This is an automated reminder from your Grocery Expiry Tracker.\n")
	fmt.Fprintf(&b, "Sent on: %s", now.UTC().Format("2006-01-02 at 15:04:05 UTC"))
	return b.String()
}

// Digest builds the reminder for one recipient.
func Digest(from, to string, products []*entity.Product, now time.Time) Message {
	return Message{
		From:    from,
		To:      []string{to},
		Subject: Subject(len(products)),
		Body:    Body(products, now),
	}
}
