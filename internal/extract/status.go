package extract

import "time"

// ExpiryStatus is derived from an expiry date and "now"; it is never stored.
type ExpiryStatus string

const (
	StatusFresh        ExpiryStatus = "Fresh"
	StatusExpiringSoon ExpiryStatus = "Expiring Soon"
	StatusExpired      ExpiryStatus = "Expired"
)

// SoonWindowDays is the last days-left value still classified as expiring soon.
// The notification job targets exactly this many days ahead.
const SoonWindowDays = 3

const day = 24 * time.Hour

// DaysLeft counts whole calendar days from now's date (in now's location) to d.
// An item expiring today has 0 days left, one that expired yesterday -1.
func DaysLeft(d Date, now time.Time) int {
	today := DateOf(now)
	return int(d.In(time.UTC).Sub(today.In(time.UTC)) / day)
}

// Classify maps an expiry date to its status relative to now.
func Classify(d Date, now time.Time) ExpiryStatus {
	return ClassifyDays(DaysLeft(d, now))
}

func ClassifyDays(daysLeft int) ExpiryStatus {
	switch {
	case daysLeft < 0:
		return StatusExpired
	case daysLeft <= SoonWindowDays:
		return StatusExpiringSoon
	default:
		return StatusFresh
	}
}

// StatusSummary counts dates per status.
type StatusSummary struct {
	Total        int `json:"total"`
	Expired      int `json:"expired"`
	ExpiringSoon int `json:"expiring_soon"`
	Fresh        int `json:"fresh"`
}

func Summarize(dates []Date, now time.Time) StatusSummary {
	s := StatusSummary{Total: len(dates)}
	for _, d := range dates {
		switch Classify(d, now) {
		case StatusExpired:
			s.Expired++
		case StatusExpiringSoon:
			s.ExpiringSoon++
		default:
			s.Fresh++
		}
	}
	return s
}
