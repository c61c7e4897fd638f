package extract

import "time"

// ExtractionRecord is the best-effort reading of one label.
// Nil fields were not found; they are never encoded as empty strings.
type ExtractionRecord struct {
	ExpiryDate   *Date      `json:"expiry_date"`
	ProductName  *string    `json:"product_name"`
	Manufacturer *string    `json:"manufacturer"`
	BatchNumber  *string    `json:"batch_number"`
	Confidence   Confidence `json:"confidence"`
	RawText      string     `json:"raw_text"`

	// Match is the candidate the expiry date came from, nil when none was accepted.
	Match *Candidate `json:"match,omitempty"`
}

// HasExpiry reports whether an expiry date was found.
func (r ExtractionRecord) HasExpiry() bool { return r.ExpiryDate != nil }

// Status classifies the expiry date against now. ok is false when there is no date.
func (r ExtractionRecord) Status(now time.Time) (status ExpiryStatus, ok bool) {
	if r.ExpiryDate == nil {
		return "", false
	}
	return Classify(*r.ExpiryDate, now), true
}

func (r ExtractionRecord) DaysLeft(now time.Time) (int, bool) {
	if r.ExpiryDate == nil {
		return 0, false
	}
	return DaysLeft(*r.ExpiryDate, now), true
}

func stringPtr(s string, ok bool) *string {
	if !ok {
		return nil
	}
	return &s
}
