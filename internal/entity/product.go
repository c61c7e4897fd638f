package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/expiry-tracker/internal/extract"
)

// UnnamedProduct is shown wherever a product has no name.
const UnnamedProduct = "Unnamed Product"

// Product represents a stored product for data transfer between layers.
// Nil pointers are fields that were never found or entered.
type Product struct {
	ID           uuid.UUID          `json:"id"`
	Owner        string             `json:"owner"`
	Name         *string            `json:"name"`
	ExpiryDate   *extract.Date      `json:"expiry_date"`
	Manufacturer *string            `json:"manufacturer"`
	BatchNumber  *string            `json:"batch_number"`
	Confidence   extract.Confidence `json:"confidence"`
	RawText      *string            `json:"raw_text,omitempty"`
	SourcePath   *string            `json:"source_path,omitempty"`
	ContentHash  *string            `json:"content_hash,omitempty"`
	Deleted      bool               `json:"deleted"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// ProductFromRecord copies an extraction result into a new, unsaved product.
func ProductFromRecord(owner string, rec extract.ExtractionRecord) *Product {
	p := &Product{
		Owner:        owner,
		Name:         rec.ProductName,
		ExpiryDate:   rec.ExpiryDate,
		Manufacturer: rec.Manufacturer,
		BatchNumber:  rec.BatchNumber,
		Confidence:   rec.Confidence,
	}
	if rec.RawText != "" {
		raw := rec.RawText
		p.RawText = &raw
	}
	return p
}

// DisplayName returns the name or UnnamedProduct.
func (p *Product) DisplayName() string {
	if p.Name == nil || *p.Name == "" {
		return UnnamedProduct
	}
	return *p.Name
}

// Status is recomputed on every call; ok is false without an expiry date.
func (p *Product) Status(now time.Time) (extract.ExpiryStatus, bool) {
	if p.ExpiryDate == nil {
		return "", false
	}
	return extract.Classify(*p.ExpiryDate, now), true
}

func (p *Product) DaysLeft(now time.Time) (int, bool) {
	if p.ExpiryDate == nil {
		return 0, false
	}
	return extract.DaysLeft(*p.ExpiryDate, now), true
}
