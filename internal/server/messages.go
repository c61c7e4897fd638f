package server

import (
	"time"

	"github.com/joseph-ayodele/expiry-tracker/internal/entity"
	"github.com/joseph-ayodele/expiry-tracker/internal/extract"
	"github.com/joseph-ayodele/expiry-tracker/internal/pipeline"
)

type ParseTextRequest struct {
	Text    string `json:"text"`
	Persist bool   `json:"persist,omitempty"`
}

type ScanImageRequest struct {
	Path string `json:"path"`
}

type ScanDirectoryRequest struct {
	RootPath  string `json:"root_path"`
	Recursive bool   `json:"recursive,omitempty"`
}

type ScanDirectoryResponse struct {
	Matched int      `json:"matched"`
	Queued  int      `json:"queued"`
	Failed  []string `json:"failed,omitempty"`
}

// ScanResponse wraps one pipeline outcome. Error is set when the scan failed
// after the request itself was accepted.
type ScanResponse struct {
	Result pipeline.ScanResult `json:"result"`
	Error  string              `json:"error,omitempty"`
}

// CreateProductRequest is a manual entry. Dates are YYYY-MM-DD.
type CreateProductRequest struct {
	Name         *string `json:"name,omitempty"`
	ExpiryDate   *string `json:"expiry_date,omitempty"`
	Manufacturer *string `json:"manufacturer,omitempty"`
	BatchNumber  *string `json:"batch_number,omitempty"`
}

type GetProductRequest struct {
	ID string `json:"id"`
}

type ListProductsRequest struct {
	Filter string `json:"filter,omitempty"`
	Search string `json:"search,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
	// Deleted lists the recycle bin instead of live products.
	Deleted bool `json:"deleted,omitempty"`
}

type ListProductsResponse struct {
	Products []*ProductView `json:"products"`
}

type UpdateProductRequest struct {
	ID           string  `json:"id"`
	Name         *string `json:"name,omitempty"`
	ExpiryDate   *string `json:"expiry_date,omitempty"`
	ClearExpiry  bool    `json:"clear_expiry,omitempty"`
	Manufacturer *string `json:"manufacturer,omitempty"`
	BatchNumber  *string `json:"batch_number,omitempty"`
}

type DeleteProductRequest struct {
	ID string `json:"id"`
}

type DeleteProductResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

type RestoreProductRequest struct {
	ID string `json:"id"`
}

type SummaryRequest struct{}

// ProductView is a stored product plus the status fields derived at read time.
type ProductView struct {
	*entity.Product
	DisplayName string               `json:"display_name"`
	Status      extract.ExpiryStatus `json:"status,omitempty"`
	DaysLeft    *int                 `json:"days_left,omitempty"`
}

func toView(p *entity.Product, now time.Time) *ProductView {
	v := &ProductView{Product: p, DisplayName: p.DisplayName()}
	if st, ok := p.Status(now); ok {
		v.Status = st
	}
	if n, ok := p.DaysLeft(now); ok {
		v.DaysLeft = &n
	}
	return v
}

func toViews(ps []*entity.Product, now time.Time) []*ProductView {
	out := make([]*ProductView, 0, len(ps))
	for _, p := range ps {
		out = append(out, toView(p, now))
	}
	return out
}
