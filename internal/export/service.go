package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/expiry-tracker/internal/entity"
	"github.com/joseph-ayodele/expiry-tracker/internal/repository"
)

// Headers are the export columns, in order.
var Headers = []string{"Name", "Expiry Date", "Days Left", "Status"}

// UnknownStatus fills the Status column of undated products.
const UnknownStatus = "Unknown"

const sheet = "Products"

// ProductLister is the slice of the product store exports read.
type ProductLister interface {
	List(ctx context.Context, q repository.ListQuery) ([]*entity.Product, error)
}

// Service renders the current product list as CSV or XLSX.
type Service struct {
	products ProductLister
	logger   *slog.Logger
}

func NewService(products ProductLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{products: products, logger: logger}
}

// Rows renders products as export rows; days left and status are computed at now.
func Rows(products []*entity.Product, now time.Time) [][]string {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		row := []string{p.DisplayName(), "", "", UnknownStatus}
		if p.ExpiryDate != nil {
			row[1] = p.ExpiryDate.String()
			days, _ := p.DaysLeft(now)
			row[2] = strconv.Itoa(days)
			st, _ := p.Status(now)
			row[3] = string(st)
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV writes a header line followed by one line per product.
func WriteCSV(w io.Writer, products []*entity.Product, now time.Time) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers); err != nil {
		return fmt.Errorf("csv header: %w", err)
	}
	if err := cw.WriteAll(Rows(products, now)); err != nil {
		return fmt.Errorf("csv rows: %w", err)
	}
	return nil
}

// XLSX builds a single-sheet workbook. Days Left is written as a number.
func XLSX(products []*entity.Product, now time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetCellStyle(sheet, "A1", "D1", bold)
	}

	for r, p := range products {
		row := r + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, p.DisplayName())
		if p.ExpiryDate == nil {
			write(4, UnknownStatus)
			continue
		}
		write(2, p.ExpiryDate.String())
		days, _ := p.DaysLeft(now)
		write(3, days)
		st, _ := p.Status(now)
		write(4, string(st))
	}

	_ = f.SetColWidth(sheet, "A", "A", 36) // name
	_ = f.SetColWidth(sheet, "B", "B", 14) // date
	_ = f.SetColWidth(sheet, "C", "C", 10)
	_ = f.SetColWidth(sheet, "D", "D", 16)
	return f, nil
}

// ExportCSV lists products for q and renders them as CSV.
func (s *Service) ExportCSV(ctx context.Context, q repository.ListQuery) ([]byte, error) {
	start := time.Now()
	now := q.Now
	if now.IsZero() {
		now = start
	}
	recs, err := s.products.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, recs, now); err != nil {
		return nil, err
	}
	s.logger.Info("export.csv.ok",
		"owner", q.Owner,
		"filter", q.Filter,
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// ExportXLSX lists products for q and returns the workbook bytes.
func (s *Service) ExportXLSX(ctx context.Context, q repository.ListQuery) ([]byte, error) {
	start := time.Now()
	now := q.Now
	if now.IsZero() {
		now = start
	}
	recs, err := s.products.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}

	f, err := XLSX(recs, now)
	if err != nil {
		return nil, fmt.Errorf("xlsx build: %w", err)
	}
	defer func() { _ = f.Close() }()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"owner", q.Owner,
		"filter", q.Filter,
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
