package extract

import (
	"errors"
	"log/slog"
	"unicode/utf8"
)

// ErrNotText is returned when the input is not UTF-8 text.
var ErrNotText = errors.New("extract: input is not valid UTF-8 text")

// Parser turns raw OCR text into an ExtractionRecord. It holds no state besides
// its logger and is safe for concurrent use.
type Parser struct {
	log *slog.Logger
}

func NewParser(log *slog.Logger) *Parser {
	if log == nil {
		log = slog.Default()
	}
	return &Parser{log: log}
}

var quiet = &Parser{log: slog.New(slog.DiscardHandler)}

// Parse runs the extraction with diagnostics discarded.
func Parse(text string) ExtractionRecord {
	return quiet.Parse(text)
}

// ParseBytes validates that b is UTF-8 text before parsing it.
func (p *Parser) ParseBytes(b []byte) (ExtractionRecord, error) {
	if !utf8.Valid(b) {
		return ExtractionRecord{}, ErrNotText
	}
	return p.Parse(string(b)), nil
}

// Parse never fails: missing fields are nil and a missing date yields ConfidenceNone.
func (p *Parser) Parse(text string) ExtractionRecord {
	rec := ExtractionRecord{
		RawText:    text,
		Confidence: ConfidenceNone,
	}

	if c, d, ok := MatchDate(text, p.log); ok {
		rec.ExpiryDate = &d
		rec.Match = &c
		rec.Confidence = ScoreTier(c.Tier)
	}
	rec.ProductName = stringPtr(ProductName(text))
	rec.Manufacturer = stringPtr(Manufacturer(text))
	rec.BatchNumber = stringPtr(BatchNumber(text))

	p.log.Debug("extract.parse.ok",
		"confidence", rec.Confidence,
		"has_expiry", rec.ExpiryDate != nil,
		"has_name", rec.ProductName != nil,
		"has_manufacturer", rec.Manufacturer != nil,
		"has_batch", rec.BatchNumber != nil,
		"text_len", len(text))
	return rec
}
