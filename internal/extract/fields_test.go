package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProductName(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"longest line wins", "MILK\nFULL CREAM MILK 1L\nDAIRY", "FULL CREAM MILK 1L", true},
		{"earliest wins ties", "ABCD\nWXYZ", "ABCD", true},
		{"numeric lines skipped", "1234567890123\nRICE", "RICE", true},
		{"barcode lines skipped", "BARCODE 8901234567890\nSALT", "SALT", true},
		{"exp prefix skipped", "Exp. date printed on pack\nTEA", "", false},
		{"mfg prefix skipped", "Mfg. Date 01/01/2025 batch\nJAM BOTTLE", "JAM BOTTLE", true},
		{"dated label line skipped", "USE BY 01/02/2027 STORE COLD\nYOGURT", "YOGURT", true},
		{"dotted date after best before", "Best before 15.08.2026\nOAT MILK", "OAT MILK", true},
		{"iso date after use by", "Use by 2026-08-15\nFETA", "FETA", true},
		{"textual date after bb", "BB 15 Aug 2026\nHONEY", "HONEY", true},
		{"keyword without date kept", "Best before see lid\nSALT", "Best before see lid", true},
		{"short lines only", "ABC\n12\n  \n", "", false},
		{"trimmed", "   PEANUT BUTTER   \nOIL", "PEANUT BUTTER", true},
		{"runes not bytes", "Café\nabc", "Café", true},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ProductName(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProductName_FirstFifteenLines(t *testing.T) {
	lines := make([]string, 0, 16)
	for i := 0; i < 15; i++ {
		lines = append(lines, "LINE")
	}
	lines = append(lines, "A MUCH LONGER PRODUCT LINE")

	got, ok := ProductName(strings.Join(lines, "\n"))
	assert.True(t, ok)
	assert.Equal(t, "LINE", got)
}

func TestManufacturer(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"mfg by", "MFG BY Sunrise Foods Ltd\nBATCH: A123", "Sunrise Foods Ltd", true},
		{"manufactured by", "Manufactured by: Acme & Sons\nIndia", "Acme & Sons", true},
		{"brand", "Brand: Green Valley", "Green Valley", true},
		{"company", "COMPANY Blue Hill", "Blue Hill", true},
		{"legal suffix", "Sunrise Foods Ltd", "Sunrise Foods", true},
		{"legal suffix inc", "Distributed\nAcme Snacks Inc.", "Acme Snacks", true},
		{"by phrase", "Packed by Green Farms", "Green Farms", true},
		{"empty label keeps looking", "MFG: \nOrganic", "", false},
		{"nothing", "JUST SOME TEXT", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Manufacturer(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBatchNumber(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"batch", "BATCH: A123", "A123", true},
		{"batch no", "BATCH NO: X9Z", "X9Z", true},
		{"lot no", "LOT NO 12", "12", true},
		{"lot", "Lot: 4455A", "4455A", true},
		{"b.no", "B.No. 7788", "7788", true},
		{"glued label", "BATCHK77", "K77", true},
		{"none", "Fresh milk", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := BatchNumber(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeywordDate(t *testing.T) {
	for _, line := range []string{
		"EXP 12/03/2026",
		"Best before 12 March 2026",
		"Expiry: 15.08.2026",
		"Best before 15.08.2026",
		"Use by 2026-08-15",
		"use by: 2026/8/15 keep chilled",
	} {
		assert.True(t, keywordDate(line), line)
	}
	for _, line := range []string{
		"Best before see lid",
		"Packed 2026-08-15",
		"Use by date printed on cap",
	} {
		assert.False(t, keywordDate(line), line)
	}
}
