package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/expiry-tracker/internal/common"
	"github.com/joseph-ayodele/expiry-tracker/internal/entity"
	"github.com/joseph-ayodele/expiry-tracker/internal/extract"
)

func TestDaysLeftText(t *testing.T) {
	assert.Equal(t, "expired 2 day(s) ago", daysLeftText(-2))
	assert.Equal(t, "expires today", daysLeftText(0))
	assert.Equal(t, "5 day(s) left", daysLeftText(5))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "milk", truncate("milk", 10))
	assert.Equal(t, "crème…", truncate("crème fraîche", 6))
}

func TestReadInput(t *testing.T) {
	got, err := readInput(strings.NewReader("EXP 01/02/2027"), nil)
	require.NoError(t, err)
	assert.Equal(t, "EXP 01/02/2027", string(got))

	got, err = readInput(strings.NewReader("from stdin"), []string{"-"})
	require.NoError(t, err)
	assert.Equal(t, "from stdin", string(got))

	path := filepath.Join(t.TempDir(), "label.txt")
	require.NoError(t, os.WriteFile(path, []byte("BEST BEFORE 2027-01-05"), 0o644))
	got, err = readInput(nil, []string{path})
	require.NoError(t, err)
	assert.Equal(t, "BEST BEFORE 2027-01-05", string(got))

	_, err = readInput(nil, []string{filepath.Join(t.TempDir(), "missing.txt")})
	assert.Error(t, err)
}

func TestReferenceTime(t *testing.T) {
	now, err := referenceTime("2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, extract.NewDate(2026, time.March, 10), extract.DateOf(now))

	_, err = referenceTime("10/03/2026")
	assert.Error(t, err)
}

func TestWriteConfigRedactsSecrets(t *testing.T) {
	cfg := common.Config{
		Owner:    "me@example.com",
		Database: common.DatabaseConfig{DSN: "postgres://app:hunter2@db:5432/expiry"},
		Notify:   common.NotifyConfig{From: "bot@example.com", Password: "app-password"},
		Search:   common.SearchConfig{URL: "http://meili:7700", APIKey: "masterKey"},
	}
	var buf bytes.Buffer
	require.NoError(t, writeConfig(&buf, cfg.Redacted()))

	out := buf.String()
	assert.Contains(t, out, "owner: me@example.com")
	assert.Contains(t, out, "http://meili:7700")
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "app-password")
	assert.NotContains(t, out, "masterKey")
}

func TestPrintProducts(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	name := "Greek Yoghurt"
	exp := extract.NewDate(2026, time.March, 12)
	products := []*entity.Product{
		{Name: &name, ExpiryDate: &exp},
		{},
	}

	var buf bytes.Buffer
	printProducts(&buf, "Products", products, now)
	out := buf.String()
	assert.Contains(t, out, "Greek Yoghurt")
	assert.Contains(t, out, "2026-03-12")
	assert.Contains(t, out, "2 day(s) left")
	assert.Contains(t, out, entity.UnnamedProduct)
	assert.Contains(t, out, "2 product(s)")

	buf.Reset()
	printProducts(&buf, "Expired", nil, now)
	assert.Contains(t, buf.String(), "no products")
}

func TestParseCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader("ORGANIC WHOLE MILK\nMFG BY: Happy Cow Dairy\nBATCH NO: L2231\nEXP: 12/03/2026"))
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"parse", "--now", "2026-03-10"})
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		parseNow = ""
	})

	require.NoError(t, rootCmd.Execute())

	var got struct {
		ExpiryDate   string `json:"expiry_date"`
		ProductName  string `json:"product_name"`
		Manufacturer string `json:"manufacturer"`
		BatchNumber  string `json:"batch_number"`
		Status       string `json:"status"`
		DaysLeft     int    `json:"days_left"`
		ID           string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "2026-03-12", got.ExpiryDate)
	assert.Equal(t, "ORGANIC WHOLE MILK", got.ProductName)
	assert.Equal(t, "Happy Cow Dairy", got.Manufacturer)
	assert.Equal(t, "L2231", got.BatchNumber)
	assert.Equal(t, string(extract.StatusExpiringSoon), got.Status)
	assert.Equal(t, 2, got.DaysLeft)
	assert.Empty(t, got.ID)
}

func TestParseCommandRejectsBinaryInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "label.jpg")
	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01, 0x01, 0x00, 0xff, 0xdb}
	require.NoError(t, os.WriteFile(path, jpeg, 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"parse", path})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, extract.ErrNotText)
	assert.Contains(t, err.Error(), path)
	assert.Empty(t, out.String())
}
