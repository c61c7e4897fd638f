package extract

import (
	"log/slog"
	"regexp"
)

const keywordPattern = `\b(?:expiry|expires|exp|best\s+before|use\s+by|best\s+by|bb)\s*[:.]?\s*`

// Candidate is a date-looking substring of the raw text.
type Candidate struct {
	Text   string `json:"text"`
	Tier   int    `json:"tier"`
	Offset int    `json:"offset"`
}

type dateTier struct {
	n  int
	re *regexp.Regexp
	// bounded tiers reject a match glued to further digits, so "2026/08/15"
	// is never read by a bare D/M/Y pattern as "26/08/15".
	bounded bool
}

// dateTiers are scanned strictly in this order.
var dateTiers = []dateTier{
	{n: 1, re: regexp.MustCompile(`(?i)` + keywordPattern + `(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`)},
	{n: 2, re: regexp.MustCompile(`(?i)` + keywordPattern + `(\d{1,2}\s+[a-z]{3,9}\s+\d{2,4})`)},
	{n: 3, re: regexp.MustCompile(`(?i)\b(?:expiry|expires|exp)\s*[:.]?\s*(\d{1,2}\.\d{1,2}\.\d{2,4})`)},
	{n: 4, re: regexp.MustCompile(`(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`), bounded: true},
	{n: 5, re: regexp.MustCompile(`(\d{2,4}[/-]\d{1,2}[/-]\d{1,2})`), bounded: true},
	{n: 6, re: regexp.MustCompile(`(?i)(\d{1,2}\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+\d{2,4})`)},
	{n: 7, re: regexp.MustCompile(`(\d{1,2}\.\d{1,2}\.\d{2,4})`), bounded: true},
}

var keywordRe = regexp.MustCompile(`(?i)` + keywordPattern)

// keywordDate reports whether a date candidate of any tier directly follows
// an expiry keyword in s.
func keywordDate(s string) bool {
	for _, loc := range keywordRe.FindAllStringIndex(s, -1) {
		for _, c := range Candidates(s[loc[1]:]) {
			if c.Offset == 0 {
				return true
			}
		}
	}
	return false
}

// Candidates lists every date-looking substring of text in scan order:
// tier by tier, and by offset within a tier. Candidates are not validated.
func Candidates(text string) []Candidate {
	var out []Candidate
	for _, t := range dateTiers {
		out = append(out, t.find(text)...)
	}
	return out
}

func (t dateTier) find(text string) []Candidate {
	var out []Candidate
	for _, loc := range t.re.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[2], loc[3]
		if t.bounded && !digitBounded(text, start, end) {
			continue
		}
		out = append(out, Candidate{Text: text[start:end], Tier: t.n, Offset: start})
	}
	return out
}

func digitBounded(text string, start, end int) bool {
	if start > 0 && isDigit(text[start-1]) {
		return false
	}
	if end < len(text) && isDigit(text[end]) {
		return false
	}
	return true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// MatchDate returns the first candidate that normalizes to a calendar date.
// Candidates that fail normalization are logged and skipped.
func MatchDate(text string, log *slog.Logger) (Candidate, Date, bool) {
	for _, c := range Candidates(text) {
		d, ok := NormalizeDate(c.Text)
		if ok {
			return c, d, true
		}
		if log != nil {
			log.Debug("extract.date.rejected", "candidate", c.Text, "tier", c.Tier, "offset", c.Offset)
		}
	}
	return Candidate{}, Date{}, false
}
