package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxNameLines    = 15
	minNameRunes    = 4
	nameLabelPrefix = 10
)

var numericLine = regexp.MustCompile(`^\d+$`)

// Captures are held to one line so a bare "MFG" never swallows the next line.
var manufacturerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:mfg(?:[ \t]+by\b)?|manufactured[ \t]+by|brand|company)[ \t]*:?[ \t]*([a-z &]+)`),
	regexp.MustCompile(`([A-Z][a-zA-Z \t&]{3,25})[ \t]+(?i:ltd|inc|corp|pvt|limited)\b`),
	regexp.MustCompile(`(?i:\bby)[ \t]+([A-Z][a-zA-Z \t&]{3,25})`),
}

var batchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:batch[ \t]+no\b\.?|lot[ \t]+no\b\.?|b\.[ \t]?no\b\.?|batch|lot)[ \t]*:?[ \t]*([a-z0-9]+)`),
	regexp.MustCompile(`(?i)batch\s*:?\s*([a-z0-9]+)`),
	regexp.MustCompile(`(?i)lot\s*:?\s*([a-z0-9]+)`),
}

// ProductName returns the longest plausible name line among the first lines
// of the label. Earlier lines win ties.
func ProductName(text string) (string, bool) {
	lines := strings.Split(text, "\n")
	if len(lines) > maxNameLines {
		lines = lines[:maxNameLines]
	}

	best, bestLen := "", 0
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if !nameCandidate(line) {
			continue
		}
		if n := utf8.RuneCountInString(line); n > bestLen {
			best, bestLen = line, n
		}
	}
	return best, bestLen > 0
}

func nameCandidate(line string) bool {
	if utf8.RuneCountInString(line) < minNameRunes || numericLine.MatchString(line) {
		return false
	}
	lower := strings.ToLower(line)
	if strings.Contains(lower, "barcode") {
		return false
	}
	head := firstRunes(lower, nameLabelPrefix)
	if strings.Contains(head, "exp") || strings.Contains(head, "mfg") {
		return false
	}
	return !keywordDate(line)
}

func firstRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Manufacturer tries the labelled form, then a legal-entity suffix, then "by <Name>".
func Manufacturer(text string) (string, bool) {
	for _, re := range manufacturerPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// BatchNumber returns the code that follows a batch or lot label.
func BatchNumber(text string) (string, bool) {
	for _, re := range batchPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}
