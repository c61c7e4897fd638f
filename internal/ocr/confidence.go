package ocr

import (
	"regexp"
	"strings"
)

var (
	reDateish  = regexp.MustCompile(`\d{1,4}[./-]\d{1,2}[./-]\d{2,4}|\d{1,2}\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)`)
	reLabelKey = regexp.MustCompile(`\b(?:exp|expiry|best\s+before|use\s+by|bb|mfg|mfd|batch|lot)\b`)
	reWordy    = regexp.MustCompile(`[a-z]{4,}`)
)

// heuristicConfidence scores decoded text by how much it looks like a product label.
func heuristicConfidence(txt string) float32 {
	if txt == "" {
		return 0
	}
	txtL := strings.ToLower(txt)
	score := float32(0.2) // base
	if reDateish.MatchString(txtL) {
		score += 0.3
	}
	if reLabelKey.MatchString(txtL) {
		score += 0.2
	}
	if len(reWordy.FindAllString(txtL, 3)) == 3 {
		score += 0.15
	}
	if len(txt) > 60 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
