package extract

// Confidence is a coarse reliability label for an extracted expiry date.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceNone   Confidence = "none"
)

// ScoreTier maps the matcher tier that produced the accepted date to a confidence.
// Keyword-anchored tiers are high, bare tiers medium, anything else none.
func ScoreTier(tier int) Confidence {
	switch {
	case tier >= 1 && tier <= 3:
		return ConfidenceHigh
	case tier >= 4 && tier <= len(dateTiers):
		return ConfidenceMedium
	default:
		return ConfidenceNone
	}
}
