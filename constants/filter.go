package constants

import (
	"sort"
	"strings"
)

// ListFilter selects which products a list returns.
type ListFilter string

const (
	FilterAll              ListFilter = "all"
	FilterExpiringThisWeek ListFilter = "expiring_week"
	FilterExpiringSoon     ListFilter = "expiring_soon"
	FilterExpiredOnly      ListFilter = "expired"
)

// WeekWindowDays bounds the "expiring this week" filter.
const WeekWindowDays = 7

var allFilters = []ListFilter{
	FilterAll,
	FilterExpiringThisWeek,
	FilterExpiringSoon,
	FilterExpiredOnly,
}

func FiltersAsStringSlice() []string {
	result := make([]string, len(allFilters))
	for i, f := range allFilters {
		result[i] = string(f)
	}
	return result
}

// filterSynonyms maps the labels shown in the web UI onto filters.
var filterSynonyms = map[string]ListFilter{
	"all items":          FilterAll,
	"expiring this week": FilterExpiringThisWeek,
	"week":               FilterExpiringThisWeek,
	"expiring soon":      FilterExpiringSoon,
	"soon":               FilterExpiringSoon,
	"alerts":             FilterExpiringSoon,
	"expired only":       FilterExpiredOnly,
}

// NormalizeFilter lower-cases and trims a filter as typed by a user.
func NormalizeFilter(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// FilterInputs lists every normalized spelling ParseFilter accepts,
// canonical names first. The empty string selects FilterAll.
func FilterInputs() []string {
	out := append([]string{""}, FiltersAsStringSlice()...)
	syn := make([]string, 0, len(filterSynonyms))
	for k := range filterSynonyms {
		syn = append(syn, k)
	}
	sort.Strings(syn)
	return append(out, syn...)
}

// ParseFilter accepts canonical names and the labels shown in the web UI.
func ParseFilter(input string) (ListFilter, bool) {
	normalized := NormalizeFilter(input)
	if normalized == "" {
		return FilterAll, true
	}
	if f, ok := filterSynonyms[normalized]; ok {
		return f, true
	}
	for _, f := range allFilters {
		if normalized == string(f) {
			return f, true
		}
	}
	return FilterAll, false
}
