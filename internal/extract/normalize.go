package extract

import (
	"strings"
	"time"
)

// PivotYear splits two-digit years: YY < PivotYear is 20YY, anything else 19YY.
const PivotYear = 30

type dateTemplate struct {
	layout    string
	shortYear bool
}

// dateTemplates is tried top to bottom and the first layout that yields a valid
// calendar day wins. The order is the tie-break for ambiguous numeric dates:
// day-first beats month-first, so "03/04/25" is 3 April 2025.
var dateTemplates = []dateTemplate{
	{layout: "2/1/2006"},
	{layout: "1/2/2006"},
	{layout: "2006/1/2"},
	{layout: "2-1-2006"},
	{layout: "1-2-2006"},
	{layout: "2006-1-2"},
	{layout: "2.1.2006"},
	{layout: "1.2.2006"},
	{layout: "2006.1.2"},
	{layout: "2/1/06", shortYear: true},
	{layout: "1/2/06", shortYear: true},
	{layout: "06/1/2", shortYear: true},
	{layout: "2-1-06", shortYear: true},
	{layout: "1-2-06", shortYear: true},
	{layout: "06-1-2", shortYear: true},
	{layout: "2.1.06", shortYear: true},
	{layout: "1.2.06", shortYear: true},
	{layout: "06.1.2", shortYear: true},
	{layout: "2 Jan 2006"},
	{layout: "2 January 2006"},
	{layout: "Jan 2 2006"},
	{layout: "January 2 2006"},
	{layout: "2 Jan 06", shortYear: true},
	{layout: "2 January 06", shortYear: true},
	{layout: "Jan 2 06", shortYear: true},
	{layout: "January 2 06", shortYear: true},
}

// NormalizeDate converts a matched date substring into a calendar day.
// It reports false when no template describes a valid date (e.g. day 32, 31 February).
func NormalizeDate(s string) (Date, bool) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return Date{}, false
	}
	for _, tpl := range dateTemplates {
		t, err := time.Parse(tpl.layout, s)
		if err != nil {
			continue
		}
		year := t.Year()
		if tpl.shortYear {
			year %= 100
		}
		return Date{Year: ResolveYear(year), Month: t.Month(), Day: t.Day()}, true
	}
	return Date{}, false
}

// ResolveYear applies the pivot rule to years below 100 and returns
// four-digit years unchanged.
func ResolveYear(year int) int {
	switch {
	case year >= 100:
		return year
	case year < PivotYear:
		return 2000 + year
	default:
		return 1900 + year
	}
}
