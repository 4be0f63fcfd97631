package verify

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateMatch summarizes how closely an article's dates track a record's date
type dateMatch struct {
	Found     bool
	Exact     bool
	Proximity int // Days from target for the closest non-exact match
	Matched   string
}

var monthNumbers = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "jun": time.June, "jul": time.July,
	"aug": time.August, "sep": time.September, "oct": time.October,
	"nov": time.November, "dec": time.December,
}

// prose dates like "July 10", "Jul. 10th, 2025"
var proseDatePattern = regexp.MustCompile(
	`\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s*(\d{4})?\b`)

// parseRecordDate handles the dataset's declared precisions: full day,
// month, or bare year.
func parseRecordDate(date string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, date); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// checkDateProximity scans article text for prose dates within tolerance
// of the record's date. A year-less mention assumes the record's year,
// matching how news prose cites recent events.
func checkDateProximity(text, recordDate string, toleranceDays int) dateMatch {
	var result dateMatch

	target, ok := parseRecordDate(recordDate)
	if !ok {
		return result
	}

	lower := strings.ToLower(text)
	for _, m := range proseDatePattern.FindAllStringSubmatch(lower, -1) {
		month, ok := monthNumbers[m[1]]
		if !ok {
			continue
		}
		day, err := strconv.Atoi(m[2])
		if err != nil || day < 1 || day > 31 {
			continue
		}
		year := target.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}

		articleDate := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		diff := int(articleDate.Sub(target).Hours() / 24)
		if diff < 0 {
			diff = -diff
		}

		switch {
		case diff == 0:
			result.Exact = true
			result.Found = true
			result.Matched = m[0]
		case diff <= toleranceDays:
			result.Found = true
			if !result.Exact && (result.Proximity == 0 || diff < result.Proximity) {
				result.Proximity = diff
				result.Matched = m[0]
			}
		}
	}
	return result
}
