package extract

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	isoDateRe = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)

	// "January 2, 2025" and "2 January 2025" style.
	monthDayYearRe = regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2}),?\s+(\d{4})\b`)
	dayMonthYearRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{4})\b`)
)

var monthNumbers = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June, "july": time.July,
	"august": time.August, "september": time.September, "october": time.October,
	"november": time.November, "december": time.December,
}

// extractDates collects calendar dates from frontmatter fields, the
// filename, and body text, normalized to YYYY-MM-DD and deduplicated in
// discovery order. Unparsable values are skipped.
func extractDates(fm map[string]interface{}, path, body string) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(s string) {
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, key := range []string{"date", "created"} {
		add(frontmatterDate(fm, key))
	}

	if m := isoDateRe.FindString(filepath.Base(path)); m != "" {
		add(normalizeISO(m))
	}

	for _, m := range isoDateRe.FindAllString(body, -1) {
		add(normalizeISO(m))
	}
	for _, m := range monthDayYearRe.FindAllStringSubmatch(body, -1) {
		add(naturalDate(m[3], m[1], m[2]))
	}
	for _, m := range dayMonthYearRe.FindAllStringSubmatch(body, -1) {
		add(naturalDate(m[3], m[2], m[1]))
	}

	return out
}

// frontmatterDate reads a date value from frontmatter. yaml.v3 decodes
// unquoted dates as time.Time; quoted ones arrive as strings.
func frontmatterDate(fm map[string]interface{}, key string) string {
	if fm == nil {
		return ""
	}
	switch v := fm[key].(type) {
	case time.Time:
		return v.Format("2006-01-02")
	case string:
		s := strings.TrimSpace(v)
		if len(s) >= 10 {
			return normalizeISO(s[:10])
		}
	}
	return ""
}

// normalizeISO validates a candidate YYYY-MM-DD string, returning it
// unchanged when it is a real calendar date and "" otherwise.
func normalizeISO(s string) string {
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return ""
	}
	return s
}

func naturalDate(year, month, day string) string {
	m, ok := monthNumbers[strings.ToLower(month)]
	if !ok {
		return ""
	}
	return normalizeISO(fmt.Sprintf("%s-%02d-%s", year, int(m), pad2(day)))
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
