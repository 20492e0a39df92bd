// Package query converts free-text questions into structured queries the
// retrieval engine can execute against the metadata store.
package query

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateRange is an inclusive calendar range in YYYY-MM-DD form. A single
// day is a range where From == To.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Structured is the typed representation of one question. It is produced
// once per question and never persisted.
type Structured struct {
	Raw       string      `json:"raw"`
	Dates     []DateRange `json:"dates,omitempty"`
	Tags      []string    `json:"tags,omitempty"`
	Filenames []string    `json:"filenames,omitempty"`
	Keywords  []string    `json:"keywords,omitempty"`
}

// HasStructured reports whether the query carries any exact-match criteria.
func (q Structured) HasStructured() bool {
	return len(q.Dates) > 0 || len(q.Tags) > 0 || len(q.Filenames) > 0
}

var (
	yearRe  = regexp.MustCompile(`^\d{4}$`)
	monthRe = regexp.MustCompile(`^\d{4}-\d{2}$`)
	dayRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// ExpandDateExpr turns a date expression into an inclusive range:
//
//	"2025"                    → 2025-01-01 .. 2025-12-31
//	"2025-01"                 → 2025-01-01 .. 2025-01-31
//	"2025-01-15"              → 2025-01-15 .. 2025-01-15
//	"2025-01-01..2025-03-31"  → as written
//
// Anything else is rejected.
func ExpandDateExpr(expr string) (DateRange, error) {
	expr = strings.TrimSpace(expr)

	if from, to, ok := strings.Cut(expr, ".."); ok {
		from, to = strings.TrimSpace(from), strings.TrimSpace(to)
		if !validDay(from) || !validDay(to) || from > to {
			return DateRange{}, fmt.Errorf("query: invalid date range %q", expr)
		}
		return DateRange{From: from, To: to}, nil
	}

	switch {
	case dayRe.MatchString(expr):
		if !validDay(expr) {
			return DateRange{}, fmt.Errorf("query: invalid date %q", expr)
		}
		return DateRange{From: expr, To: expr}, nil

	case monthRe.MatchString(expr):
		t, err := time.Parse("2006-01", expr)
		if err != nil {
			return DateRange{}, fmt.Errorf("query: invalid month %q", expr)
		}
		last := time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
		return DateRange{
			From: t.Format("2006-01-02"),
			To:   last.Format("2006-01-02"),
		}, nil

	case yearRe.MatchString(expr):
		return DateRange{From: expr + "-01-01", To: expr + "-12-31"}, nil
	}

	return DateRange{}, fmt.Errorf("query: unrecognized date expression %q", expr)
}

func validDay(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

var stopWords = map[string]struct{}{
	"what": {}, "is": {}, "are": {}, "the": {}, "how": {}, "when": {},
	"where": {}, "who": {}, "why": {}, "about": {}, "find": {}, "search": {},
	"did": {}, "do": {}, "does": {}, "my": {}, "me": {}, "a": {}, "an": {},
	"in": {}, "on": {}, "of": {}, "for": {}, "with": {}, "i": {},
}

// Keywords tokenizes a question into lowercase content words, dropping
// stop words and tokens shorter than three characters.
func Keywords(question string) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r == '-')
	})
	var out []string
	for _, w := range fields {
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}
