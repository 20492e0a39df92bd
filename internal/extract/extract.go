// Package extract turns raw document text into structured facts:
// frontmatter, hashtags, dates, and a bounded content preview.
//
// Everything here is a pure function of its inputs; extraction errors
// (malformed YAML, unparsable dates) recover to empty values.
package extract

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// DefaultPreviewLength bounds the stored content preview when the caller
// passes a non-positive length.
const DefaultPreviewLength = 1000

// Result holds the output of extracting one document.
type Result struct {
	Frontmatter    map[string]interface{}
	RawFrontmatter []byte // verbatim YAML block, nil when absent
	Body           string
	Title          string
	Description    string
	Tags           []string
	Dates          []string
	Preview        string
}

// Parse extracts structured facts from raw document bytes. The document's
// vault-relative path contributes filename dates; previewLen bounds the
// preview (runes, not bytes).
func Parse(data []byte, path string, previewLen int) *Result {
	fm, raw, body := SplitFrontmatter(data)

	return &Result{
		Frontmatter:    fm,
		RawFrontmatter: raw,
		Body:           body,
		Title:          deriveTitle(fm, body),
		Description:    stringField(fm, "description"),
		Tags:           extractTags(body, fm),
		Dates:          extractDates(fm, path, body),
		Preview:        Preview(body, previewLen),
	}
}

// SplitFrontmatter separates the YAML frontmatter block (between leading
// --- delimiters) from the body. Malformed YAML is recovered silently:
// the whole content becomes body and the mapping is nil.
func SplitFrontmatter(data []byte) (map[string]interface{}, []byte, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter — treat everything as body.
		return nil, nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, nil, string(data)
	}

	return fm, yamlBlock, body
}

// Preview returns the first max runes of body, trimmed back to a word
// boundary when that does not cost more than a fifth of the preview.
func Preview(body string, max int) string {
	if max <= 0 {
		max = DefaultPreviewLength
	}
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	cut := string(runes[:max])
	if i := strings.LastIndex(cut, " "); i > max*4/5 {
		cut = cut[:i] + "..."
	}
	return cut
}

// extractTags collects #tags from body and the frontmatter "tags" field,
// deduplicated case-insensitively and lowercased.
func extractTags(body string, fm map[string]interface{}) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	if fm != nil {
		switch v := fm["tags"].(type) {
		case string:
			add(v)
		case []interface{}:
			for _, item := range v {
				if s, ok := item.(string); ok {
					add(s)
				}
			}
		}
	}

	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}

	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the
// first H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if t := stringField(fm, "title"); t != "" {
		return t
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

func stringField(fm map[string]interface{}, key string) string {
	if fm == nil {
		return ""
	}
	if s, ok := fm[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
