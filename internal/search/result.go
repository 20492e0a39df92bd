// Package search executes structured queries against the metadata store
// with a content-scan fallback, then ranks and dedupes the hits.
package search

// MatchKind says which indexed field produced a hit.
type MatchKind string

const (
	MatchDate     MatchKind = "date"
	MatchTag      MatchKind = "tag"
	MatchFilename MatchKind = "filename"
	MatchContent  MatchKind = "content"
)

// Hit is one retrieved document. Kinds lists the distinct match kinds in
// discovery order; Score counts the distinct criteria the document
// satisfied (a two-tag match outranks a one-tag match).
type Hit struct {
	Path  string      `json:"path"`
	Kinds []MatchKind `json:"kinds"`
	Score int         `json:"score"`
}

// Kind returns the primary (first discovered) match kind.
func (h Hit) Kind() MatchKind {
	if len(h.Kinds) == 0 {
		return MatchContent
	}
	return h.Kinds[0]
}
