package analyzer

import (
	"strings"
)

// TermMatch counts occurrences of one term within a posting.
type TermMatch struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// FindTermMatches counts case-insensitive, non-overlapping occurrences of
// each term in content and returns one TermMatch per term that appears, in
// term order. Blank and repeated terms are ignored.
func FindTermMatches(content string, terms []string) []TermMatch {
	if content == "" || len(terms) == 0 {
		return nil
	}

	lowerContent := strings.ToLower(content)
	seen := make(map[string]struct{}, len(terms))
	results := make([]TermMatch, 0, len(terms))

	for _, term := range terms {
		lowerTerm := strings.ToLower(strings.TrimSpace(term))
		if lowerTerm == "" {
			continue
		}
		if _, dup := seen[lowerTerm]; dup {
			continue
		}
		seen[lowerTerm] = struct{}{}

		if count := strings.Count(lowerContent, lowerTerm); count > 0 {
			results = append(results, TermMatch{Term: strings.TrimSpace(term), Count: count})
		}
	}
	return results
}

// Tags returns the terms mentioned in any of the given fields, in term order.
func Tags(terms []string, fields ...string) []string {
	matches := FindTermMatches(strings.Join(fields, "\n"), terms)
	if len(matches) == 0 {
		return nil
	}
	tags := make([]string, len(matches))
	for i, m := range matches {
		tags[i] = m.Term
	}
	return tags
}
