package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Filter keeps the items whose name, slug or synonyms match query. The
// whole query as a substring of any field is a match; failing that, a
// multi-word query matches when every word appears in some field. Recall is
// preferred over precision. An empty query returns items unchanged.
func Filter(items []Anime, query string) []Anime {
	q := lower(strings.TrimSpace(query))
	if q == "" {
		return items
	}
	words := strings.Fields(q)

	out := make([]Anime, 0, len(items))
	for _, item := range items {
		if matches(searchFields(item), q, words) {
			out = append(out, item)
		}
	}
	return out
}

func matches(fields []string, query string, words []string) bool {
	for _, f := range fields {
		if strings.Contains(f, query) {
			return true
		}
	}
	if len(words) < 2 {
		return false
	}
	for _, w := range words {
		found := false
		for _, f := range fields {
			if strings.Contains(f, w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func searchFields(a Anime) []string {
	fields := make([]string, 0, 2+len(a.Synonyms))
	if a.Name != "" {
		fields = append(fields, lower(a.Name))
	}
	if a.Slug != "" {
		fields = append(fields, lower(a.Slug))
	}
	for _, s := range a.Synonyms {
		if s.Text != "" {
			fields = append(fields, lower(s.Text))
		}
	}
	return fields
}

// lower is plain Unicode lower-casing. It does not fold: "ß" stays "ß".
// A Caser carries state, so each call gets its own.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}
