package catalog

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Result is one anime with the openings that can actually be played.
type Result struct {
	Anime    Anime   `json:"anime"`
	Openings []Theme `json:"openings"`
}

// SortMode orders a result list.
type SortMode string

const (
	SortRelevance    SortMode = "relevance"
	SortRatingDesc   SortMode = "rating-desc"
	SortRatingAsc    SortMode = "rating-asc"
	SortYearDesc     SortMode = "year-desc"
	SortYearAsc      SortMode = "year-asc"
	SortAlphabetical SortMode = "alphabetical"
	SortPopularity   SortMode = "popularity"
)

// ParseSortMode maps user input to a SortMode; empty means relevance.
func ParseSortMode(s string) (SortMode, error) {
	switch m := SortMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return SortRelevance, nil
	case SortRelevance, SortRatingDesc, SortRatingAsc, SortYearDesc, SortYearAsc, SortAlphabetical, SortPopularity:
		return m, nil
	default:
		return "", fmt.Errorf("unknown sort mode %q", s)
	}
}

// Filters narrows results. Nil bounds are open.
type Filters struct {
	YearMin   *int
	YearMax   *int
	Seasons   []string
	RatingMin *float64
	RatingMax *float64
}

func (f Filters) hasRatingBounds() bool {
	return f.RatingMin != nil || f.RatingMax != nil
}

// RatingSummary is the public aggregate for one theme.
type RatingSummary struct {
	Count   int64
	Average float64
}

// RatingLookup resolves the rating shown for a theme: the caller's own
// rating when there is one, the public average otherwise.
type RatingLookup struct {
	Local  map[string]float64
	Public map[string]RatingSummary
}

func (r RatingLookup) Rating(themeID string) (float64, bool) {
	if v, ok := r.Local[themeID]; ok {
		return v, true
	}
	if s, ok := r.Public[themeID]; ok && s.Count > 0 {
		return s.Average, true
	}
	return 0, false
}

func (r RatingLookup) Count(themeID string) int64 {
	return r.Public[themeID].Count
}

// Group turns matched anime into results, dropping anime with no playable
// opening. Openings are ordered by sequence.
func Group(items []Anime) []Result {
	out := make([]Result, 0, len(items))
	for _, a := range items {
		openings := a.Openings()
		if len(openings) == 0 {
			continue
		}
		sort.SliceStable(openings, func(i, j int) bool {
			return openings[i].Sequence < openings[j].Sequence
		})
		out = append(out, Result{Anime: a, Openings: openings})
	}
	return out
}

// Apply filters results and sorts them in place of a copy.
func Apply(results []Result, filters Filters, mode SortMode, ratings RatingLookup) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if keep(r, filters, ratings) {
			out = append(out, r)
		}
	}
	sortResults(out, mode, ratings)
	return out
}

func keep(r Result, f Filters, ratings RatingLookup) bool {
	year := r.Anime.Year
	if f.YearMin != nil && year != 0 && year < *f.YearMin {
		return false
	}
	if f.YearMax != nil && year != 0 && year > *f.YearMax {
		return false
	}

	if len(f.Seasons) > 0 {
		season := strings.ToLower(r.Anime.Season)
		found := false
		for _, s := range f.Seasons {
			if s != "" && strings.Contains(season, strings.ToLower(s)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if !f.hasRatingBounds() {
		return true
	}
	for _, t := range r.Openings {
		v, ok := ratings.Rating(ThemeID(r.Anime.Name, t))
		if !ok {
			continue
		}
		if f.RatingMin != nil && v < *f.RatingMin {
			continue
		}
		if f.RatingMax != nil && v > *f.RatingMax {
			continue
		}
		return true
	}
	return false
}

func sortResults(results []Result, mode SortMode, ratings RatingLookup) {
	switch mode {
	case SortRatingDesc:
		sort.SliceStable(results, func(i, j int) bool {
			return maxRating(results[i], ratings) > maxRating(results[j], ratings)
		})
	case SortRatingAsc:
		sort.SliceStable(results, func(i, j int) bool {
			return maxRating(results[i], ratings) < maxRating(results[j], ratings)
		})
	case SortYearDesc:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Anime.Year > results[j].Anime.Year
		})
	case SortYearAsc:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Anime.Year < results[j].Anime.Year
		})
	case SortAlphabetical:
		c := collate.New(language.English, collate.IgnoreCase)
		sort.SliceStable(results, func(i, j int) bool {
			return c.CompareString(results[i].Anime.Name, results[j].Anime.Name) < 0
		})
	case SortPopularity:
		sort.SliceStable(results, func(i, j int) bool {
			return totalCount(results[i], ratings) > totalCount(results[j], ratings)
		})
	}
}

// maxRating is the best rating among a result's openings, 0 when none is
// rated.
func maxRating(r Result, ratings RatingLookup) float64 {
	best := 0.0
	for _, t := range r.Openings {
		if v, ok := ratings.Rating(ThemeID(r.Anime.Name, t)); ok && v > best {
			best = v
		}
	}
	return best
}

func totalCount(r Result, ratings RatingLookup) int64 {
	var total int64
	for _, t := range r.Openings {
		total += ratings.Count(ThemeID(r.Anime.Name, t))
	}
	return total
}

// Page is one slice of a result list.
type Page struct {
	Items      []Result `json:"items"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	Total      int      `json:"total"`
	TotalPages int      `json:"totalPages"`
}

// Paginate cuts results into pages of size, 1-based. Out-of-range pages
// come back empty with the totals still set.
func Paginate(results []Result, page, size int) Page {
	if size <= 0 {
		size = 20
	}
	if page <= 0 {
		page = 1
	}
	total := len(results)
	p := Page{
		Items:      []Result{},
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: total / size,
	}
	if total%size != 0 {
		p.TotalPages++
	}
	// compare before multiplying; a huge page would overflow start
	if page-1 >= p.TotalPages {
		return p
	}
	start := (page - 1) * size
	end := min(start+size, total)
	p.Items = results[start:end]
	return p
}

// EnglishTitle picks the display title for English readers: the "English
// Short" synonym, else an ASCII "Other" synonym, else any "Other" synonym.
func EnglishTitle(a Anime) string {
	var other string
	for _, s := range a.Synonyms {
		if s.Type == SynonymEnglishShort && s.Text != "" {
			return s.Text
		}
	}
	for _, s := range a.Synonyms {
		if s.Type != SynonymOther || s.Text == "" {
			continue
		}
		if isASCII(s.Text) {
			return s.Text
		}
		if other == "" {
			other = s.Text
		}
	}
	return other
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
