package catalog

import "strings"

// Types mirror the animethemes.moe resource shapes once includes are
// flattened. Optional fields are pointers or zero values; the upstream omits
// anything that was not requested through include=.

// Theme type tags
const (
	ThemeOpening = "OP"
	ThemeEnding  = "ED"
)

// Synonym kinds the catalog uses
const (
	SynonymEnglish      = "English"
	SynonymEnglishShort = "English Short"
	SynonymOther        = "Other"
)

type Anime struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Year        int       `json:"year,omitempty"`
	Season      string    `json:"season,omitempty"`
	MediaFormat string    `json:"media_format,omitempty"`
	Synopsis    string    `json:"synopsis,omitempty"`
	Synonyms    []Synonym `json:"animesynonyms,omitempty"`
	Themes      []Theme   `json:"animethemes,omitempty"`
	Images      []Image   `json:"images,omitempty"`
}

type Synonym struct {
	ID   int64  `json:"id,omitempty"`
	Type string `json:"type"`
	Text string `json:"text"`
}

type Theme struct {
	ID       int64   `json:"id,omitempty"`
	Type     string  `json:"type"`
	Sequence int     `json:"sequence"`
	Slug     string  `json:"slug"`
	Song     *Song   `json:"song,omitempty"`
	Entries  []Entry `json:"animethemeentries,omitempty"`
}

type Song struct {
	Title   string   `json:"title"`
	Artists []Artist `json:"artists,omitempty"`
}

type Artist struct {
	Name string `json:"name"`
}

type Entry struct {
	ID      int64   `json:"id,omitempty"`
	Version int     `json:"version,omitempty"`
	Videos  []Video `json:"videos,omitempty"`
}

// Video is one encoding of an entry. Older payloads carry "mime", newer ones
// "mimetype"; Container reads whichever is present.
type Video struct {
	Basename   string `json:"basename,omitempty"`
	Link       string `json:"link,omitempty"`
	Mime       string `json:"mime,omitempty"`
	MimeType   string `json:"mimetype,omitempty"`
	Resolution int    `json:"resolution,omitempty"`
	Size       int64  `json:"size,omitempty"`
}

type Image struct {
	Facet string `json:"facet"`
	Link  string `json:"link"`
}

// Locator returns the playable link, falling back to the basename.
func (v Video) Locator() string {
	if v.Link != "" {
		return v.Link
	}
	return v.Basename
}

func (v Video) Container() string {
	if v.MimeType != "" {
		return v.MimeType
	}
	return v.Mime
}

// HasIncludes reports whether theme data came back with the anime.
func (a Anime) HasIncludes() bool {
	return len(a.Themes) > 0
}

// ArtistNames joins the song's artists for display.
func (s *Song) ArtistNames() string {
	if s == nil {
		return ""
	}
	names := make([]string, 0, len(s.Artists))
	for _, a := range s.Artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return strings.Join(names, ", ")
}

// HasVideos reports whether any entry of the theme carries at least one video.
func (t Theme) HasVideos() bool {
	for _, e := range t.Entries {
		if len(e.Videos) > 0 {
			return true
		}
	}
	return false
}

// Openings returns the anime's opening themes that have something to play.
func (a Anime) Openings() []Theme {
	var out []Theme
	for _, t := range a.Themes {
		if t.Type == ThemeOpening && t.HasVideos() {
			out = append(out, t)
		}
	}
	return out
}
