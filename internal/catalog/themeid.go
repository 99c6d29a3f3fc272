package catalog

import (
	"strconv"
	"strings"
)

// ThemeID builds the stable key ratings are stored under:
// "<animeName>_<type>_<sequence>_<slug>". Missing parts default to
// "Unknown", "OP", 0 and "".
//
// The key embeds the display name, so a rename upstream orphans existing
// ratings. Kept as-is because stored rows already use this form.
func ThemeID(animeName string, theme Theme) string {
	name := animeName
	if name == "" {
		name = "Unknown"
	}
	kind := theme.Type
	if kind == "" {
		kind = ThemeOpening
	}
	return name + "_" + kind + "_" + strconv.Itoa(theme.Sequence) + "_" + theme.Slug
}

// ParseThemeIDName returns the leading name segment of a theme id. Names
// containing '_' come back truncated; callers prefer stored metadata.
func ParseThemeIDName(id string) string {
	name, _, _ := strings.Cut(id, "_")
	return name
}
