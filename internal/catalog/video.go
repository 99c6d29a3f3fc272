package catalog

import (
	"errors"
	"strings"
)

// DefaultMediaBase is where relative video locators live.
const DefaultMediaBase = "https://animethemes.moe"

var ErrNoVideo = errors.New("no video available")

// BestVideo picks the variant that starts playing fastest: webm over other
// containers, then the smaller file when both sizes are known, else the
// lower resolution when both are known. Remaining ties keep encounter order.
// Videos without a locator are ignored.
func BestVideo(theme Theme, mediaBase string) (string, error) {
	var (
		best  Video
		found bool
	)
	for _, entry := range theme.Entries {
		for _, v := range entry.Videos {
			if v.Locator() == "" {
				continue
			}
			if !found || better(v, best) {
				best, found = v, true
			}
		}
	}
	if !found {
		return "", ErrNoVideo
	}
	return resolveLocator(best.Locator(), mediaBase), nil
}

// better reports whether a strictly outranks b.
func better(a, b Video) bool {
	aw, bw := isWebM(a), isWebM(b)
	if aw != bw {
		return aw
	}
	if a.Size > 0 && b.Size > 0 {
		return a.Size < b.Size
	}
	if a.Resolution > 0 && b.Resolution > 0 {
		return a.Resolution < b.Resolution
	}
	return false
}

func isWebM(v Video) bool {
	if c := v.Container(); c != "" {
		return strings.Contains(strings.ToLower(c), "webm")
	}
	return strings.HasSuffix(strings.ToLower(v.Locator()), ".webm")
}

func resolveLocator(locator, mediaBase string) string {
	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		return locator
	}
	if mediaBase == "" {
		mediaBase = DefaultMediaBase
	}
	base := strings.TrimRight(mediaBase, "/")
	if !strings.HasPrefix(locator, "/") {
		locator = "/" + locator
	}
	return base + locator
}
