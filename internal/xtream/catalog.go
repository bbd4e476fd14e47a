package xtream

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/voyagen/xtreamrelay/internal/models"
)

// PlayableExt is appended to the direct source to form the playable URL.
const PlayableExt = ".m3u8"

// DirectSource returns {server}/live/{username}/{password}/{streamID}.
// Segments are written as the provider spells them; see pathSegment.
func DirectSource(creds models.Credentials, streamID models.ID) string {
	return creds.Server + "/live/" +
		pathSegment(creds.Username) + "/" +
		pathSegment(creds.Password) + "/" +
		pathSegment(streamID.String())
}

// PlayableURL returns DirectSource with PlayableExt appended.
func PlayableURL(creds models.Credentials, streamID models.ID) string {
	return DirectSource(creds, streamID) + PlayableExt
}

// DeriveURLs overwrites the derived URL fields of every channel in place.
// Whatever the upstream sent in those fields is discarded; channels without
// a stream id end up with none.
func DeriveURLs(creds models.Credentials, channels []models.Channel) {
	for i := range channels {
		ch := &channels[i]
		if !ch.StreamID.Present() {
			ch.DirectSource, ch.StreamURL, ch.M3U8URL = "", "", ""
			continue
		}
		ch.DirectSource = DirectSource(creds, ch.StreamID)
		ch.StreamURL = ch.DirectSource
		ch.M3U8URL = ch.DirectSource + PlayableExt
	}
}

// pathSegment percent-encodes only the bytes that would end the path or
// break URL parsing: controls, space, '?', '#' and '%'. Everything else,
// including '/', ',' and ';', is kept literally as provider panels do.
func pathSegment(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c <= ' ', c == 0x7f, c == '?', c == '#', c == '%':
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0f])
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// FilterByName keeps channels whose name contains term, ignoring case.
// An empty term keeps everything.
func FilterByName(channels []models.Channel, term string) []models.Channel {
	if strings.TrimSpace(term) == "" {
		return channels
	}
	fold := cases.Fold()
	needle := fold.String(term)
	out := make([]models.Channel, 0, len(channels))
	for _, ch := range channels {
		if strings.Contains(fold.String(ch.Name), needle) {
			out = append(out, ch)
		}
	}
	return out
}

// SortCategories orders categories by name (case-sensitive, stable).
func SortCategories(cats []models.Category) {
	slices.SortStableFunc(cats, func(a, b models.Category) int {
		return strings.Compare(a.CategoryName, b.CategoryName)
	})
}

// SortChannels orders channels by name (case-sensitive, stable).
func SortChannels(channels []models.Channel) {
	slices.SortStableFunc(channels, func(a, b models.Channel) int {
		return strings.Compare(a.Name, b.Name)
	})
}
