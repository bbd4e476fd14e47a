package xtream

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/voyagen/xtreamrelay/internal/models"
)

// WritePlaylist writes channels as an extended M3U document and returns the
// number of entries written. Channels without a playable URL are skipped.
func WritePlaylist(w io.Writer, channels []models.Channel) (int, error) {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("#EXTM3U\n"); err != nil {
		return 0, err
	}
	n := 0
	for _, ch := range channels {
		if ch.M3U8URL == "" {
			continue
		}
		if _, err := fmt.Fprintf(bw, "#EXTINF:-1 tvg-id=\"%s\" tvg-name=\"%s\" tvg-logo=\"%s\",%s\n%s\n",
			attr(ch.StreamID.String()), attr(ch.Name), attr(ch.StreamIcon), oneLine(ch.Name), ch.M3U8URL,
		); err != nil {
			return n, err
		}
		n++
	}
	return n, bw.Flush()
}

// attr makes v safe inside a double-quoted EXTINF attribute.
func attr(v string) string {
	return strings.ReplaceAll(oneLine(v), `"`, `'`)
}

func oneLine(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
