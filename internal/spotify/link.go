package spotify

import (
	"regexp"
	"strings"
)

// Track links come in three shapes:
//
//	https://open.spotify.com/track/<id>
//	https://open.spotify.com/intl-de/track/<id>
//	spotify:track:<id>
//
// Query strings (the share "?si=" suffix) are ignored.
var trackLinkRe = regexp.MustCompile(`open\.spotify\.com/(?:intl-[a-z]{2}/)?track/([0-9A-Za-z]+)`)

// ParseTrackID extracts the track id from a link or URI. The second
// return value is false when the input is not a track link and should be
// treated as a free-text search query.
func ParseTrackID(input string) (string, bool) {
	input = strings.TrimSpace(input)

	if id, ok := strings.CutPrefix(input, "spotify:track:"); ok {
		id = strings.SplitN(id, "?", 2)[0]
		if id != "" {
			return id, true
		}
		return "", false
	}

	if m := trackLinkRe.FindStringSubmatch(input); m != nil {
		return m[1], true
	}
	return "", false
}

// TrackURI builds the canonical playback URI for a track id.
func TrackURI(id string) string {
	return "spotify:track:" + id
}
