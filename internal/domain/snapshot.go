package domain

// Snapshot is the immutable now-playing state published to display
// subscribers. A zero-value snapshot means nothing is playing.
type Snapshot struct {
	TrackTitle string  `json:"trackTitle"`
	Artist     string  `json:"artist"`
	CoverURL   *string `json:"coverUrl"`
	Requester  *string `json:"requester"`
}

// NothingPlaying returns the empty snapshot.
func NothingPlaying() Snapshot {
	return Snapshot{}
}

// SnapshotFor builds a snapshot for a playing track. requester is empty
// for autopilot playback.
func SnapshotFor(track Track, requester string) Snapshot {
	s := Snapshot{
		TrackTitle: track.Title,
		Artist:     track.Artist(),
	}
	if track.CoverURL != "" {
		cover := track.CoverURL
		s.CoverURL = &cover
	}
	if requester != "" {
		r := requester
		s.Requester = &r
	}
	return s
}

// Playing reports whether the snapshot represents an active track.
func (s Snapshot) Playing() bool {
	return s.TrackTitle != ""
}
