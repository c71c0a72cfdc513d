// Package domain holds the core data model of the song-request engine.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Track represents a resolved catalog track.
type Track struct {
	URI        string   `json:"uri"`
	Title      string   `json:"title"`
	Artists    []string `json:"artists"`
	DurationMS int      `json:"duration_ms"`
	CoverURL   string   `json:"cover_url,omitempty"`
}

// Artist returns the display artist string (all artists joined).
func (t Track) Artist() string {
	return strings.Join(t.Artists, ", ")
}

// FullName returns "Title - Artist" for chat and log output.
func (t Track) FullName() string {
	return fmt.Sprintf("%s - %s", t.Title, t.Artist())
}

// Duration returns the track length as a time.Duration.
func (t Track) Duration() time.Duration {
	return time.Duration(t.DurationMS) * time.Millisecond
}

// DurationString returns the formatted track length (M:SS).
func (t Track) DurationString() string {
	total := t.DurationMS / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
