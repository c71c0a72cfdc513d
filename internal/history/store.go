// Package history persists the play history in Redis and derives channel
// statistics from it.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Brunsben/TwitchSpotifySRBot/internal/domain"
	apperrors "github.com/Brunsben/TwitchSpotifySRBot/pkg/errors"
	"github.com/Brunsben/TwitchSpotifySRBot/pkg/logger"
)

const (
	historyKey = "srbot:history"

	// maxEntries caps the list; older plays fall off the end.
	maxEntries = 500
)

// Entry is one played (or skipped) track. RequestedBy is empty for
// autopilot playback.
type Entry struct {
	URI         string    `json:"uri"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	RequestedBy string    `json:"requested_by,omitempty"`
	PlayedAt    time.Time `json:"played_at"`
	Skipped     bool      `json:"skipped,omitempty"`
}

// Store records plays into a capped Redis list, newest first.
type Store struct {
	rdb *redis.Client
	log logger.Logger
}

// NewStore creates a history store.
func NewStore(rdb *redis.Client, log logger.Logger) *Store {
	return &Store{rdb: rdb, log: log}
}

// Record pushes a new entry and trims the list to its cap.
func (s *Store) Record(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return apperrors.ErrInternal.WithError(err)
	}

	pipe := s.rdb.Pipeline()
	pipe.LPush(ctx, historyKey, data)
	pipe.LTrim(ctx, historyKey, 0, maxEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.ErrUpstream.WithError(fmt.Errorf("record history: %w", err))
	}
	return nil
}

// MarkSkipped flags the most recent entry as skipped.
func (s *Store) MarkSkipped(ctx context.Context) error {
	raw, err := s.rdb.LIndex(ctx, historyKey, 0).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return apperrors.ErrUpstream.WithError(err)
	}

	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return apperrors.ErrInternal.WithError(err)
	}
	e.Skipped = true

	data, err := json.Marshal(e)
	if err != nil {
		return apperrors.ErrInternal.WithError(err)
	}
	if err := s.rdb.LSet(ctx, historyKey, 0, data).Err(); err != nil {
		return apperrors.ErrUpstream.WithError(err)
	}
	return nil
}

// Recent returns the latest n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = 10
	}
	raws, err := s.rdb.LRange(ctx, historyKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, apperrors.ErrUpstream.WithError(err)
	}
	return decodeEntries(raws, s.log), nil
}

// CountItem is one ranked aggregation row.
type CountItem struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stats summarizes the retained history.
type Stats struct {
	TotalPlayed   int         `json:"total_played"`
	TotalSkipped  int         `json:"total_skipped"`
	SkipRate      float64     `json:"skip_rate"`
	TopSongs      []CountItem `json:"top_songs"`
	TopRequesters []CountItem `json:"top_requesters"`
	TopArtists    []CountItem `json:"top_artists"`
}

// topN is how many rows each ranking keeps.
const topN = 5

// Stats aggregates the retained history. Autopilot plays count toward
// totals and song/artist rankings but have no requester.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	raws, err := s.rdb.LRange(ctx, historyKey, 0, -1).Result()
	if err != nil {
		return nil, apperrors.ErrUpstream.WithError(err)
	}
	entries := decodeEntries(raws, s.log)

	stats := &Stats{TotalPlayed: len(entries)}
	songs := map[string]int{}
	requesters := map[string]int{}
	artists := map[string]int{}

	for _, e := range entries {
		if e.Skipped {
			stats.TotalSkipped++
		}
		songs[fmt.Sprintf("%s - %s", e.Title, e.Artist)]++
		if e.RequestedBy != "" {
			requesters[strings.ToLower(e.RequestedBy)]++
		}
		if e.Artist != "" {
			artists[e.Artist]++
		}
	}

	if stats.TotalPlayed > 0 {
		stats.SkipRate = float64(stats.TotalSkipped) / float64(stats.TotalPlayed)
	}
	stats.TopSongs = rank(songs, topN)
	stats.TopRequesters = rank(requesters, topN)
	stats.TopArtists = rank(artists, topN)
	return stats, nil
}

// EntryFor builds a history entry for a track that just started.
func EntryFor(track domain.Track, requestedBy string, at time.Time) Entry {
	return Entry{
		URI:         track.URI,
		Title:       track.Title,
		Artist:      track.Artist(),
		RequestedBy: requestedBy,
		PlayedAt:    at,
	}
}

func decodeEntries(raws []string, log logger.Logger) []Entry {
	out := make([]Entry, 0, len(raws))
	for _, raw := range raws {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			log.Warn("skipping corrupt history entry", logger.Error(err))
			continue
		}
		out = append(out, e)
	}
	return out
}

func rank(counts map[string]int, n int) []CountItem {
	items := make([]CountItem, 0, len(counts))
	for name, count := range counts {
		items = append(items, CountItem{Name: name, Count: count})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Name < items[j].Name
	})
	if len(items) > n {
		items = items[:n]
	}
	return items
}
