package gate

import (
	"strings"
	"sync"

	"github.com/Brunsben/TwitchSpotifySRBot/internal/config"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/domain"
)

// Blacklist holds the runtime block patterns. It is seeded from config
// and mutated by moderator commands; matching is case-insensitive
// substring matching against the track title or its artists.
type Blacklist struct {
	mu      sync.RWMutex
	entries []config.BlacklistEntry
}

// NewBlacklist creates a blacklist seeded with the configured entries.
func NewBlacklist(seed []config.BlacklistEntry) *Blacklist {
	b := &Blacklist{}
	for _, e := range seed {
		b.entries = append(b.entries, normalizeEntry(e))
	}
	return b
}

func normalizeEntry(e config.BlacklistEntry) config.BlacklistEntry {
	e.Pattern = strings.ToLower(strings.TrimSpace(e.Pattern))
	e.Type = strings.ToLower(strings.TrimSpace(e.Type))
	return e
}

// Add registers a pattern. Duplicate patterns of the same type are a
// no-op; the returned bool reports whether the entry was added.
func (b *Blacklist) Add(pattern, kind string) bool {
	entry := normalizeEntry(config.BlacklistEntry{Pattern: pattern, Type: kind})
	if entry.Pattern == "" {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.entries {
		if e.Pattern == entry.Pattern && e.Type == entry.Type {
			return false
		}
	}
	b.entries = append(b.entries, entry)
	return true
}

// Remove deletes every entry with the given pattern, any type.
func (b *Blacklist) Remove(pattern string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))

	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.entries[:0]
	removed := false
	for _, e := range b.entries {
		if e.Pattern == pattern {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	b.entries = kept
	return removed
}

// List returns a copy of the current entries.
func (b *Blacklist) List() []config.BlacklistEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]config.BlacklistEntry(nil), b.entries...)
}

// Match returns the first entry matching the track, if any.
func (b *Blacklist) Match(track domain.Track) (config.BlacklistEntry, bool) {
	title := strings.ToLower(track.Title)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, e := range b.entries {
		switch e.Type {
		case "song":
			if strings.Contains(title, e.Pattern) {
				return e, true
			}
		case "artist":
			for _, a := range track.Artists {
				if strings.Contains(strings.ToLower(a), e.Pattern) {
					return e, true
				}
			}
		}
	}
	return config.BlacklistEntry{}, false
}
