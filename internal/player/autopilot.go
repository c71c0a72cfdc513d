package player

import (
	"math/rand"
	"sync"

	"github.com/Brunsben/TwitchSpotifySRBot/internal/domain"
)

// maxAutopilotFailures is how many consecutive playback failures damp
// the autopilot. A damped autopilot stays quiet until the next playlist
// refresh so a dead device does not cause a play-fail loop.
const maxAutopilotFailures = 3

// Autopilot cycles through a fallback playlist whenever the queue runs
// dry. Each track plays once per cycle; in shuffle mode the order is
// reshuffled at the start of every cycle.
type Autopilot struct {
	mu       sync.Mutex
	tracks   []domain.Track
	order    []int
	pos      int
	failures int
	shuffle  bool
}

// NewAutopilot creates an autopilot with no tracks loaded.
func NewAutopilot(shuffle bool) *Autopilot {
	return &Autopilot{shuffle: shuffle}
}

// SetTracks replaces the playlist and clears any damping.
func (a *Autopilot) SetTracks(tracks []domain.Track) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.tracks = append([]domain.Track(nil), tracks...)
	a.order = nil
	a.pos = 0
	a.failures = 0
}

// Next returns the next fallback track. The second return value is false
// when the playlist is empty or the autopilot is damped.
func (a *Autopilot) Next() (domain.Track, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.tracks) == 0 || a.failures >= maxAutopilotFailures {
		return domain.Track{}, false
	}

	if a.pos >= len(a.order) {
		a.order = make([]int, len(a.tracks))
		for i := range a.order {
			a.order[i] = i
		}
		if a.shuffle {
			rand.Shuffle(len(a.order), func(i, j int) {
				a.order[i], a.order[j] = a.order[j], a.order[i]
			})
		}
		a.pos = 0
	}

	track := a.tracks[a.order[a.pos]]
	a.pos++
	return track, true
}

// RecordFailure notes a failed fallback playback attempt.
func (a *Autopilot) RecordFailure() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures++
}

// RecordSuccess clears the failure streak.
func (a *Autopilot) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures = 0
}

// Ready reports whether the autopilot can currently supply tracks.
func (a *Autopilot) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.tracks) > 0 && a.failures < maxAutopilotFailures
}
