// Package broadcast fans out now-playing snapshots to display
// subscribers (overlay websockets, HTTP polling).
package broadcast

import (
	"sync"

	"github.com/Brunsben/TwitchSpotifySRBot/internal/domain"
	"github.com/Brunsben/TwitchSpotifySRBot/pkg/logger"
)

// subscriberBuffer is the per-subscriber channel depth. A subscriber that
// falls further behind loses updates rather than stalling the publisher.
const subscriberBuffer = 8

// Hub retains the latest snapshot and distributes updates. Publishing
// never blocks on a slow subscriber.
type Hub struct {
	mu      sync.Mutex
	current domain.Snapshot
	subs    map[chan domain.Snapshot]struct{}
	log     logger.Logger
}

// NewHub creates a hub with the nothing-playing snapshot as current.
func NewHub(log logger.Logger) *Hub {
	return &Hub{
		current: domain.NothingPlaying(),
		subs:    make(map[chan domain.Snapshot]struct{}),
		log:     log,
	}
}

// Subscribe registers a new subscriber. The current snapshot is delivered
// immediately so late joiners render without waiting for the next change.
func (h *Hub) Subscribe() chan domain.Snapshot {
	ch := make(chan domain.Snapshot, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[ch] = struct{}{}
	ch <- h.current
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(ch chan domain.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// Publish replaces the current snapshot and fans it out. Equal snapshots
// are suppressed so subscribers only see actual transitions.
func (h *Hub) Publish(s domain.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if snapshotsEqual(h.current, s) {
		return
	}
	h.current = s

	for ch := range h.subs {
		select {
		case ch <- s:
		default:
			h.log.Debug("dropping snapshot for slow subscriber")
		}
	}
}

// Current returns the latest published snapshot.
func (h *Hub) Current() domain.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func snapshotsEqual(a, b domain.Snapshot) bool {
	return a.TrackTitle == b.TrackTitle &&
		a.Artist == b.Artist &&
		strPtrEqual(a.CoverURL, b.CoverURL) &&
		strPtrEqual(a.Requester, b.Requester)
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
