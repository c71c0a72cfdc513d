package broadcast

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brunsben/TwitchSpotifySRBot/internal/domain"
	"github.com/Brunsben/TwitchSpotifySRBot/pkg/logger"
)

func newTestHub() *Hub {
	return NewHub(logger.New(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard}))
}

func track(title string) domain.Track {
	return domain.Track{URI: "spotify:track:" + title, Title: title, Artists: []string{"artist"}}
}

func TestHub_SubscriberGetsCurrentImmediately(t *testing.T) {
	h := newTestHub()
	h.Publish(domain.SnapshotFor(track("one"), "alice"))

	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	select {
	case s := <-ch:
		assert.Equal(t, "one", s.TrackTitle)
		require.NotNil(t, s.Requester)
		assert.Equal(t, "alice", *s.Requester)
	default:
		t.Fatal("expected an immediate snapshot")
	}
}

func TestHub_PublishFansOut(t *testing.T) {
	h := newTestHub()

	a := h.Subscribe()
	b := h.Subscribe()
	<-a
	<-b

	h.Publish(domain.SnapshotFor(track("one"), ""))

	for _, ch := range []chan domain.Snapshot{a, b} {
		s := <-ch
		assert.Equal(t, "one", s.TrackTitle)
		assert.Nil(t, s.Requester, "autopilot playback has no requester")
	}
}

func TestHub_EqualSnapshotSuppressed(t *testing.T) {
	h := newTestHub()
	ch := h.Subscribe()
	<-ch

	snap := domain.SnapshotFor(track("one"), "alice")
	h.Publish(snap)
	<-ch
	h.Publish(snap)

	select {
	case <-ch:
		t.Fatal("duplicate snapshot should not be delivered")
	default:
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	h := newTestHub()
	_ = h.Subscribe()
	// Never drained: fill the buffer and keep publishing.
	for i := 0; i < subscriberBuffer+5; i++ {
		h.Publish(domain.SnapshotFor(track(string(rune('a'+i))), ""))
	}
	assert.Equal(t, 1, h.SubscriberCount())
	assert.Equal(t, string(rune('a'+subscriberBuffer+4)), h.Current().TrackTitle)
}

func TestHub_Unsubscribe(t *testing.T) {
	h := newTestHub()
	ch := h.Subscribe()
	<-ch
	h.Unsubscribe(ch)
	assert.Equal(t, 0, h.SubscriberCount())

	_, open := <-ch
	assert.False(t, open)

	// Double unsubscribe is safe.
	h.Unsubscribe(ch)
}
