package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrack_Display(t *testing.T) {
	track := Track{
		URI:        "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
		Title:      "Never Gonna Give You Up",
		Artists:    []string{"Rick Astley"},
		DurationMS: 213573,
	}

	assert.Equal(t, "Rick Astley", track.Artist())
	assert.Equal(t, "Never Gonna Give You Up - Rick Astley", track.FullName())
	assert.Equal(t, "3:33", track.DurationString())
}

func TestTrack_MultipleArtists(t *testing.T) {
	track := Track{Title: "Song", Artists: []string{"A", "B"}}
	assert.Equal(t, "A, B", track.Artist())
}

func TestRequest_Voting(t *testing.T) {
	req := &Request{Voters: []string{"alice"}}

	assert.Equal(t, 1, req.Votes())
	assert.True(t, req.HasVoter("alice"))
	assert.True(t, req.HasVoter("Alice"), "voter check is case-insensitive")

	assert.True(t, req.AddVoter("bob"))
	assert.Equal(t, 2, req.Votes())

	assert.False(t, req.AddVoter("bob"), "repeated vote is a no-op")
	assert.Equal(t, 2, req.Votes())
}

func TestRequest_VotersLabel(t *testing.T) {
	req := &Request{Voters: []string{"a", "b", "c", "d", "e"}}
	assert.Equal(t, "a, b, c (+2 more)", req.VotersLabel(3))
	assert.Equal(t, "a, b, c, d, e", req.VotersLabel(0))

	empty := &Request{}
	assert.Equal(t, "", empty.VotersLabel(3))
}

func TestRequest_Clone(t *testing.T) {
	req := &Request{
		ID:     "r1",
		Track:  Track{Artists: []string{"A"}},
		Voters: []string{"alice"},
	}
	cp := req.Clone()
	cp.Voters[0] = "mallory"
	cp.Track.Artists[0] = "B"

	assert.Equal(t, "alice", req.Voters[0], "clone must not share voter slice")
	assert.Equal(t, "A", req.Track.Artists[0], "clone must not share artist slice")
}

func TestTierFlags_Effective(t *testing.T) {
	tests := []struct {
		name  string
		flags TierFlags
		want  Tier
	}{
		{"none", TierFlags{}, TierEveryone},
		{"follower", TierFlags{Follower: true}, TierFollower},
		{"subscriber wins over follower", TierFlags{Follower: true, Subscriber: true}, TierSubscriber},
		{"moderator", TierFlags{Moderator: true}, TierModerator},
		{"broadcaster wins over all", TierFlags{Broadcaster: true, Moderator: true}, TierBroadcaster},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.flags.Effective())
		})
	}
}

func TestTierOrdering(t *testing.T) {
	assert.True(t, TierEveryone < TierFollower)
	assert.True(t, TierFollower < TierSubscriber)
	assert.True(t, TierSubscriber < TierModerator)
	assert.True(t, TierModerator < TierBroadcaster)
}

func TestParseTier(t *testing.T) {
	assert.Equal(t, TierModerator, ParseTier("Moderator"))
	assert.Equal(t, TierSubscriber, ParseTier("vip"))
	assert.Equal(t, TierEveryone, ParseTier("garbage"))
}

func TestSnapshot(t *testing.T) {
	track := Track{Title: "Song", Artists: []string{"Artist"}, CoverURL: "https://img/c.jpg"}

	s := SnapshotFor(track, "alice")
	assert.True(t, s.Playing())
	assert.Equal(t, "Song", s.TrackTitle)
	assert.Equal(t, "Artist", s.Artist)
	if assert.NotNil(t, s.CoverURL) {
		assert.Equal(t, "https://img/c.jpg", *s.CoverURL)
	}
	if assert.NotNil(t, s.Requester) {
		assert.Equal(t, "alice", *s.Requester)
	}

	auto := SnapshotFor(Track{Title: "Bg"}, "")
	assert.Nil(t, auto.Requester, "autopilot snapshot has no requester")
	assert.Nil(t, auto.CoverURL)

	assert.False(t, NothingPlaying().Playing())
}
