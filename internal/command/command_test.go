package command

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brunsben/TwitchSpotifySRBot/internal/broadcast"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/config"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/domain"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/gate"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/history"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/player"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/queue"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/spotify"
	apperrors "github.com/Brunsben/TwitchSpotifySRBot/pkg/errors"
	"github.com/Brunsben/TwitchSpotifySRBot/pkg/logger"
)

type fakeCatalog struct {
	tracks map[string]domain.Track
}

func (f *fakeCatalog) Resolve(_ context.Context, query string) (domain.Track, error) {
	if t, ok := f.tracks[query]; ok {
		return t, nil
	}
	return domain.Track{}, apperrors.ErrNotFound
}

type fakeTransport struct{}

func (fakeTransport) Play(context.Context, string) error { return nil }
func (fakeTransport) Pause(context.Context) error        { return nil }
func (fakeTransport) Resume(context.Context) error       { return nil }
func (fakeTransport) GetPlayerState(context.Context) (*spotify.PlayerState, error) {
	return &spotify.PlayerState{Playing: true}, nil
}

type fakeStats struct {
	stats *history.Stats
}

func (f *fakeStats) Stats(context.Context) (*history.Stats, error) {
	return f.stats, nil
}

type cmdFixture struct {
	dispatcher *Dispatcher
	queue      *queue.Store
	orch       *player.Orchestrator
	stats      *fakeStats
}

func newCmdFixture(t *testing.T) *cmdFixture {
	t.Helper()

	cfg := &config.Config{
		Twitch: config.TwitchConfig{CommandPrefix: "!"},
		Rules: config.RulesConfig{
			MaxQueueSize:  20,
			MaxPerUser:    3,
			MaxSongLength: 10 * time.Minute,
			SmartVoting:   true,
		},
	}
	cfgStore := config.NewStore(cfg, nil)
	log := logger.New(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})

	q := queue.NewStore(func() config.RulesConfig { return cfgStore.Current().Rules })
	bl := gate.NewBlacklist(nil)
	catalog := &fakeCatalog{tracks: map[string]domain.Track{
		"some song": {URI: "spotify:track:a", Title: "Some Song", Artists: []string{"Artist"}, DurationMS: 200000},
		"other song": {URI: "spotify:track:b", Title: "Other Song", Artists: []string{"Artist"}, DurationMS: 200000},
	}}
	g := gate.New(cfgStore, q, bl, gate.NewCooldownLedger(), catalog, log)
	orch := player.New(q, fakeTransport{}, player.NewAutopilot(false), broadcast.NewHub(log), nil, log)
	stats := &fakeStats{stats: &history.Stats{}}

	d := NewDispatcher(cfgStore, log)
	NewHandlers(cfgStore, g, q, orch, bl, catalog, stats).RegisterAll(d)

	return &cmdFixture{dispatcher: d, queue: q, orch: orch, stats: stats}
}

func viewer() domain.TierFlags { return domain.TierFlags{} }
func mod() domain.TierFlags    { return domain.TierFlags{Moderator: true} }

func (f *cmdFixture) say(t *testing.T, user string, flags domain.TierFlags, text string) string {
	t.Helper()
	reply, handled := f.dispatcher.Dispatch(context.Background(), user, flags, text)
	require.True(t, handled, "expected %q to be handled", text)
	return reply
}

func TestDispatch_IgnoresNonCommands(t *testing.T) {
	f := newCmdFixture(t)

	_, handled := f.dispatcher.Dispatch(context.Background(), "alice", viewer(), "just chatting")
	assert.False(t, handled)

	_, handled = f.dispatcher.Dispatch(context.Background(), "alice", viewer(), "!notacommand")
	assert.False(t, handled)

	_, handled = f.dispatcher.Dispatch(context.Background(), "alice", viewer(), "!")
	assert.False(t, handled)
}

func TestDispatch_PermissionGate(t *testing.T) {
	f := newCmdFixture(t)

	reply := f.say(t, "alice", viewer(), "!skip")
	assert.Equal(t, apperrors.ErrInsufficientPermission.Message, reply)

	reply = f.say(t, "themod", mod(), "!skip")
	assert.Contains(t, reply, "Skipped")
}

func TestSongRequest_AddAndVote(t *testing.T) {
	f := newCmdFixture(t)

	reply := f.say(t, "alice", viewer(), "!sr some song")
	assert.Contains(t, reply, "Some Song - Artist")
	assert.Contains(t, reply, "position 1")

	reply = f.say(t, "bob", viewer(), "!sr some song")
	assert.Contains(t, reply, "your vote counts")
	assert.Contains(t, reply, "2 votes")
	assert.Equal(t, 1, f.queue.Len())
}

func TestSongRequest_RejectionBecomesReply(t *testing.T) {
	f := newCmdFixture(t)

	reply := f.say(t, "alice", viewer(), "!sr unknown track")
	assert.Equal(t, apperrors.ErrNotFound.Message, reply)

	reply = f.say(t, "alice", viewer(), "!sr")
	assert.Contains(t, reply, "Usage")
}

func TestQueueCommand(t *testing.T) {
	f := newCmdFixture(t)

	assert.Equal(t, "The queue is empty", f.say(t, "alice", viewer(), "!queue"))

	f.say(t, "alice", viewer(), "!sr some song")
	f.say(t, "bob", viewer(), "!sr other song")

	reply := f.say(t, "carol", viewer(), "!queue")
	assert.Contains(t, reply, "1. Some Song - Artist (alice, 1 votes)")
	assert.Contains(t, reply, "2. Other Song - Artist (bob, 1 votes)")
}

func TestSongCommandAndAlias(t *testing.T) {
	f := newCmdFixture(t)

	assert.Equal(t, "Nothing is playing right now", f.say(t, "alice", viewer(), "!song"))

	f.say(t, "alice", viewer(), "!sr some song")
	require.NoError(t, f.orch.Advance(context.Background()))

	reply := f.say(t, "bob", viewer(), "!currentsong")
	assert.Contains(t, reply, "Now playing: Some Song - Artist")
	assert.Contains(t, reply, "requested by alice")
}

func TestWrongSong(t *testing.T) {
	f := newCmdFixture(t)

	assert.Equal(t, "You have no queued requests", f.say(t, "alice", viewer(), "!wrongsong"))

	f.say(t, "alice", viewer(), "!sr some song")
	reply := f.say(t, "alice", viewer(), "!wrongsong")
	assert.Contains(t, reply, "Removed your request")
	assert.Equal(t, 0, f.queue.Len())
}

func TestModerationCommands(t *testing.T) {
	f := newCmdFixture(t)
	f.say(t, "alice", viewer(), "!sr some song")
	require.NoError(t, f.orch.Advance(context.Background()))

	assert.Equal(t, "Playback paused", f.say(t, "themod", mod(), "!pause"))
	assert.Equal(t, "Playback resumed", f.say(t, "themod", mod(), "!resume"))

	f.say(t, "bob", viewer(), "!sr other song")
	assert.Contains(t, f.say(t, "themod", mod(), "!clearqueue"), "Cleared 1 requests")

	assert.Equal(t, "Song requests are now paused", f.say(t, "themod", mod(), "!pauserequests"))
	reply := f.say(t, "carol", viewer(), "!sr other song")
	assert.Equal(t, apperrors.ErrRequestsPaused.Message, reply)
	assert.Equal(t, "Song requests are open again", f.say(t, "themod", mod(), "!resumerequests"))
}

func TestForcePlay(t *testing.T) {
	f := newCmdFixture(t)
	f.say(t, "alice", viewer(), "!sr some song")
	require.NoError(t, f.orch.Advance(context.Background()))

	reply := f.say(t, "themod", mod(), "!forceplay other song")
	assert.Equal(t, "Force playing Other Song - Artist", reply)

	track, _, ok := f.orch.Now()
	require.True(t, ok)
	assert.Equal(t, "spotify:track:b", track.URI)

	// The interrupted request is back at the queue head.
	items := f.queue.List()
	require.Len(t, items, 1)
	assert.Equal(t, "spotify:track:a", items[0].Track.URI)
}

func TestForcePlayByPosition(t *testing.T) {
	f := newCmdFixture(t)
	f.say(t, "alice", viewer(), "!sr some song")
	f.say(t, "bob", viewer(), "!sr other song")

	reply := f.say(t, "themod", mod(), "!forceplay 2")
	assert.Equal(t, "Force playing Other Song - Artist", reply)

	track, cur, ok := f.orch.Now()
	require.True(t, ok)
	assert.Equal(t, "spotify:track:b", track.URI)
	assert.Equal(t, "bob", cur.RequestedBy)
	assert.Equal(t, 1, f.queue.Len())

	assert.Contains(t, f.say(t, "themod", mod(), "!forceplay 9"), "No queue entry")
}

func TestBlacklistCommand(t *testing.T) {
	f := newCmdFixture(t)

	assert.Equal(t, "The blacklist is empty", f.say(t, "themod", mod(), "!blacklist list"))

	reply := f.say(t, "themod", mod(), "!blacklist add artist Rick Astley")
	assert.Contains(t, reply, `Blacklisted artist "rick astley"`)

	reply = f.say(t, "themod", mod(), "!blacklist list")
	assert.Contains(t, reply, "rick astley (artist)")

	reply = f.say(t, "themod", mod(), "!blacklist remove rick astley")
	assert.Contains(t, reply, "Removed")

	assert.Contains(t, f.say(t, "themod", mod(), "!blacklist bogus"), "Usage")
}

func TestStatsCommand(t *testing.T) {
	f := newCmdFixture(t)

	assert.Equal(t, "No play history yet", f.say(t, "alice", viewer(), "!stats"))

	f.stats.stats = &history.Stats{
		TotalPlayed:   10,
		TotalSkipped:  2,
		SkipRate:      0.2,
		TopSongs:      []history.CountItem{{Name: "Hit - Star", Count: 4}},
		TopRequesters: []history.CountItem{{Name: "alice", Count: 6}},
	}
	reply := f.say(t, "alice", viewer(), "!stats")
	assert.Contains(t, reply, "10 tracks played")
	assert.Contains(t, reply, "20% skipped")
	assert.Contains(t, reply, "Hit - Star (4x)")
	assert.Contains(t, reply, "alice (6x)")
}

func TestHelpCommand(t *testing.T) {
	f := newCmdFixture(t)
	reply := f.say(t, "alice", viewer(), "!help")
	assert.Contains(t, reply, "!sr")
	assert.Contains(t, reply, "!skip")
}
