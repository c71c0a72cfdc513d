package gate

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brunsben/TwitchSpotifySRBot/internal/config"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/domain"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/queue"
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

type gateFixture struct {
	gate      *Gate
	store     *queue.Store
	cooldowns *CooldownLedger
	cfg       *config.Store
	clock     time.Time
}

func newFixture(t *testing.T, mutate func(*config.Config)) *gateFixture {
	t.Helper()

	cfg := &config.Config{
		Rules: config.RulesConfig{
			MaxQueueSize:  20,
			MaxPerUser:    3,
			MaxSongLength: 10 * time.Minute,
			SongCooldown:  3 * time.Minute,
			SmartVoting:   true,
		},
	}
	if mutate != nil {
		mutate(cfg)
	}
	cfgStore := config.NewStore(cfg, nil)

	f := &gateFixture{
		cfg:       cfgStore,
		store:     queue.NewStore(func() config.RulesConfig { return cfgStore.Current().Rules }),
		cooldowns: NewCooldownLedger(),
		clock:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	catalog := &fakeCatalog{tracks: map[string]domain.Track{
		"never gonna give you up": {
			URI:        "spotify:track:rick",
			Title:      "Never Gonna Give You Up",
			Artists:    []string{"Rick Astley"},
			DurationMS: 213000,
		},
		"short one": {
			URI:        "spotify:track:short",
			Title:      "Short One",
			Artists:    []string{"Someone"},
			DurationMS: 180000,
		},
		"long one": {
			URI:        "spotify:track:long",
			Title:      "Long One",
			Artists:    []string{"Someone"},
			DurationMS: 660000,
		},
	}}

	log := logger.New(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})

	f.gate = New(cfgStore, f.store, NewBlacklist(cfg.Blacklist), f.cooldowns, catalog, log)
	f.gate.now = func() time.Time { return f.clock }
	f.cooldowns.now = func() time.Time { return f.clock }
	return f
}

func TestGate_AcceptReturnsPositionAndWait(t *testing.T) {
	f := newFixture(t, nil)

	out, err := f.gate.Submit(context.Background(), "alice", domain.TierEveryone, "short one")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Position)
	assert.False(t, out.Voted)
	assert.Equal(t, []string{"alice"}, out.Request.Voters)

	out, err = f.gate.Submit(context.Background(), "bob", domain.TierEveryone, "never gonna give you up")
	require.NoError(t, err)
	assert.Equal(t, 2, out.Position)
	assert.Equal(t, 3*time.Minute, out.Wait)
}

func TestGate_PausedRejectsBeforeResolve(t *testing.T) {
	f := newFixture(t, nil)
	f.store.PauseRequests()

	_, err := f.gate.Submit(context.Background(), "alice", domain.TierEveryone, "no such track")
	assert.True(t, apperrors.IsError(err, apperrors.ErrRequestsPaused))
}

func TestGate_UnresolvedTrack(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.gate.Submit(context.Background(), "alice", domain.TierEveryone, "no such track")
	assert.True(t, apperrors.IsError(err, apperrors.ErrNotFound))
	assert.Equal(t, 0, f.store.Len())
}

func TestGate_BlacklistWithModeratorBypass(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Blacklist = []config.BlacklistEntry{{Pattern: "rick astley", Type: "artist"}}
	})

	_, err := f.gate.Submit(context.Background(), "alice", domain.TierEveryone, "never gonna give you up")
	assert.True(t, apperrors.IsError(err, apperrors.ErrBlacklisted))
	assert.Equal(t, 0, f.store.Len())

	out, err := f.gate.Submit(context.Background(), "themod", domain.TierModerator, "never gonna give you up")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Position)
}

func TestGate_LengthLimit(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.gate.Submit(context.Background(), "alice", domain.TierEveryone, "long one")
	assert.True(t, apperrors.IsError(err, apperrors.ErrTooLong))

	_, err = f.gate.Submit(context.Background(), "themod", domain.TierModerator, "long one")
	assert.NoError(t, err)
}

func TestGate_SongCooldownWindow(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.gate.Submit(context.Background(), "alice", domain.TierEveryone, "short one")
	require.NoError(t, err)

	// Drain so the duplicate check does not fire first.
	f.store.Clear()

	f.clock = f.clock.Add(60 * time.Second)
	_, err = f.gate.Submit(context.Background(), "bob", domain.TierEveryone, "short one")
	assert.True(t, apperrors.IsError(err, apperrors.ErrOnCooldown))

	f.clock = f.clock.Add(121 * time.Second)
	_, err = f.gate.Submit(context.Background(), "bob", domain.TierEveryone, "short one")
	assert.NoError(t, err)
}

func TestGate_CooldownNotSetOnRejection(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Rules.MaxSongLength = time.Minute
	})

	_, err := f.gate.Submit(context.Background(), "alice", domain.TierEveryone, "short one")
	require.True(t, apperrors.IsError(err, apperrors.ErrTooLong))
	_, active := f.cooldowns.Remaining(CooldownSong, "spotify:track:short")
	assert.False(t, active)
}

func TestGate_UserCooldown(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Rules.UserCooldown = 2 * time.Minute
	})

	_, err := f.gate.Submit(context.Background(), "alice", domain.TierEveryone, "short one")
	require.NoError(t, err)

	_, err = f.gate.Submit(context.Background(), "Alice", domain.TierEveryone, "never gonna give you up")
	assert.True(t, apperrors.IsError(err, apperrors.ErrOnCooldown))

	// Other users are unaffected.
	_, err = f.gate.Submit(context.Background(), "bob", domain.TierEveryone, "never gonna give you up")
	assert.NoError(t, err)
}

func TestGate_DuplicateMergesVote(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.gate.Submit(context.Background(), "alice", domain.TierEveryone, "short one")
	require.NoError(t, err)

	out, err := f.gate.Submit(context.Background(), "bob", domain.TierEveryone, "short one")
	require.NoError(t, err)
	assert.True(t, out.Voted)
	assert.Equal(t, 2, out.Request.Votes())
	assert.Equal(t, 1, f.store.Len(), "still a single entry")

	// A repeat from someone who already voted is a plain duplicate.
	_, err = f.gate.Submit(context.Background(), "bob", domain.TierEveryone, "short one")
	assert.True(t, apperrors.IsError(err, apperrors.ErrDuplicate))
}

func TestGate_DuplicateMergesVoteForBypassTiers(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.gate.Submit(context.Background(), "alice", domain.TierEveryone, "short one")
	require.NoError(t, err)

	// A moderator resubmission merges into a vote too; no tier gets a
	// second copy of a queued track while voting is on.
	out, err := f.gate.Submit(context.Background(), "themod", domain.TierModerator, "short one")
	require.NoError(t, err)
	assert.True(t, out.Voted)
	assert.Equal(t, 2, out.Request.Votes())
	assert.Equal(t, 1, f.store.Len())
}

func TestGate_DuplicateWithoutVoting(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Rules.SmartVoting = false
	})

	_, err := f.gate.Submit(context.Background(), "alice", domain.TierEveryone, "short one")
	require.NoError(t, err)

	_, err = f.gate.Submit(context.Background(), "bob", domain.TierEveryone, "short one")
	assert.True(t, apperrors.IsError(err, apperrors.ErrDuplicate))

	// Moderators bypass the duplicate check and queue a second copy.
	_, err = f.gate.Submit(context.Background(), "themod", domain.TierModerator, "short one")
	require.NoError(t, err)
	assert.Equal(t, 2, f.store.Len())
}

func TestGate_QueueFull(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Rules.MaxQueueSize = 1
		cfg.Rules.SongCooldown = 0
	})

	_, err := f.gate.Submit(context.Background(), "alice", domain.TierEveryone, "short one")
	require.NoError(t, err)

	_, err = f.gate.Submit(context.Background(), "bob", domain.TierEveryone, "never gonna give you up")
	assert.True(t, apperrors.IsError(err, apperrors.ErrQueueFull))
}

func TestBlacklist_AddRemoveMatch(t *testing.T) {
	b := NewBlacklist(nil)

	assert.True(t, b.Add("Baby Shark", "song"))
	assert.False(t, b.Add("baby shark", "song"), "duplicate pattern is a no-op")

	track := domain.Track{Title: "Baby Shark (Dance Remix)", Artists: []string{"Pinkfong"}}
	entry, hit := b.Match(track)
	assert.True(t, hit)
	assert.Equal(t, "baby shark", entry.Pattern)

	assert.True(t, b.Remove("BABY SHARK"))
	_, hit = b.Match(track)
	assert.False(t, hit)
	assert.False(t, b.Remove("baby shark"))
}

func TestCooldownLedger_Sweep(t *testing.T) {
	l := NewCooldownLedger()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Set(CooldownSong, "a", time.Minute)
	l.Set(CooldownSong, "b", time.Hour)
	l.Set(CooldownSong, "c", 0) // disabled, never stored
	assert.Equal(t, 2, l.Len())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())

	left, active := l.Remaining(CooldownSong, "b")
	assert.True(t, active)
	assert.Equal(t, 58*time.Minute, left)
}
