// Package gate admits, merges or rejects incoming song requests.
//
// Checks run in a fixed order and the first failure wins: paused,
// resolve, blacklist, length, cooldown, duplicate, then capacity and the
// per-user limit inside the queue store. Catalog lookups happen before
// any queue state is touched.
package gate

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Brunsben/TwitchSpotifySRBot/internal/config"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/domain"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/queue"
	apperrors "github.com/Brunsben/TwitchSpotifySRBot/pkg/errors"
	"github.com/Brunsben/TwitchSpotifySRBot/pkg/logger"
)

// Catalog resolves free-text queries or track links to a concrete track.
type Catalog interface {
	Resolve(ctx context.Context, query string) (domain.Track, error)
}

// Outcome describes an accepted submission: either a fresh insert with
// its queue position, or a vote merged onto an already-queued track.
type Outcome struct {
	Request  *domain.Request
	Position int
	Wait     time.Duration
	Voted    bool
}

// Gate evaluates song submissions against the active policy.
type Gate struct {
	cfg       *config.Store
	store     *queue.Store
	blacklist *Blacklist
	cooldowns *CooldownLedger
	catalog   Catalog
	log       logger.Logger
	now       func() time.Time
}

// New creates a request gate.
func New(cfg *config.Store, store *queue.Store, blacklist *Blacklist, cooldowns *CooldownLedger, catalog Catalog, log logger.Logger) *Gate {
	return &Gate{
		cfg:       cfg,
		store:     store,
		blacklist: blacklist,
		cooldowns: cooldowns,
		catalog:   catalog,
		log:       log,
		now:       time.Now,
	}
}

// Submit runs the admission pipeline for one request.
func (g *Gate) Submit(ctx context.Context, user string, tier domain.Tier, query string) (*Outcome, error) {
	cfg := g.cfg.Current()

	if g.store.RequestsPaused() {
		return nil, apperrors.ErrRequestsPaused
	}

	track, err := g.catalog.Resolve(ctx, query)
	if err != nil {
		if apperrors.IsUpstream(err) {
			g.log.Warn("track resolution failed",
				logger.String("user", user),
				logger.String("query", query),
				logger.Error(err))
		}
		return nil, err
	}

	if tier < cfg.Bypass.BlacklistTier() {
		if entry, hit := g.blacklist.Match(track); hit {
			g.log.Debug("request blocked by blacklist",
				logger.String("user", user),
				logger.String("track", track.FullName()),
				logger.String("pattern", entry.Pattern))
			return nil, apperrors.ErrBlacklisted
		}
	}

	if tier < cfg.Bypass.LengthTier() && track.Duration() > cfg.Rules.MaxSongLength {
		return nil, apperrors.ErrTooLong
	}

	if tier < cfg.Bypass.CooldownTier() {
		if _, active := g.cooldowns.Remaining(CooldownSong, track.URI); active {
			return nil, apperrors.ErrOnCooldown
		}
		if _, active := g.cooldowns.Remaining(CooldownUser, strings.ToLower(user)); active {
			return nil, apperrors.ErrOnCooldown
		}
	}

	if cfg.Rules.SmartVoting {
		// Duplicate submissions merge into a vote on the queued copy.
		// This holds for every tier so a track never appears twice.
		merged, added, err := g.store.AddVote(track.URI, user)
		if err == nil {
			if !added {
				return nil, apperrors.ErrDuplicate
			}
			return &Outcome{Request: merged, Voted: true}, nil
		}
		if !apperrors.IsError(err, apperrors.ErrNotFound) {
			return nil, err
		}
	} else if tier < cfg.Bypass.DuplicateTier() && g.store.FindByURI(track.URI) != nil {
		return nil, apperrors.ErrDuplicate
	}

	req := &domain.Request{
		ID:          uuid.NewString(),
		Track:       track,
		RequestedBy: user,
		SubmittedAt: g.now(),
		Voters:      []string{user},
	}

	pos, wait, err := g.store.Insert(req)
	if err != nil {
		return nil, err
	}

	g.cooldowns.Set(CooldownSong, track.URI, cfg.Rules.SongCooldown)
	g.cooldowns.Set(CooldownUser, strings.ToLower(user), cfg.Rules.UserCooldown)

	g.log.Info("request queued",
		logger.String("user", user),
		logger.String("track", track.FullName()),
		logger.Int("position", pos))

	return &Outcome{Request: req.Clone(), Position: pos, Wait: wait}, nil
}
