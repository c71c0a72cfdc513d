package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Brunsben/TwitchSpotifySRBot/internal/config"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/domain"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/gate"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/history"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/player"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/queue"
	apperrors "github.com/Brunsben/TwitchSpotifySRBot/pkg/errors"
)

// maxQueueReplyItems caps how many entries the !queue reply lists.
const maxQueueReplyItems = 5

// maxVotersShown caps how many voter names the !songinfo reply lists.
const maxVotersShown = 3

// StatsSource provides aggregated play statistics.
type StatsSource interface {
	Stats(ctx context.Context) (*history.Stats, error)
}

// Handlers implements the chat command surface.
type Handlers struct {
	cfg       *config.Store
	gate      *gate.Gate
	queue     *queue.Store
	orch      *player.Orchestrator
	blacklist *gate.Blacklist
	catalog   gate.Catalog
	stats     StatsSource
}

// NewHandlers wires the command handlers.
func NewHandlers(cfg *config.Store, g *gate.Gate, q *queue.Store, orch *player.Orchestrator, bl *gate.Blacklist, catalog gate.Catalog, stats StatsSource) *Handlers {
	return &Handlers{
		cfg:       cfg,
		gate:      g,
		queue:     q,
		orch:      orch,
		blacklist: bl,
		catalog:   catalog,
		stats:     stats,
	}
}

// RegisterAll attaches every command to the dispatcher.
func (h *Handlers) RegisterAll(d *Dispatcher) {
	d.Register("sr", h.SongRequest)
	d.Register("queue", h.Queue)
	d.Register("song", h.Song)
	d.Alias("currentsong", "song")
	d.Register("songinfo", h.SongInfo)
	d.Register("wrongsong", h.WrongSong)
	d.Register("help", h.Help)
	d.Register("stats", h.Stats)
	d.Register("skip", h.Skip)
	d.Register("pause", h.Pause)
	d.Register("resume", h.Resume)
	d.Register("forceplay", h.ForcePlay)
	d.Register("clearqueue", h.ClearQueue)
	d.Register("pauserequests", h.PauseRequests)
	d.Register("resumerequests", h.ResumeRequests)
	d.Register("blacklist", h.Blacklist)
}

// SongRequest handles !sr <link or search text>.
func (h *Handlers) SongRequest(ctx context.Context, inv Invocation) (string, error) {
	if inv.ArgText == "" {
		return "Usage: !sr <song name or Spotify link>", nil
	}

	out, err := h.gate.Submit(ctx, inv.User, inv.Tier, inv.ArgText)
	if err != nil {
		return "", err
	}
	if out.Voted {
		return fmt.Sprintf("%s is already queued, your vote counts! (%d votes)",
			out.Request.Track.FullName(), out.Request.Votes()), nil
	}
	return fmt.Sprintf("Added %s at position %d (%s wait)",
		out.Request.Track.FullName(), out.Position, waitLabel(out.Wait)), nil
}

// Queue handles !queue.
func (h *Handlers) Queue(_ context.Context, _ Invocation) (string, error) {
	items := h.queue.List()
	if len(items) == 0 {
		return "The queue is empty", nil
	}

	var b strings.Builder
	for i, it := range items {
		if i >= maxQueueReplyItems {
			fmt.Fprintf(&b, " (+%d more)", len(items)-maxQueueReplyItems)
			break
		}
		if i > 0 {
			b.WriteString(" | ")
		}
		fmt.Fprintf(&b, "%d. %s (%s, %d votes)", i+1, it.Track.FullName(), it.RequestedBy, it.Votes())
	}
	return b.String(), nil
}

// Song handles !song and !currentsong.
func (h *Handlers) Song(_ context.Context, _ Invocation) (string, error) {
	track, req, ok := h.orch.Now()
	if !ok {
		return "Nothing is playing right now", nil
	}
	if req == nil {
		return fmt.Sprintf("Now playing: %s (autoplay)", track.FullName()), nil
	}
	return fmt.Sprintf("Now playing: %s (requested by %s)", track.FullName(), req.RequestedBy), nil
}

// SongInfo handles !songinfo with length and voters.
func (h *Handlers) SongInfo(_ context.Context, _ Invocation) (string, error) {
	track, req, ok := h.orch.Now()
	if !ok {
		return "Nothing is playing right now", nil
	}
	if req == nil {
		return fmt.Sprintf("%s [%s] (autoplay)", track.FullName(), track.DurationString()), nil
	}
	return fmt.Sprintf("%s [%s] requested by %s, votes: %s",
		track.FullName(), track.DurationString(), req.RequestedBy, req.VotersLabel(maxVotersShown)), nil
}

// WrongSong handles !wrongsong: drops the caller's latest request.
func (h *Handlers) WrongSong(_ context.Context, inv Invocation) (string, error) {
	req, err := h.queue.RemoveLastByUser(inv.User)
	if err != nil {
		if apperrors.IsError(err, apperrors.ErrNotFound) {
			return "You have no queued requests", nil
		}
		return "", err
	}
	return fmt.Sprintf("Removed your request %s", req.Track.FullName()), nil
}

// Help handles !help.
func (h *Handlers) Help(_ context.Context, _ Invocation) (string, error) {
	return "Commands: !sr <song>, !queue, !song, !songinfo, !wrongsong, !stats" +
		" | Mods: !skip, !pause, !resume, !forceplay, !clearqueue, !pauserequests, !resumerequests, !blacklist", nil
}

// Stats handles !stats.
func (h *Handlers) Stats(ctx context.Context, _ Invocation) (string, error) {
	stats, err := h.stats.Stats(ctx)
	if err != nil {
		return "", err
	}
	if stats.TotalPlayed == 0 {
		return "No play history yet", nil
	}

	reply := fmt.Sprintf("%d tracks played, %.0f%% skipped", stats.TotalPlayed, stats.SkipRate*100)
	if len(stats.TopSongs) > 0 {
		reply += " | Top song: " + ranked(stats.TopSongs[0])
	}
	if len(stats.TopRequesters) > 0 {
		reply += " | Top requester: " + ranked(stats.TopRequesters[0])
	}
	return reply, nil
}

func ranked(item history.CountItem) string {
	return fmt.Sprintf("%s (%dx)", item.Name, item.Count)
}

// Skip handles !skip.
func (h *Handlers) Skip(ctx context.Context, _ Invocation) (string, error) {
	if err := h.orch.Skip(ctx); err != nil {
		return "", err
	}
	if track, _, ok := h.orch.Now(); ok {
		return "Skipped. Now playing: " + track.FullName(), nil
	}
	return "Skipped", nil
}

// Pause handles !pause.
func (h *Handlers) Pause(ctx context.Context, _ Invocation) (string, error) {
	if err := h.orch.Pause(ctx); err != nil {
		return "", err
	}
	return "Playback paused", nil
}

// Resume handles !resume.
func (h *Handlers) Resume(ctx context.Context, _ Invocation) (string, error) {
	if err := h.orch.Resume(ctx); err != nil {
		return "", err
	}
	return "Playback resumed", nil
}

// ForcePlay handles !forceplay <position|link|search text>. The
// interrupted request goes back to the front of the queue.
func (h *Handlers) ForcePlay(ctx context.Context, inv Invocation) (string, error) {
	if inv.ArgText == "" {
		return "Usage: !forceplay <queue position, song name or Spotify link>", nil
	}

	req, reply, err := h.forcePlayTarget(ctx, inv)
	if req == nil {
		return reply, err
	}
	if err := h.orch.ForcePlay(ctx, req, false); err != nil {
		return "", err
	}
	return "Force playing " + req.Track.FullName(), nil
}

// forcePlayTarget picks the request to force: a queue entry when the
// argument is a position, a fresh request otherwise.
func (h *Handlers) forcePlayTarget(ctx context.Context, inv Invocation) (*domain.Request, string, error) {
	if len(inv.Args) == 1 {
		if pos, err := strconv.Atoi(inv.Args[0]); err == nil {
			items := h.queue.List()
			if pos < 1 || pos > len(items) {
				return nil, fmt.Sprintf("No queue entry at position %d", pos), nil
			}
			req, err := h.queue.Remove(items[pos-1].ID)
			if err != nil {
				return nil, "", err
			}
			return req, "", nil
		}
	}

	track, err := h.catalog.Resolve(ctx, inv.ArgText)
	if err != nil {
		return nil, "", err
	}
	return &domain.Request{
		ID:          uuid.NewString(),
		Track:       track,
		RequestedBy: inv.User,
		SubmittedAt: time.Now(),
		Voters:      []string{inv.User},
	}, "", nil
}

// ClearQueue handles !clearqueue.
func (h *Handlers) ClearQueue(_ context.Context, _ Invocation) (string, error) {
	n := h.queue.Clear()
	return fmt.Sprintf("Cleared %d requests from the queue", n), nil
}

// PauseRequests handles !pauserequests.
func (h *Handlers) PauseRequests(_ context.Context, _ Invocation) (string, error) {
	h.queue.PauseRequests()
	return "Song requests are now paused", nil
}

// ResumeRequests handles !resumerequests.
func (h *Handlers) ResumeRequests(_ context.Context, _ Invocation) (string, error) {
	h.queue.ResumeRequests()
	return "Song requests are open again", nil
}

// Blacklist handles !blacklist [list|add <song|artist> <pattern>|remove <pattern>].
func (h *Handlers) Blacklist(_ context.Context, inv Invocation) (string, error) {
	usage := "Usage: !blacklist list | add <song|artist> <pattern> | remove <pattern>"
	if len(inv.Args) == 0 {
		return usage, nil
	}

	switch strings.ToLower(inv.Args[0]) {
	case "list":
		entries := h.blacklist.List()
		if len(entries) == 0 {
			return "The blacklist is empty", nil
		}
		parts := make([]string, len(entries))
		for i, e := range entries {
			parts[i] = fmt.Sprintf("%s (%s)", e.Pattern, e.Type)
		}
		return "Blacklist: " + strings.Join(parts, ", "), nil

	case "add":
		if len(inv.Args) < 3 {
			return usage, nil
		}
		kind := strings.ToLower(inv.Args[1])
		if kind != "song" && kind != "artist" {
			return usage, nil
		}
		pattern := strings.Join(inv.Args[2:], " ")
		if !h.blacklist.Add(pattern, kind) {
			return "That pattern is already blacklisted", nil
		}
		return fmt.Sprintf("Blacklisted %s %q", kind, strings.ToLower(pattern)), nil

	case "remove":
		if len(inv.Args) < 2 {
			return usage, nil
		}
		pattern := strings.Join(inv.Args[1:], " ")
		if !h.blacklist.Remove(pattern) {
			return "No such blacklist entry", nil
		}
		return fmt.Sprintf("Removed %q from the blacklist", strings.ToLower(pattern)), nil

	default:
		return usage, nil
	}
}

func waitLabel(wait time.Duration) string {
	if wait < time.Minute {
		return "less than a minute"
	}
	return fmt.Sprintf("about %d min", int(wait.Round(time.Minute).Minutes()))
}
