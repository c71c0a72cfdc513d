// Package player drives playback: it hands the next queued request (or
// an autopilot fallback track) to the transport and reacts to the player
// going idle.
//
// A generation counter guards against late transport acknowledgements: a
// slow play call whose segment has been superseded by a skip or force
// play commits nothing.
package player

import (
	"context"
	"sync"
	"time"

	"github.com/Brunsben/TwitchSpotifySRBot/internal/broadcast"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/domain"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/history"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/queue"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/spotify"
	apperrors "github.com/Brunsben/TwitchSpotifySRBot/pkg/errors"
	"github.com/Brunsben/TwitchSpotifySRBot/pkg/logger"
)

// Mode is the orchestrator's playback mode.
type Mode int

const (
	ModeIdle Mode = iota
	ModeRequest
	ModeAutopilot
	ModePaused
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeRequest:
		return "request"
	case ModeAutopilot:
		return "autopilot"
	case ModePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Transport is the playback side of the upstream client.
type Transport interface {
	Play(ctx context.Context, uri string) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	GetPlayerState(ctx context.Context) (*spotify.PlayerState, error)
}

// Recorder persists played tracks. It is optional.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
	MarkSkipped(ctx context.Context) error
}

const (
	defaultPollInterval = 4 * time.Second

	// startGrace suppresses idle detection right after a play call,
	// before the transport reports the new track as in progress.
	startGrace = 8 * time.Second
)

// Orchestrator owns the playback state machine.
type Orchestrator struct {
	queue     *queue.Store
	transport Transport
	autopilot *Autopilot
	hub       *broadcast.Hub
	recorder  Recorder
	log       logger.Logger

	pollInterval time.Duration
	now          func() time.Time

	mu         sync.Mutex
	mode       Mode
	current    *domain.Request // set in ModeRequest and when paused from it
	autoTrack  domain.Track    // set in ModeAutopilot
	pausedFrom Mode
	startedAt  time.Time
	generation uint64
}

// New creates a playback orchestrator.
func New(q *queue.Store, transport Transport, autopilot *Autopilot, hub *broadcast.Hub, recorder Recorder, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		queue:        q,
		transport:    transport,
		autopilot:    autopilot,
		hub:          hub,
		recorder:     recorder,
		log:          log,
		pollInterval: defaultPollInterval,
		now:          time.Now,
	}
}

// Advance starts the next segment: the queue head if there is one, an
// autopilot track otherwise, idle when neither exists. Whatever was
// playing before is superseded.
func (o *Orchestrator) Advance(ctx context.Context) error {
	o.mu.Lock()
	o.generation++
	gen := o.generation
	o.mu.Unlock()

	if req := o.queue.Dequeue(); req != nil {
		return o.startPlayback(ctx, gen, req.Track, req)
	}
	if track, ok := o.autopilot.Next(); ok {
		return o.startPlayback(ctx, gen, track, nil)
	}

	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return nil
	}
	o.mode = ModeIdle
	o.current = nil
	o.autoTrack = domain.Track{}
	o.mu.Unlock()

	o.hub.Publish(domain.NothingPlaying())
	return nil
}

// startPlayback issues the transport call outside the lock and commits
// the segment only if it has not been superseded meanwhile.
func (o *Orchestrator) startPlayback(ctx context.Context, gen uint64, track domain.Track, req *domain.Request) error {
	err := o.transport.Play(ctx, track.URI)

	o.mu.Lock()
	if gen != o.generation {
		// A later command took over while the transport call was in
		// flight. Its outcome owns the state now; the request this call
		// carried was never played or discarded, so it goes back to the
		// head of the queue.
		o.mu.Unlock()
		if req != nil {
			o.queue.ReturnToFront(req)
		}
		return nil
	}

	if err != nil {
		if req != nil {
			o.queue.ReturnToFront(req)
		} else {
			o.autopilot.RecordFailure()
		}
		o.mode = ModeIdle
		o.current = nil
		o.autoTrack = domain.Track{}
		o.mu.Unlock()

		o.hub.Publish(domain.NothingPlaying())
		o.log.Warn("playback start failed",
			logger.String("track", track.FullName()),
			logger.Error(err))
		return err
	}

	now := o.now()
	o.startedAt = now
	requester := ""
	if req != nil {
		req.Status = domain.StatusPlaying
		o.mode = ModeRequest
		o.current = req
		o.autoTrack = domain.Track{}
		requester = req.RequestedBy
	} else {
		o.mode = ModeAutopilot
		o.current = nil
		o.autoTrack = track
		o.autopilot.RecordSuccess()
	}
	o.mu.Unlock()

	o.hub.Publish(domain.SnapshotFor(track, requester))
	if o.recorder != nil {
		if err := o.recorder.Record(ctx, history.EntryFor(track, requester, now)); err != nil {
			o.log.Warn("failed to record play history", logger.Error(err))
		}
	}
	o.log.Info("playback started",
		logger.String("track", track.FullName()),
		logger.String("mode", o.Mode().String()))
	return nil
}

// OnPlayerIdle advances after the current segment finished naturally.
func (o *Orchestrator) OnPlayerIdle(ctx context.Context) error {
	o.mu.Lock()
	if o.current != nil {
		o.current.Status = domain.StatusDone
	}
	o.mu.Unlock()
	return o.Advance(ctx)
}

// Skip abandons the current segment and advances.
func (o *Orchestrator) Skip(ctx context.Context) error {
	o.mu.Lock()
	active := o.mode != ModeIdle
	if o.current != nil {
		o.current.Status = domain.StatusDone
	}
	o.mu.Unlock()

	if active && o.recorder != nil {
		if err := o.recorder.MarkSkipped(ctx); err != nil {
			o.log.Warn("failed to mark skip in history", logger.Error(err))
		}
	}
	return o.Advance(ctx)
}

// Pause halts playback, keeping the current segment and position.
func (o *Orchestrator) Pause(ctx context.Context) error {
	o.mu.Lock()
	if o.mode != ModeRequest && o.mode != ModeAutopilot {
		o.mu.Unlock()
		return nil
	}
	prev := o.mode
	o.mu.Unlock()

	if err := o.transport.Pause(ctx); err != nil {
		return err
	}

	o.mu.Lock()
	if o.mode == prev {
		o.pausedFrom = prev
		o.mode = ModePaused
	}
	o.mu.Unlock()
	return nil
}

// Resume continues a paused segment from its position. It never issues
// a fresh play, which would restart the track.
func (o *Orchestrator) Resume(ctx context.Context) error {
	o.mu.Lock()
	if o.mode != ModePaused {
		o.mu.Unlock()
		return nil
	}
	o.mu.Unlock()

	if err := o.transport.Resume(ctx); err != nil {
		return err
	}

	o.mu.Lock()
	if o.mode == ModePaused {
		o.mode = o.pausedFrom
	}
	o.mu.Unlock()
	return nil
}

// ForcePlay starts the given request immediately. Unless discard is set,
// a preempted request goes back to the front of the queue.
func (o *Orchestrator) ForcePlay(ctx context.Context, req *domain.Request, discard bool) error {
	o.mu.Lock()
	o.generation++
	gen := o.generation
	prev := o.current
	o.current = nil
	o.mu.Unlock()

	if prev != nil {
		if discard {
			prev.Status = domain.StatusRemoved
		} else {
			o.queue.ReturnToFront(prev)
		}
	}
	return o.startPlayback(ctx, gen, req.Track, req)
}

// Mode returns the current playback mode.
func (o *Orchestrator) Mode() Mode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

// Now returns the active track and, for requested tracks, a copy of the
// request. ok is false when nothing is playing.
func (o *Orchestrator) Now() (track domain.Track, req *domain.Request, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch {
	case o.current != nil:
		return o.current.Track, o.current.Clone(), true
	case o.mode == ModeAutopilot || (o.mode == ModePaused && o.pausedFrom == ModeAutopilot):
		return o.autoTrack, nil, true
	default:
		return domain.Track{}, nil, false
	}
}

// Run polls the transport and drives segment transitions until the
// context is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			o.tick(ctx)
		}
	}
}

func (o *Orchestrator) tick(ctx context.Context) {
	o.mu.Lock()
	mode := o.mode
	started := o.startedAt
	o.mu.Unlock()

	switch mode {
	case ModePaused:
		return

	case ModeIdle:
		if o.queue.Len() == 0 && !o.autopilot.Ready() {
			return
		}
		// Probe the device first so an absent device does not turn the
		// poll loop into a play-fail loop.
		if _, err := o.transport.GetPlayerState(ctx); err != nil {
			if !apperrors.IsError(err, apperrors.ErrDeviceAbsent) {
				o.log.Debug("player state probe failed", logger.Error(err))
			}
			return
		}
		if err := o.Advance(ctx); err != nil {
			o.log.Debug("advance from idle failed", logger.Error(err))
		}

	default:
		if o.now().Sub(started) < startGrace {
			return
		}
		state, err := o.transport.GetPlayerState(ctx)
		if err != nil {
			o.log.Debug("player state poll failed", logger.Error(err))
			return
		}
		if state.Playing {
			return
		}
		// Not playing with zero progress means the segment ended.
		// Nonzero progress is an external pause; leave it alone.
		if state.ProgressMS == 0 {
			if err := o.OnPlayerIdle(ctx); err != nil {
				o.log.Debug("advance after segment end failed", logger.Error(err))
			}
		}
	}
}
