// Package queue implements the bounded, vote-ordered request queue.
//
// The store is the single serialization point for queue mutations. Every
// operation takes the store mutex, applies its change, recomputes the
// order where required and returns; callers never observe a half-applied
// mutation. Catalog and playback calls happen outside this package.
package queue

import (
	"strings"
	"sync"
	"time"

	"github.com/Brunsben/TwitchSpotifySRBot/internal/config"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/domain"
	apperrors "github.com/Brunsben/TwitchSpotifySRBot/pkg/errors"
)

// RulesFunc supplies the active queue policy. It is consulted on every
// mutation so live config reloads apply without restarting.
type RulesFunc func() config.RulesConfig

// Store holds pending requests in playback order.
type Store struct {
	mu     sync.Mutex
	items  []*domain.Request
	rules  RulesFunc
	paused bool
}

// NewStore creates an empty queue store.
func NewStore(rules RulesFunc) *Store {
	return &Store{rules: rules}
}

// Insert admits a new request. Capacity and the per-user limit are
// re-checked here because admission checks and insertion are not one
// atomic step for the caller.
//
// On success it returns the 1-based queue position and the summed
// duration of the items ahead of it.
func (s *Store) Insert(req *domain.Request) (int, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.rules()
	if len(s.items) >= r.MaxQueueSize {
		return 0, 0, apperrors.ErrQueueFull
	}
	if s.countByUserLocked(req.RequestedBy) >= r.MaxPerUser {
		return 0, 0, apperrors.ErrUserLimitReached
	}

	req.Status = domain.StatusPending
	s.items = append(s.items, req)
	if r.SmartVoting {
		reorder(s.items, true)
	}

	pos := s.positionLocked(req.ID)
	var wait time.Duration
	for _, it := range s.items[:pos-1] {
		wait += it.Track.Duration()
	}
	return pos, wait, nil
}

// AddVote records an upvote for the queued track with the given URI and
// recomputes the order. The returned bool is false when the voter had
// already voted; the vote set never shrinks.
func (s *Store) AddVote(uri, voter string) (*domain.Request, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := s.findByURILocked(uri)
	if req == nil {
		return nil, false, apperrors.ErrNotFound
	}
	added := req.AddVoter(voter)
	if added && s.rules().SmartVoting {
		reorder(s.items, true)
	}
	return req.Clone(), added, nil
}

// FindByURI returns a copy of the queued request with the given URI, or
// nil when the track is not queued.
func (s *Store) FindByURI(uri string) *domain.Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req := s.findByURILocked(uri); req != nil {
		return req.Clone()
	}
	return nil
}

// Pin marks a request as pinned, moving it into the leading pinned block.
func (s *Store) Pin(id string) error {
	return s.setPinned(id, true)
}

// Unpin clears the pinned flag and returns the request to vote ordering.
func (s *Store) Unpin(id string) error {
	return s.setPinned(id, false)
}

func (s *Store) setPinned(id string, pinned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := s.findByIDLocked(id)
	if req == nil {
		return apperrors.ErrNotFound
	}
	req.Pinned = pinned
	reorder(s.items, s.rules().SmartVoting)
	return nil
}

// Remove deletes the request with the given id and returns it.
func (s *Store) Remove(id string) (*domain.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, it := range s.items {
		if it.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			it.Status = domain.StatusRemoved
			return it, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

// RemoveLastByUser deletes the user's most recently submitted request.
func (s *Store) RemoveLastByUser(user string) (*domain.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	var latest time.Time
	for i, it := range s.items {
		if strings.EqualFold(it.RequestedBy, user) && (idx == -1 || it.SubmittedAt.After(latest)) {
			idx = i
			latest = it.SubmittedAt
		}
	}
	if idx == -1 {
		return nil, apperrors.ErrNotFound
	}
	req := s.items[idx]
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	req.Status = domain.StatusRemoved
	return req, nil
}

// Clear empties the queue and returns the number of removed requests.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.items)
	for _, it := range s.items {
		it.Status = domain.StatusRemoved
	}
	s.items = nil
	return n
}

// MoveUp swaps the request with its predecessor. The move is transient
// and survives only until the next vote-driven recompute.
func (s *Store) MoveUp(id string) error {
	return s.move(id, -1)
}

// MoveDown swaps the request with its successor.
func (s *Store) MoveDown(id string) error {
	return s.move(id, 1)
}

func (s *Store) move(id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, it := range s.items {
		if it.ID != id {
			continue
		}
		j := i + delta
		if j < 0 || j >= len(s.items) {
			return nil // already at the edge
		}
		s.items[i], s.items[j] = s.items[j], s.items[i]
		return nil
	}
	return apperrors.ErrNotFound
}

// Dequeue removes and returns the head of the queue, or nil when empty.
func (s *Store) Dequeue() *domain.Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return nil
	}
	req := s.items[0]
	s.items = s.items[1:]
	return req
}

// ReturnToFront puts a previously dequeued request back at the head.
// Capacity is not enforced: the request was already admitted once.
func (s *Store) ReturnToFront(req *domain.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req.Status = domain.StatusPending
	s.items = append([]*domain.Request{req}, s.items...)
}

// List returns deep copies of the queued requests in playback order.
func (s *Store) List() []*domain.Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Request, len(s.items))
	for i, it := range s.items {
		out[i] = it.Clone()
	}
	return out
}

// Len returns the number of queued requests.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// CountByUser returns how many requests the user currently has queued.
func (s *Store) CountByUser(user string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countByUserLocked(user)
}

// PauseRequests stops new admissions until ResumeRequests.
func (s *Store) PauseRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// ResumeRequests re-enables admissions.
func (s *Store) ResumeRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

// RequestsPaused reports whether admissions are currently paused.
func (s *Store) RequestsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Store) findByURILocked(uri string) *domain.Request {
	for _, it := range s.items {
		if it.Track.URI == uri {
			return it
		}
	}
	return nil
}

func (s *Store) findByIDLocked(id string) *domain.Request {
	for _, it := range s.items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func (s *Store) positionLocked(id string) int {
	for i, it := range s.items {
		if it.ID == id {
			return i + 1
		}
	}
	return 0
}

func (s *Store) countByUserLocked(user string) int {
	n := 0
	for _, it := range s.items {
		if strings.EqualFold(it.RequestedBy, user) {
			n++
		}
	}
	return n
}
