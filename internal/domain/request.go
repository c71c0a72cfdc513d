package domain

import (
	"fmt"
	"strings"
	"time"
)

// RequestStatus describes where a request is in its lifecycle.
type RequestStatus int

const (
	StatusPending RequestStatus = iota
	StatusPlaying
	StatusDone
	StatusRemoved
)

// String returns the string representation of the status.
func (s RequestStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusPlaying:
		return "playing"
	case StatusDone:
		return "done"
	case StatusRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Request is one candidate or queued song. It is owned by the queue store
// for its queued lifetime; the orchestrator holds at most one Playing
// request on loan.
type Request struct {
	ID          string        `json:"id"`
	Track       Track         `json:"track"`
	RequestedBy string        `json:"requested_by"`
	SubmittedAt time.Time     `json:"submitted_at"`
	Voters      []string      `json:"voters"` // distinct upvoters, requester first
	Pinned      bool          `json:"pinned"`
	Status      RequestStatus `json:"status"`
}

// Votes returns the number of distinct voters.
func (r *Request) Votes() int {
	return len(r.Voters)
}

// HasVoter reports whether identity already voted for this request.
func (r *Request) HasVoter(identity string) bool {
	for _, v := range r.Voters {
		if strings.EqualFold(v, identity) {
			return true
		}
	}
	return false
}

// AddVoter appends identity to the voter set. Returns false if the vote
// was a no-op because the identity already voted.
func (r *Request) AddVoter(identity string) bool {
	if r.HasVoter(identity) {
		return false
	}
	r.Voters = append(r.Voters, identity)
	return true
}

// VotersLabel returns up to max voter names, then "(+N more)".
func (r *Request) VotersLabel(max int) string {
	if len(r.Voters) == 0 {
		return ""
	}
	if max <= 0 || len(r.Voters) <= max {
		return strings.Join(r.Voters, ", ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(r.Voters[:max], ", "), len(r.Voters)-max)
}

// Clone returns a deep copy, used for read-only snapshots of the queue.
func (r *Request) Clone() *Request {
	cp := *r
	cp.Voters = append([]string(nil), r.Voters...)
	cp.Track.Artists = append([]string(nil), r.Track.Artists...)
	return &cp
}
