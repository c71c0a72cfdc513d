package domain

import "strings"

// Tier is an ordered permission level used to gate command eligibility
// and policy-check bypass.
type Tier int

const (
	TierEveryone Tier = iota
	TierFollower
	TierSubscriber
	TierModerator
	TierBroadcaster
)

// String returns the string representation of the tier.
func (t Tier) String() string {
	switch t {
	case TierEveryone:
		return "everyone"
	case TierFollower:
		return "follower"
	case TierSubscriber:
		return "subscriber"
	case TierModerator:
		return "moderator"
	case TierBroadcaster:
		return "broadcaster"
	default:
		return "unknown"
	}
}

// ParseTier parses a tier name, defaulting to TierEveryone.
func ParseTier(s string) Tier {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "follower", "followers":
		return TierFollower
	case "subscriber", "subscribers", "vip", "founder":
		return TierSubscriber
	case "moderator", "moderators", "mod":
		return TierModerator
	case "broadcaster", "streamer":
		return TierBroadcaster
	default:
		return TierEveryone
	}
}

// TierFlags are the caller attributes the chat collaborator supplies per
// invocation.
type TierFlags struct {
	Follower    bool
	Subscriber  bool
	Moderator   bool
	Broadcaster bool
}

// Effective returns the highest tier the caller holds.
func (f TierFlags) Effective() Tier {
	switch {
	case f.Broadcaster:
		return TierBroadcaster
	case f.Moderator:
		return TierModerator
	case f.Subscriber:
		return TierSubscriber
	case f.Follower:
		return TierFollower
	default:
		return TierEveryone
	}
}
