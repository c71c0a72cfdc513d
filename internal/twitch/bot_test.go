package twitch

import (
	"testing"

	twitchirc "github.com/gempir/go-twitch-irc/v4"
	"github.com/stretchr/testify/assert"

	"github.com/Brunsben/TwitchSpotifySRBot/internal/domain"
)

func msgWithBadges(user string, badges map[string]int) twitchirc.PrivateMessage {
	return twitchirc.PrivateMessage{
		User: twitchirc.User{Name: user, Badges: badges},
	}
}

func TestFlagsFor(t *testing.T) {
	tests := []struct {
		name   string
		msg    twitchirc.PrivateMessage
		expect domain.Tier
	}{
		{"plain viewer", msgWithBadges("alice", nil), domain.TierEveryone},
		{"subscriber badge", msgWithBadges("alice", map[string]int{"subscriber": 6}), domain.TierSubscriber},
		{"founder badge", msgWithBadges("alice", map[string]int{"founder": 1}), domain.TierSubscriber},
		{"vip badge", msgWithBadges("alice", map[string]int{"vip": 1}), domain.TierSubscriber},
		{"moderator badge", msgWithBadges("alice", map[string]int{"moderator": 1}), domain.TierModerator},
		{"broadcaster badge", msgWithBadges("alice", map[string]int{"broadcaster": 1}), domain.TierBroadcaster},
		{"channel owner without badge", msgWithBadges("TheStreamer", nil), domain.TierBroadcaster},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := flagsFor(tt.msg, "thestreamer")
			assert.Equal(t, tt.expect, flags.Effective())
		})
	}
}
