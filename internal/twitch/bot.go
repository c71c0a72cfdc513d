// Package twitch connects the command dispatcher to Twitch chat.
package twitch

import (
	"context"
	"strings"
	"time"

	twitchirc "github.com/gempir/go-twitch-irc/v4"

	"github.com/Brunsben/TwitchSpotifySRBot/internal/command"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/config"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/domain"
	"github.com/Brunsben/TwitchSpotifySRBot/pkg/logger"
)

// dispatchTimeout bounds one command execution, catalog lookups included.
const dispatchTimeout = 10 * time.Second

// Bot is the IRC client wrapper.
type Bot struct {
	client     *twitchirc.Client
	cfg        *config.Store
	dispatcher *command.Dispatcher
	log        logger.Logger
}

// NewBot creates the chat bot and registers its message handlers.
func NewBot(cfg *config.Store, dispatcher *command.Dispatcher, log logger.Logger) *Bot {
	c := cfg.Current()

	b := &Bot{
		client:     twitchirc.NewClient(c.Twitch.BotUsername, c.Twitch.OAuthToken),
		cfg:        cfg,
		dispatcher: dispatcher,
		log:        log,
	}
	b.client.OnConnect(func() {
		b.log.Info("connected to twitch chat", logger.String("channel", c.Twitch.Channel))
	})
	b.client.OnPrivateMessage(b.onMessage)
	b.client.Join(c.Twitch.Channel)
	return b
}

func (b *Bot) onMessage(msg twitchirc.PrivateMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	flags := flagsFor(msg, b.cfg.Current().Twitch.Channel)
	reply, handled := b.dispatcher.Dispatch(ctx, msg.User.Name, flags, msg.Message)
	if !handled || reply == "" {
		return
	}
	b.client.Say(msg.Channel, "@"+msg.User.DisplayName+" "+reply)
}

// flagsFor derives the caller's tier flags from IRC badges. Follower
// status is not carried in chat tags, so it stays unset; tiers above it
// come from badges.
func flagsFor(msg twitchirc.PrivateMessage, channel string) domain.TierFlags {
	badges := msg.User.Badges
	return domain.TierFlags{
		Subscriber:  badges["subscriber"] > 0 || badges["founder"] > 0 || badges["vip"] > 0,
		Moderator:   badges["moderator"] > 0,
		Broadcaster: badges["broadcaster"] > 0 || strings.EqualFold(msg.User.Name, channel),
	}
}

// Run connects and blocks until the context is cancelled or the
// connection fails for good.
func (b *Bot) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		if err := b.client.Disconnect(); err != nil {
			b.log.Debug("chat disconnect", logger.Error(err))
		}
	}()

	err := b.client.Connect()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
