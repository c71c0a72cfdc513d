// Package command parses chat commands, enforces per-command permission
// tiers and maps handler errors to chat replies.
package command

import (
	"context"
	"errors"
	"strings"

	"github.com/Brunsben/TwitchSpotifySRBot/internal/config"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/domain"
	apperrors "github.com/Brunsben/TwitchSpotifySRBot/pkg/errors"
	"github.com/Brunsben/TwitchSpotifySRBot/pkg/logger"
)

// Invocation is one parsed command call.
type Invocation struct {
	User    string
	Tier    domain.Tier
	Args    []string
	ArgText string
}

// Handler executes one command and returns the chat reply.
type Handler func(ctx context.Context, inv Invocation) (string, error)

// Dispatcher routes chat messages to command handlers.
type Dispatcher struct {
	cfg      *config.Store
	handlers map[string]Handler
	aliases  map[string]string
	log      logger.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(cfg *config.Store, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		handlers: make(map[string]Handler),
		aliases:  make(map[string]string),
		log:      log,
	}
}

// Register adds a handler under its canonical name.
func (d *Dispatcher) Register(name string, h Handler) {
	d.handlers[name] = h
}

// Alias routes a second name to an existing command. Permission is
// checked against the canonical name.
func (d *Dispatcher) Alias(alias, canonical string) {
	d.aliases[alias] = canonical
}

// Dispatch handles one chat message. The returned bool is false when the
// message is not a known command; the reply is empty in that case.
func (d *Dispatcher) Dispatch(ctx context.Context, user string, flags domain.TierFlags, text string) (string, bool) {
	cfg := d.cfg.Current()

	prefix := cfg.Twitch.CommandPrefix
	if prefix == "" {
		prefix = "!"
	}
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, prefix) {
		return "", false
	}

	fields := strings.Fields(text[len(prefix):])
	if len(fields) == 0 {
		return "", false
	}
	name := strings.ToLower(fields[0])
	if canonical, ok := d.aliases[name]; ok {
		name = canonical
	}
	handler, ok := d.handlers[name]
	if !ok {
		return "", false
	}

	tier := flags.Effective()
	if tier < cfg.CommandTier(name) {
		return apperrors.ErrInsufficientPermission.Message, true
	}

	inv := Invocation{
		User:    user,
		Tier:    tier,
		Args:    fields[1:],
		ArgText: strings.TrimSpace(strings.Join(fields[1:], " ")),
	}
	reply, err := handler(ctx, inv)
	if err != nil {
		return d.replyForError(name, user, err), true
	}
	return reply, true
}

func (d *Dispatcher) replyForError(command, user string, err error) string {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		d.log.Error("command failed",
			logger.String("command", command),
			logger.String("user", user),
			logger.Error(err))
		return "Something went wrong, please try again later"
	}

	if appErr.Kind == apperrors.KindInternal {
		d.log.Error("command failed",
			logger.String("command", command),
			logger.String("user", user),
			logger.Error(err))
	}
	return appErr.Message
}
