// Package config provides configuration management for the song-request engine.
//
// Configuration is loaded from a YAML file plus environment variables and
// held behind an atomic pointer; live updates replace the whole value,
// never individual fields of a config in use.
package config

import (
	"time"

	"github.com/Brunsben/TwitchSpotifySRBot/internal/domain"
)

// Config represents the application configuration.
type Config struct {
	Twitch    TwitchConfig      `mapstructure:"twitch"`
	Spotify   SpotifyConfig     `mapstructure:"spotify"`
	Rules     RulesConfig       `mapstructure:"rules"`
	Bypass    BypassConfig      `mapstructure:"bypass"`
	Blacklist []BlacklistEntry  `mapstructure:"blacklist"`
	Commands  map[string]string `mapstructure:"commands"` // command name -> minimum tier
	Server    ServerConfig      `mapstructure:"server"`
	Redis     RedisConfig       `mapstructure:"redis"`
	Log       LogConfig         `mapstructure:"log"`
}

// TwitchConfig holds chat transport settings.
type TwitchConfig struct {
	Channel       string `mapstructure:"channel"`
	BotUsername   string `mapstructure:"bot_username"`
	OAuthToken    string `mapstructure:"oauth_token"`
	CommandPrefix string `mapstructure:"command_prefix"`
}

// SpotifyConfig holds catalog/playback collaborator settings.
type SpotifyConfig struct {
	BaseURL            string        `mapstructure:"base_url"`
	AccessToken        string        `mapstructure:"access_token"`
	Market             string        `mapstructure:"market"`
	Timeout            time.Duration `mapstructure:"timeout"`
	RateLimit          int           `mapstructure:"rate_limit"` // requests per second
	FallbackPlaylistID string        `mapstructure:"fallback_playlist_id"`
	ShuffleFallback    bool          `mapstructure:"shuffle_fallback"`
}

// RulesConfig holds queue and request policy settings.
type RulesConfig struct {
	MaxQueueSize  int           `mapstructure:"max_queue_size"`
	MaxPerUser    int           `mapstructure:"max_per_user"`
	MaxSongLength time.Duration `mapstructure:"max_song_length"`
	SongCooldown  time.Duration `mapstructure:"song_cooldown"` // zero disables
	UserCooldown  time.Duration `mapstructure:"user_cooldown"` // zero disables
	SmartVoting   bool          `mapstructure:"smart_voting"`
}

// BypassConfig names the minimum tier exempt from each bypassable check.
// Each check is configured independently.
type BypassConfig struct {
	Blacklist string `mapstructure:"blacklist"`
	Length    string `mapstructure:"length"`
	Cooldown  string `mapstructure:"cooldown"`
	Duplicate string `mapstructure:"duplicate"`
}

// BlacklistTier returns the parsed blacklist bypass tier.
func (b BypassConfig) BlacklistTier() domain.Tier { return parseBypass(b.Blacklist) }

// LengthTier returns the parsed length bypass tier.
func (b BypassConfig) LengthTier() domain.Tier { return parseBypass(b.Length) }

// CooldownTier returns the parsed cooldown bypass tier.
func (b BypassConfig) CooldownTier() domain.Tier { return parseBypass(b.Cooldown) }

// DuplicateTier returns the parsed duplicate bypass tier.
func (b BypassConfig) DuplicateTier() domain.Tier { return parseBypass(b.Duplicate) }

func parseBypass(s string) domain.Tier {
	if s == "" {
		return domain.TierModerator
	}
	return domain.ParseTier(s)
}

// BlacklistEntry is one configured blacklist pattern.
type BlacklistEntry struct {
	Pattern string `mapstructure:"pattern"`
	Type    string `mapstructure:"type"` // "song" or "artist"
}

// ServerConfig holds the overlay/API HTTP server settings.
type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RedisConfig holds play-history store settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// CommandTier returns the minimum tier for a command, defaulting per the
// built-in permission table when the command is not configured.
func (c *Config) CommandTier(command string) domain.Tier {
	if v, ok := c.Commands[command]; ok {
		return domain.ParseTier(v)
	}
	if t, ok := defaultCommandTiers[command]; ok {
		return t
	}
	return domain.TierBroadcaster
}

// defaultCommandTiers is the built-in permission table.
var defaultCommandTiers = map[string]domain.Tier{
	"sr":             domain.TierEveryone,
	"queue":          domain.TierEveryone,
	"song":           domain.TierEveryone,
	"currentsong":    domain.TierEveryone,
	"songinfo":       domain.TierEveryone,
	"wrongsong":      domain.TierEveryone,
	"help":           domain.TierEveryone,
	"stats":          domain.TierEveryone,
	"skip":           domain.TierModerator,
	"pause":          domain.TierModerator,
	"resume":         domain.TierModerator,
	"forceplay":      domain.TierModerator,
	"clearqueue":     domain.TierModerator,
	"pauserequests":  domain.TierModerator,
	"resumerequests": domain.TierModerator,
	"blacklist":      domain.TierModerator,
}
