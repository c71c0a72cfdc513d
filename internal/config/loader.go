package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Loader loads configuration from YAML files and environment variables.
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader. An empty path falls back to the
// default search locations.
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// Load reads, unmarshals and validates the configuration.
func (l *Loader) Load() (*Config, *viper.Viper, error) {
	v := viper.New()

	if l.configPath != "" {
		v.SetConfigFile(l.configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SRBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional when everything comes from env.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks config values that would otherwise fail at runtime.
func Validate(cfg *Config) error {
	if cfg.Rules.MaxQueueSize < 1 {
		return fmt.Errorf("rules.max_queue_size must be >= 1, got %d", cfg.Rules.MaxQueueSize)
	}
	if cfg.Rules.MaxPerUser < 1 {
		return fmt.Errorf("rules.max_per_user must be >= 1, got %d", cfg.Rules.MaxPerUser)
	}
	if cfg.Rules.MaxSongLength <= 0 {
		return fmt.Errorf("rules.max_song_length must be positive, got %v", cfg.Rules.MaxSongLength)
	}
	if cfg.Rules.SongCooldown < 0 || cfg.Rules.UserCooldown < 0 {
		return fmt.Errorf("cooldowns must not be negative")
	}
	if cfg.Spotify.Timeout <= 0 {
		return fmt.Errorf("spotify.timeout must be positive, got %v", cfg.Spotify.Timeout)
	}
	for _, e := range cfg.Blacklist {
		if e.Type != "song" && e.Type != "artist" {
			return fmt.Errorf("blacklist entry %q has unknown type %q", e.Pattern, e.Type)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Twitch defaults
	v.SetDefault("twitch.command_prefix", "!")

	// Spotify defaults
	v.SetDefault("spotify.base_url", "https://api.spotify.com/v1")
	v.SetDefault("spotify.timeout", 10*time.Second)
	v.SetDefault("spotify.rate_limit", 5)
	v.SetDefault("spotify.shuffle_fallback", true)

	// Rules defaults
	v.SetDefault("rules.max_queue_size", 20)
	v.SetDefault("rules.max_per_user", 3)
	v.SetDefault("rules.max_song_length", 10*time.Minute)
	v.SetDefault("rules.song_cooldown", 30*time.Minute)
	v.SetDefault("rules.user_cooldown", 0)
	v.SetDefault("rules.smart_voting", true)

	// Bypass defaults: moderators and above skip every bypassable check
	v.SetDefault("bypass.blacklist", "moderator")
	v.SetDefault("bypass.length", "moderator")
	v.SetDefault("bypass.cooldown", "moderator")
	v.SetDefault("bypass.duplicate", "moderator")

	// Server defaults
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// Log defaults
	v.SetDefault("log.level", "info")
}
