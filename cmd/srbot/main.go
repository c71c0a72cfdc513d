package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/Brunsben/TwitchSpotifySRBot/internal/broadcast"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/command"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/config"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/gate"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/history"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/player"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/queue"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/server"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/spotify"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/twitch"
	"github.com/Brunsben/TwitchSpotifySRBot/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "srbot: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfgStore, err := config.LoadStore(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := cfgStore.Current()

	log := logger.New(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Output: os.Stdout,
	})

	cfgStore.OnChange(func(next *config.Config) {
		log.SetLevel(logger.ParseLevel(next.Log.Level))
		log.Info("configuration reloaded")
	})
	cfgStore.Watch(func(err error) {
		log.Warn("config reload rejected", logger.Error(err))
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := pingRedis(ctx, rdb); err != nil {
		log.Warn("redis unavailable, history and stats will fail until it returns",
			logger.String("addr", cfg.Redis.Addr),
			logger.Error(err))
	}
	hist := history.NewStore(rdb, log)

	catalog := spotify.NewClient(cfg.Spotify, func() string {
		return cfgStore.Current().Spotify.AccessToken
	}, log)

	q := queue.NewStore(func() config.RulesConfig { return cfgStore.Current().Rules })
	blacklist := gate.NewBlacklist(cfg.Blacklist)
	cooldowns := gate.NewCooldownLedger()
	requestGate := gate.New(cfgStore, q, blacklist, cooldowns, catalog, log)

	hub := broadcast.NewHub(log)
	autopilot := player.NewAutopilot(cfg.Spotify.ShuffleFallback)
	orch := player.New(q, catalog, autopilot, hub, hist, log)

	dispatcher := command.NewDispatcher(cfgStore, log)
	command.NewHandlers(cfgStore, requestGate, q, orch, blacklist, catalog, hist).RegisterAll(dispatcher)

	bot := twitch.NewBot(cfgStore, dispatcher, log)
	srv := server.New(cfgStore, hub, q, hist, log)

	refreshPlaylist := func() {
		id := cfgStore.Current().Spotify.FallbackPlaylistID
		if id == "" {
			return
		}
		loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tracks, err := catalog.PlaylistTracks(loadCtx, id)
		if err != nil {
			log.Warn("fallback playlist refresh failed", logger.Error(err))
			return
		}
		autopilot.SetTracks(tracks)
		log.Info("fallback playlist loaded", logger.Int("tracks", len(tracks)))
	}
	refreshPlaylist()

	sched := cron.New()
	if _, err := sched.AddFunc("@every 1h", refreshPlaylist); err != nil {
		return fmt.Errorf("schedule playlist refresh: %w", err)
	}
	if _, err := sched.AddFunc("@every 15m", func() {
		if n := cooldowns.Sweep(); n > 0 {
			log.Debug("cooldown sweep", logger.Int("dropped", n))
		}
	}); err != nil {
		return fmt.Errorf("schedule cooldown sweep: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	g.Go(func() error { return orch.Run(ctx) })
	g.Go(func() error { return bot.Run(ctx) })

	log.Info("srbot started",
		logger.String("channel", cfg.Twitch.Channel),
		logger.Int("http_port", cfg.Server.HTTPPort))
	return g.Wait()
}

func pingRedis(ctx context.Context, rdb *redis.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return rdb.Ping(pingCtx).Err()
}
