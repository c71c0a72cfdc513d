// Package server exposes the HTTP surface: overlay page, JSON API and
// the websocket feed of now-playing snapshots.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Brunsben/TwitchSpotifySRBot/internal/broadcast"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/config"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/history"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/queue"
	"github.com/Brunsben/TwitchSpotifySRBot/pkg/logger"
)

// HistorySource provides play history and statistics for the API.
type HistorySource interface {
	Recent(ctx context.Context, n int) ([]history.Entry, error)
	Stats(ctx context.Context) (*history.Stats, error)
}

// Server is the HTTP/websocket front of the engine.
type Server struct {
	cfg     *config.Store
	hub     *broadcast.Hub
	queue   *queue.Store
	history HistorySource
	log     logger.Logger

	engine *gin.Engine
}

// New creates the server and registers all routes.
func New(cfg *config.Store, hub *broadcast.Hub, q *queue.Store, hist HistorySource, log logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:     cfg,
		hub:     hub,
		queue:   q,
		history: hist,
		log:     log,
		engine:  gin.New(),
	}
	s.engine.Use(gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/overlay", s.handleOverlay)
	s.engine.GET("/ws", s.handleWS)

	api := s.engine.Group("/api")
	{
		api.GET("/current", s.handleCurrent)
		api.GET("/queue", s.handleQueue)
		api.GET("/history", s.handleHistory)
		api.GET("/stats", s.handleStats)
	}
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	cfg := s.cfg.Current()
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	s.log.Info("http server listening", logger.Int("port", cfg.Server.HTTPPort))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCurrent(c *gin.Context) {
	c.JSON(http.StatusOK, s.hub.Current())
}

// queueItem is the API shape of one queued request.
type queueItem struct {
	Position    int    `json:"position"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	RequestedBy string `json:"requestedBy"`
	Votes       int    `json:"votes"`
	Pinned      bool   `json:"pinned"`
	Duration    string `json:"duration"`
}

func (s *Server) handleQueue(c *gin.Context) {
	items := s.queue.List()
	out := make([]queueItem, len(items))
	for i, it := range items {
		out[i] = queueItem{
			Position:    i + 1,
			Title:       it.Track.Title,
			Artist:      it.Track.Artist(),
			RequestedBy: it.RequestedBy,
			Votes:       it.Votes(),
			Pinned:      it.Pinned,
			Duration:    it.Track.DurationString(),
		}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(out), "items": out})
}

func (s *Server) handleHistory(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	entries, err := s.history.Recent(ctx, limit)
	if err != nil {
		s.log.Error("history lookup failed", logger.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "history unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(entries), "items": entries})
}

func (s *Server) handleStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	stats, err := s.history.Stats(ctx)
	if err != nil {
		s.log.Error("stats aggregation failed", logger.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "stats unavailable"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
