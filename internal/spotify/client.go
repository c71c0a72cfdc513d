// Package spotify implements the catalog and playback transport against
// the Spotify Web API.
//
// All calls go through a shared rate limiter and circuit breaker so a
// misbehaving upstream degrades into typed upstream errors instead of
// piling up blocked callers.
package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Brunsben/TwitchSpotifySRBot/internal/config"
	"github.com/Brunsben/TwitchSpotifySRBot/internal/domain"
	"github.com/Brunsben/TwitchSpotifySRBot/pkg/breaker"
	apperrors "github.com/Brunsben/TwitchSpotifySRBot/pkg/errors"
	"github.com/Brunsben/TwitchSpotifySRBot/pkg/logger"
)

// TokenFunc supplies the current bearer token per request, so a token
// refresher can rotate it without restarting the client.
type TokenFunc func() string

// Client talks to the Spotify Web API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	market     string
	token      TokenFunc
	limiter    *rate.Limiter
	breaker    *breaker.CircuitBreaker
	log        logger.Logger
}

// NewClient creates a Spotify API client.
func NewClient(cfg config.SpotifyConfig, token TokenFunc, log logger.Logger) *Client {
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		market:     cfg.Market,
		token:      token,
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
		breaker: breaker.New(&breaker.Config{
			Name:        "spotify",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
		log: log,
	}
}

// apiTrack is the wire shape of a track object.
type apiTrack struct {
	URI        string `json:"uri"`
	Name       string `json:"name"`
	DurationMS int    `json:"duration_ms"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
}

func (t apiTrack) toDomain() domain.Track {
	out := domain.Track{
		URI:        t.URI,
		Title:      t.Name,
		DurationMS: t.DurationMS,
	}
	for _, a := range t.Artists {
		out.Artists = append(out.Artists, a.Name)
	}
	if len(t.Album.Images) > 0 {
		out.CoverURL = t.Album.Images[0].URL
	}
	return out
}

// Resolve turns a track link or free-text query into a concrete track.
func (c *Client) Resolve(ctx context.Context, query string) (domain.Track, error) {
	if id, ok := ParseTrackID(query); ok {
		return c.GetTrack(ctx, id)
	}
	return c.Search(ctx, query)
}

// Search returns the top track hit for a free-text query.
func (c *Client) Search(ctx context.Context, query string) (domain.Track, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "track")
	q.Set("limit", "1")
	if c.market != "" {
		q.Set("market", c.market)
	}

	var resp struct {
		Tracks struct {
			Items []apiTrack `json:"items"`
		} `json:"tracks"`
	}
	if err := c.do(ctx, http.MethodGet, "/search?"+q.Encode(), nil, &resp); err != nil {
		return domain.Track{}, err
	}
	if len(resp.Tracks.Items) == 0 {
		return domain.Track{}, apperrors.ErrNotFound
	}
	return resp.Tracks.Items[0].toDomain(), nil
}

// GetTrack fetches a track by id.
func (c *Client) GetTrack(ctx context.Context, id string) (domain.Track, error) {
	path := "/tracks/" + url.PathEscape(id)
	if c.market != "" {
		path += "?market=" + url.QueryEscape(c.market)
	}

	var t apiTrack
	if err := c.do(ctx, http.MethodGet, path, nil, &t); err != nil {
		if apperrors.GetCode(err) == apperrors.CodeNotFound {
			return domain.Track{}, apperrors.ErrNotFound
		}
		return domain.Track{}, err
	}
	return t.toDomain(), nil
}

// Play starts playback of the given track URI on the active device.
func (c *Client) Play(ctx context.Context, uri string) error {
	body := map[string]any{"uris": []string{uri}}
	return c.do(ctx, http.MethodPut, "/me/player/play", body, nil)
}

// Pause pauses playback, keeping the current position.
func (c *Client) Pause(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/me/player/pause", nil, nil)
}

// Resume continues playback from the paused position. This is a bare
// play call without a track body; sending a track would restart it.
func (c *Client) Resume(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/me/player/play", nil, nil)
}

// Next skips to the next track on the active device.
func (c *Client) Next(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/me/player/next", nil, nil)
}

// PlayerState is the subset of playback state the orchestrator needs.
type PlayerState struct {
	Playing    bool
	ProgressMS int
	Track      domain.Track
}

// GetPlayerState returns the current playback state, or ErrDeviceAbsent
// when no device is active.
func (c *Client) GetPlayerState(ctx context.Context) (*PlayerState, error) {
	var resp struct {
		IsPlaying  bool      `json:"is_playing"`
		ProgressMS int       `json:"progress_ms"`
		Item       *apiTrack `json:"item"`
	}
	if err := c.do(ctx, http.MethodGet, "/me/player", nil, &resp); err != nil {
		return nil, err
	}
	state := &PlayerState{
		Playing:    resp.IsPlaying,
		ProgressMS: resp.ProgressMS,
	}
	if resp.Item != nil {
		state.Track = resp.Item.toDomain()
	}
	return state, nil
}

// PlaylistTracks fetches all tracks of a playlist, following pagination.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string) ([]domain.Track, error) {
	path := fmt.Sprintf("/playlists/%s/tracks?limit=100", url.PathEscape(playlistID))

	var out []domain.Track
	for path != "" {
		var resp struct {
			Items []struct {
				Track *apiTrack `json:"track"`
			} `json:"items"`
			Next string `json:"next"`
		}
		if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
			return nil, err
		}
		for _, it := range resp.Items {
			if it.Track != nil && it.Track.URI != "" {
				out = append(out, it.Track.toDomain())
			}
		}
		path = relativize(resp.Next, c.baseURL)
	}
	return out, nil
}

// relativize strips the base URL from a pagination link so it can go
// back through do with the client's own base.
func relativize(next, base string) string {
	if next == "" {
		return ""
	}
	if rel, ok := strings.CutPrefix(next, base); ok {
		return rel
	}
	// Unknown host in the pagination link; follow the path portion only.
	if u, err := url.Parse(next); err == nil {
		if u.RawQuery != "" {
			return u.Path + "?" + u.RawQuery
		}
		return u.Path
	}
	return ""
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperrors.ErrTimeout.WithError(err)
	}

	if !c.breaker.Allow() {
		return apperrors.ErrUpstream.WithError(breaker.ErrOpen)
	}

	err := c.roundTrip(ctx, method, path, body, out)
	switch apperrors.GetCode(err) {
	case apperrors.CodeUpstream, apperrors.CodeTimeout:
		c.breaker.RecordFailure()
	default:
		// Policy outcomes (not found, absent device) mean the API itself
		// answered; they do not count against the breaker.
		c.breaker.RecordSuccess()
	}
	return err
}

// roundTrip performs one HTTP exchange and maps the status to the error
// taxonomy.
func (c *Client) roundTrip(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return apperrors.ErrInternal.WithError(err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.ErrInternal.WithError(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			return apperrors.ErrTimeout.WithError(err)
		}
		return apperrors.ErrUpstream.WithError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		if out != nil {
			// No active playback session reports as an absent device.
			return apperrors.ErrDeviceAbsent
		}
		return nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperrors.ErrUpstream.WithError(err)
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		if isPlayerPath(path) {
			return apperrors.ErrDeviceAbsent
		}
		return apperrors.ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.ErrUpstream.WithError(fmt.Errorf("auth rejected: status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.ErrUpstream.WithError(fmt.Errorf("rate limited, retry-after %s", resp.Header.Get("Retry-After")))
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.ErrUpstream.WithError(fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	}
}

func isPlayerPath(path string) bool {
	return strings.HasPrefix(path, "/me/player")
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
