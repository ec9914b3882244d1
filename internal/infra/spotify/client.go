// Package spotify provides the Spotify Web API client used as the playback source.
package spotify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/osa030/19queue/internal/domain/queue"
	"github.com/osa030/19queue/internal/domain/track"
)

// Scopes are the permissions the refresh token must carry.
var Scopes = []string{
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopePlaylistReadPrivate,
}

// Client is a Spotify API client.
type Client struct {
	client     *spotify.Client
	market     string
	maxRetries int
	retryDelay time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Market       string
}

// New creates a new Spotify client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(Scopes...),
	)

	// the access token is obtained lazily from the refresh token
	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}
	httpClient := auth.Client(ctx, token)

	return newWithClient(spotify.New(httpClient), cfg.Market), nil
}

func newWithClient(c *spotify.Client, market string) *Client {
	if market == "" {
		market = "JP"
	}
	return &Client{
		client:     c,
		market:     market,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// NowPlaying returns the player state, or nil when nothing is playing.
func (c *Client) NowPlaying(ctx context.Context) (*queue.NowPlaying, error) {
	var state *spotify.PlayerState
	err := c.retry(ctx, func() error {
		s, err := c.client.PlayerState(ctx, spotify.Market(c.market))
		if err != nil {
			return err
		}
		state = s
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get player state")
	}
	// 204 No Content decodes to an empty state
	if state == nil || state.Item == nil || state.Item.ID == "" {
		return nil, nil
	}

	return &queue.NowPlaying{
		Track:        *c.convertTrack(state.Item),
		ProgressMs:   int64(state.Progress),
		IsPlaying:    state.Playing,
		Device:       convertDevice(state.Device),
		ShuffleState: state.ShuffleState,
		RepeatState:  state.RepeatState,
		Timestamp:    state.Timestamp,
	}, nil
}

// UpcomingQueue returns the current track and the tracks the player will play next.
func (c *Client) UpcomingQueue(ctx context.Context) (*queue.Upcoming, error) {
	var q *spotify.Queue
	err := c.retry(ctx, func() error {
		r, err := c.client.GetQueue(ctx)
		if err != nil {
			return err
		}
		q = r
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get player queue")
	}

	out := &queue.Upcoming{Items: make([]track.Track, 0, len(q.Items))}
	if q.CurrentlyPlaying.ID != "" {
		out.CurrentlyPlaying = c.convertTrack(&q.CurrentlyPlaying)
	}
	for i := range q.Items {
		// episodes decode without a track id
		if q.Items[i].ID == "" {
			continue
		}
		out.Items = append(out.Items, *c.convertTrack(&q.Items[i]))
	}
	return out, nil
}

// Enqueue adds a track to the active device's queue.
func (c *Client) Enqueue(ctx context.Context, uri string) error {
	id := extractTrackID(uri)
	if id == "" {
		return errors.New("track id is required")
	}
	err := c.retry(ctx, func() error {
		return c.client.QueueSong(ctx, spotify.ID(id))
	})
	if err != nil {
		return errors.Wrapf(err, "failed to queue track %s", id)
	}
	return nil
}

// Devices lists the user's available playback devices.
func (c *Client) Devices(ctx context.Context) ([]queue.Device, error) {
	var devices []spotify.PlayerDevice
	err := c.retry(ctx, func() error {
		d, err := c.client.PlayerDevices(ctx)
		if err != nil {
			return err
		}
		devices = d
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list devices")
	}

	out := make([]queue.Device, len(devices))
	for i, d := range devices {
		out[i] = convertDevice(d)
	}
	return out, nil
}

// GetTrack retrieves track information by ID, URL, or URI.
func (c *Client) GetTrack(ctx context.Context, trackID string) (*track.Track, error) {
	id := extractTrackID(trackID)
	if id == "" {
		return nil, errors.New("track id is required")
	}

	var result *spotify.FullTrack
	err := c.retry(ctx, func() error {
		t, err := c.client.GetTrack(ctx, spotify.ID(id), spotify.Market(c.market))
		if err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get track")
	}

	return c.convertTrack(result), nil
}

// Search searches for tracks on Spotify.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]track.Track, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("search query is required")
	}

	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	var result *spotify.SearchResult
	err := c.retry(ctx, func() error {
		r, err := c.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit), spotify.Market(c.market))
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to search")
	}

	tracks := []track.Track{}
	if result.Tracks == nil {
		return tracks, nil
	}
	for i := range result.Tracks.Tracks {
		tracks = append(tracks, *c.convertTrack(&result.Tracks.Tracks[i]))
	}
	return tracks, nil
}

// GetPlaylistTracks retrieves all tracks from a Spotify playlist.
func (c *Client) GetPlaylistTracks(ctx context.Context, playlistURL string) ([]track.Track, error) {
	playlistID := extractPlaylistID(playlistURL)
	if playlistID == "" {
		return nil, errors.New("invalid playlist URL")
	}

	tracks := []track.Track{}
	offset := 0
	limit := 100

	for {
		var page *spotify.PlaylistItemPage
		err := c.retry(ctx, func() error {
			p, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID),
				spotify.Limit(limit),
				spotify.Offset(offset),
				spotify.Market(c.market),
			)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get playlist items")
		}

		for _, item := range page.Items {
			// Only process tracks (exclude episodes)
			if item.Track.Track != nil && item.Track.Track.ID != "" {
				tracks = append(tracks, *c.convertTrack(item.Track.Track))
			}
		}

		if len(page.Items) < limit {
			break
		}
		offset += limit
	}

	return tracks, nil
}

// convertTrack converts a Spotify FullTrack to domain Track.
func (c *Client) convertTrack(t *spotify.FullTrack) *track.Track {
	artists := make([]track.Artist, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = track.Artist{
			ID:          string(a.ID),
			Name:        a.Name,
			URI:         string(a.URI),
			Href:        a.Endpoint,
			ExternalURL: a.ExternalURLs["spotify"],
		}
	}

	images := make([]track.Image, len(t.Album.Images))
	for i, img := range t.Album.Images {
		images[i] = track.Image{URL: img.URL, Height: int(img.Height), Width: int(img.Width)}
	}

	externalURL := t.ExternalURLs["spotify"]
	if externalURL == "" {
		externalURL = GetTrackURL(string(t.ID))
	}

	return &track.Track{
		SpotifyID:   string(t.ID),
		Name:        t.Name,
		URI:         string(t.URI),
		Href:        t.Endpoint,
		ExternalURL: externalURL,
		DurationMs:  int64(t.Duration),
		Explicit:    t.Explicit,
		Popularity:  int(t.Popularity),
		PreviewURL:  t.PreviewURL,
		TrackNumber: int(t.TrackNumber),
		DiscNumber:  int(t.DiscNumber),
		IsPlayable:  t.IsPlayable,
		Artists:     artists,
		Album: track.Album{
			ID:          string(t.Album.ID),
			Name:        t.Album.Name,
			AlbumType:   t.Album.AlbumType,
			URI:         string(t.Album.URI),
			ExternalURL: t.Album.ExternalURLs["spotify"],
			ReleaseDate: t.Album.ReleaseDate,
			Images:      images,
		},
	}
}

func convertDevice(d spotify.PlayerDevice) queue.Device {
	return queue.Device{
		ID:            string(d.ID),
		Name:          d.Name,
		Type:          d.Type,
		IsActive:      d.Active,
		VolumePercent: int(d.Volume),
	}
}

// GetTrackURL returns the Spotify URL for a track.
func GetTrackURL(trackID string) string {
	return fmt.Sprintf("https://open.spotify.com/track/%s", trackID)
}

// retry retries an operation with linear backoff. It stops early when ctx is done.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			select {
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), "retry aborted")
			case <-time.After(c.retryDelay * time.Duration(i+1)):
			}
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}

// extractPlaylistID extracts the playlist ID from a Spotify playlist URL or URI.
func extractPlaylistID(input string) string {
	return extractID(input, "playlist")
}

// extractTrackID extracts the track ID from a Spotify track URL or URI.
func extractTrackID(input string) string {
	return extractID(input, "track")
}

// extractID handles "spotify:<kind>:ID", "https://open.spotify.com[/intl-xx]/<kind>/ID?..."
// and bare ids.
func extractID(input, kind string) string {
	input = strings.TrimSpace(input)
	if prefix := "spotify:" + kind + ":"; strings.HasPrefix(input, prefix) {
		return strings.TrimPrefix(input, prefix)
	}

	sep := "/" + kind + "/"
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, sep) {
		parts := strings.Split(input, sep)
		id := strings.Split(parts[len(parts)-1], "?")[0]
		return strings.TrimRight(id, "/")
	}

	return input
}
