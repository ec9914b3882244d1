// Package track provides the Track domain entity.
package track

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Artist is a credited artist of a track.
type Artist struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name" validate:"required"`
	URI         string `json:"uri,omitempty"`
	Href        string `json:"href,omitempty"`
	ExternalURL string `json:"externalUrl,omitempty"`
}

// Image is an album artwork variant.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height,omitempty"`
	Width  int    `json:"width,omitempty"`
}

// Album is the album a track belongs to.
type Album struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name"`
	AlbumType   string  `json:"albumType,omitempty"`
	URI         string  `json:"uri,omitempty"`
	Href        string  `json:"href,omitempty"`
	ExternalURL string  `json:"externalUrl,omitempty"`
	ReleaseDate string  `json:"releaseDate,omitempty"`
	TotalTracks int     `json:"totalTracks,omitempty"`
	Images      []Image `json:"images,omitempty"`
}

// Track represents a Spotify track entity.
// Contains only information retrieved from Spotify API.
type Track struct {
	SpotifyID   string   `json:"spotifyId" validate:"required"`
	Name        string   `json:"name" validate:"required"`
	URI         string   `json:"uri"`
	Href        string   `json:"href,omitempty"`
	ExternalURL string   `json:"externalUrl,omitempty"`
	DurationMs  int64    `json:"durationMs" validate:"gte=0"`
	Explicit    bool     `json:"explicit"`
	Popularity  int      `json:"popularity,omitempty" validate:"gte=0,lte=100"`
	PreviewURL  string   `json:"previewUrl,omitempty"`
	TrackNumber int      `json:"trackNumber,omitempty"`
	DiscNumber  int      `json:"discNumber,omitempty"`
	IsLocal     bool     `json:"isLocal,omitempty"`
	IsPlayable  *bool    `json:"isPlayable,omitempty"` // nil if market not specified
	Artists     []Artist `json:"artists" validate:"dive"`
	Album       Album    `json:"album"`
}

// Duration returns the track length.
func (t *Track) Duration() time.Duration {
	return time.Duration(t.DurationMs) * time.Millisecond
}

// ArtistNames returns the names of all credited artists.
func (t *Track) ArtistNames() []string {
	names := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		names[i] = a.Name
	}
	return names
}

// AlbumArtURL returns the largest album image, which Spotify lists first.
func (t *Track) AlbumArtURL() string {
	if len(t.Album.Images) == 0 {
		return ""
	}
	return t.Album.Images[0].URL
}

// PlaybackURI returns the track URI, deriving it from the ID when absent.
func (t *Track) PlaybackURI() string {
	if t.URI != "" {
		return t.URI
	}
	return "spotify:track:" + t.SpotifyID
}

// Playable reports whether the track can be played.
// Tracks without market information are assumed playable.
func (t *Track) Playable() bool {
	if t.IsLocal {
		return false
	}
	if t.IsPlayable != nil {
		return *t.IsPlayable
	}
	return true
}

// String returns "Name - Artist, Artist".
func (t *Track) String() string {
	if len(t.Artists) == 0 {
		return t.Name
	}
	return t.Name + " - " + strings.Join(t.ArtistNames(), ", ")
}

// Validate checks that the track carries the fields the queue relies on.
func (t *Track) Validate() error {
	if err := validate.Struct(t); err != nil {
		return errors.Wrap(err, "invalid track")
	}
	return nil
}

// IDs returns the spotify ids of the given tracks in order.
func IDs(tracks []Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.SpotifyID
	}
	return ids
}
