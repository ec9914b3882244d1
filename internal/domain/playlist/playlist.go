// Package playlist provides the Playlist domain entity.
package playlist

import (
	"time"

	"github.com/osa030/19queue/internal/domain/track"
)

// Item is a track saved in a playlist.
type Item struct {
	Track   track.Track `json:"track"`
	AddedAt time.Time   `json:"addedAt"`
}

// Playlist is a user-authored ordered list of tracks.
type Playlist struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	IsPublic    bool      `json:"isPublic"`
	OwnerID     string    `json:"ownerId"`
	Tracks      []Item    `json:"tracks"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TrackIDs returns all track IDs in the playlist.
func (p *Playlist) TrackIDs() []string {
	ids := make([]string, len(p.Tracks))
	for i, t := range p.Tracks {
		ids[i] = t.Track.SpotifyID
	}
	return ids
}

// TotalDuration returns the total duration of all tracks.
func (p *Playlist) TotalDuration() time.Duration {
	var total time.Duration
	for _, t := range p.Tracks {
		total += t.Track.Duration()
	}
	return total
}

// IndexOf returns the index of the track with the given spotify id, or -1.
func (p *Playlist) IndexOf(spotifyID string) int {
	for i, t := range p.Tracks {
		if t.Track.SpotifyID == spotifyID {
			return i
		}
	}
	return -1
}

// Contains reports whether the playlist already holds the track.
func (p *Playlist) Contains(spotifyID string) bool {
	return p.IndexOf(spotifyID) >= 0
}

// Patch carries a partial playlist update. Nil fields are left unchanged.
type Patch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Image       *string `json:"image,omitempty"`
	IsPublic    *bool   `json:"isPublic,omitempty"`
}

// Apply applies the patch in place.
func (p *Playlist) Apply(patch Patch, now time.Time) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
	if patch.IsPublic != nil {
		p.IsPublic = *patch.IsPublic
	}
	p.UpdatedAt = now
}
