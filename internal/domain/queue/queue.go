// Package queue provides the shared queue domain entities.
package queue

import (
	"time"

	"github.com/osa030/19queue/internal/domain/track"
)

// Status is the lifecycle state of a queue entry.
type Status string

const (
	StatusPending Status = "pending"
	StatusPlaying Status = "playing"
	StatusPlayed  Status = "played"
	StatusSkipped Status = "skipped"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPlaying, StatusPlayed, StatusSkipped:
		return true
	}
	return false
}

// Terminal reports whether entries in this status leave the live queue.
func (s Status) Terminal() bool {
	return s == StatusPlayed || s == StatusSkipped
}

// Entry is a track submitted to the shared queue.
type Entry struct {
	ID          string      `json:"id"`
	Track       track.Track `json:"track"`
	AddedBy     string      `json:"addedBy"` // submitter email
	AddedAt     time.Time   `json:"addedAt"`
	Position    int         `json:"position"`
	Status      Status      `json:"status"`
	PlayedAt    *time.Time  `json:"playedAt,omitempty"`
	SkippedAt   *time.Time  `json:"skippedAt,omitempty"`
	SkipReason  string      `json:"skipReason,omitempty"`
	RequestedBy string      `json:"requestedBy,omitempty"`
	Notes       string      `json:"notes,omitempty"`
	Priority    int         `json:"priority,omitempty"`
}

// SpotifyID returns the id of the queued track.
func (e *Entry) SpotifyID() string {
	return e.Track.SpotifyID
}

// HistoryEntry is the archived copy of an entry that was played or skipped.
type HistoryEntry struct {
	ID          string      `json:"id"`
	EntryID     string      `json:"entryId"`
	Track       track.Track `json:"track"`
	AddedBy     string      `json:"addedBy"`
	AddedAt     time.Time   `json:"addedAt"`
	PlayedAt    time.Time   `json:"playedAt"`
	WasSkipped  bool        `json:"wasSkipped"`
	SkipReason  string      `json:"skipReason,omitempty"`
	RequestedBy string      `json:"requestedBy,omitempty"`
	Notes       string      `json:"notes,omitempty"`
}

// NewHistoryEntry archives e as it leaves the queue with the given status.
// PlayedAt keeps the time playback started when known.
func NewHistoryEntry(id string, e *Entry, status Status, skipReason string, now time.Time) *HistoryEntry {
	playedAt := now
	if e.PlayedAt != nil {
		playedAt = *e.PlayedAt
	}
	h := &HistoryEntry{
		ID:          id,
		EntryID:     e.ID,
		Track:       e.Track,
		AddedBy:     e.AddedBy,
		AddedAt:     e.AddedAt,
		PlayedAt:    playedAt,
		WasSkipped:  status == StatusSkipped,
		RequestedBy: e.RequestedBy,
		Notes:       e.Notes,
	}
	if h.WasSkipped {
		h.SkipReason = skipReason
	}
	return h
}

// Device describes the Spotify device currently playing.
type Device struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	IsActive      bool   `json:"isActive"`
	VolumePercent int    `json:"volumePercent"`
}

// NowPlaying is the singleton snapshot of the external player.
type NowPlaying struct {
	Track        track.Track `json:"track"`
	ProgressMs   int64       `json:"progressMs"`
	IsPlaying    bool        `json:"isPlaying"`
	Device       Device      `json:"device"`
	ShuffleState bool        `json:"shuffleState"`
	RepeatState  string      `json:"repeatState"`
	Timestamp    int64       `json:"timestamp"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// Upcoming is the external player's view of what plays next.
type Upcoming struct {
	CurrentlyPlaying *track.Track  `json:"currentlyPlaying,omitempty"`
	Items            []track.Track `json:"items"`
}
