// Package playlists implements the owner-scoped playlist engine.
package playlists

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19queue/internal/app/notification"
	"github.com/osa030/19queue/internal/app/position"
	"github.com/osa030/19queue/internal/domain/errs"
	"github.com/osa030/19queue/internal/domain/playlist"
	"github.com/osa030/19queue/internal/domain/track"
	"github.com/osa030/19queue/internal/infra/store"
)

// Engine manages playlists. Moderation policy does not apply here; every
// mutation requires the caller to own the playlist.
type Engine struct {
	mu    sync.Mutex
	store *store.Store
	pub   notification.Publisher
	now   func() time.Time
	newID func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithPublisher sets where playlist_changed events go.
func WithPublisher(p notification.Publisher) Option {
	return func(e *Engine) { e.pub = p }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a playlist engine.
func NewEngine(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store: s,
		pub:   notification.Discard,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateInput holds the fields of a new playlist.
type CreateInput struct {
	Name        string
	Description string
	Image       string
	IsPublic    bool
}

// Create makes an empty playlist owned by ownerID.
func (e *Engine) Create(ctx context.Context, ownerID string, in CreateInput) (*playlist.Playlist, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, errors.Wrap(errs.ErrInvalidArgument, "playlist name is required")
	}

	now := e.now()
	p := &playlist.Playlist{
		ID:          e.newID(),
		Name:        in.Name,
		Description: in.Description,
		Image:       in.Image,
		IsPublic:    in.IsPublic,
		OwnerID:     ownerID,
		Tracks:      []playlist.Item{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := e.store.InTx(ctx, func(q *store.Queries) error {
		if _, err := q.GetUser(ctx, ownerID); err != nil {
			return err
		}
		return q.InsertPlaylist(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	zlog.Info().Msgf("Playlist created: id=%s owner=%s name=%s", p.ID, ownerID, p.Name)
	e.changed(ctx, "create", p.ID)
	return p, nil
}

// Get returns a playlist visible to viewer. Private playlists of other users
// are reported as not found.
func (e *Engine) Get(ctx context.Context, id, viewer string) (*playlist.Playlist, error) {
	p, err := e.store.Queries().GetPlaylist(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsPublic && p.OwnerID != viewer {
		return nil, errors.Wrapf(errs.ErrNotFound, "playlist %s", id)
	}
	return p, nil
}

// GetUserPlaylists returns every playlist owned by ownerID, newest first.
func (e *Engine) GetUserPlaylists(ctx context.Context, ownerID string) ([]playlist.Playlist, error) {
	return e.store.Queries().ListPlaylistsByOwner(ctx, ownerID)
}

// GetPublicPlaylists returns every public playlist, newest first.
func (e *Engine) GetPublicPlaylists(ctx context.Context) ([]playlist.Playlist, error) {
	return e.store.Queries().ListPublicPlaylists(ctx)
}

// Update patches playlist metadata.
func (e *Engine) Update(ctx context.Context, id, caller string, patch playlist.Patch) (*playlist.Playlist, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, errors.Wrap(errs.ErrInvalidArgument, "playlist name is required")
	}
	return e.modify(ctx, id, caller, "update", func(p *playlist.Playlist) error {
		p.Apply(patch, e.now())
		return nil
	})
}

// Delete removes a playlist.
func (e *Engine) Delete(ctx context.Context, id, caller string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.store.InTx(ctx, func(q *store.Queries) error {
		p, err := q.GetPlaylist(ctx, id)
		if err != nil {
			return err
		}
		if err := checkOwner(p, caller); err != nil {
			return err
		}
		return q.DeletePlaylist(ctx, id)
	})
	if err != nil {
		return err
	}

	zlog.Info().Msgf("Playlist deleted: id=%s by=%s", id, caller)
	e.changed(ctx, "delete", id)
	return nil
}

// AddTrack appends a track. A track already in the playlist is AlreadyExists.
func (e *Engine) AddTrack(ctx context.Context, id, caller string, t track.Track) (*playlist.Playlist, error) {
	if err := t.Validate(); err != nil {
		return nil, errors.Mark(err, errs.ErrInvalidArgument)
	}
	return e.modify(ctx, id, caller, "add_track", func(p *playlist.Playlist) error {
		if p.Contains(t.SpotifyID) {
			return errors.Wrapf(errs.ErrAlreadyExists, "track %s in playlist %s", t.SpotifyID, id)
		}
		now := e.now()
		p.Tracks = append(p.Tracks, playlist.Item{Track: t, AddedAt: now})
		p.UpdatedAt = now
		return nil
	})
}

// RemoveTrack removes a track by spotify id.
func (e *Engine) RemoveTrack(ctx context.Context, id, caller, spotifyID string) (*playlist.Playlist, error) {
	return e.modify(ctx, id, caller, "remove_track", func(p *playlist.Playlist) error {
		i := p.IndexOf(spotifyID)
		if i < 0 {
			return errors.Wrapf(errs.ErrNotFound, "track %s in playlist %s", spotifyID, id)
		}
		p.Tracks = append(p.Tracks[:i], p.Tracks[i+1:]...)
		p.UpdatedAt = e.now()
		return nil
	})
}

// BulkAdd appends every track not already present and returns how many were added.
func (e *Engine) BulkAdd(ctx context.Context, id, caller string, tracks []track.Track) (int, error) {
	for i := range tracks {
		if err := tracks[i].Validate(); err != nil {
			return 0, errors.Mark(errors.Wrapf(err, "track %d", i), errs.ErrInvalidArgument)
		}
	}

	added := 0
	_, err := e.modify(ctx, id, caller, "bulk_add", func(p *playlist.Playlist) error {
		now := e.now()
		for _, t := range tracks {
			if p.Contains(t.SpotifyID) {
				continue
			}
			p.Tracks = append(p.Tracks, playlist.Item{Track: t, AddedAt: now})
			added++
		}
		if added > 0 {
			p.UpdatedAt = now
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// Reorder moves the track at index from to index to.
func (e *Engine) Reorder(ctx context.Context, id, caller string, from, to int) (*playlist.Playlist, error) {
	return e.modify(ctx, id, caller, "reorder", func(p *playlist.Playlist) error {
		tracks, err := position.Splice(p.Tracks, from, to)
		if err != nil {
			return errors.Mark(err, errs.ErrInvalidArgument)
		}
		p.Tracks = tracks
		p.UpdatedAt = e.now()
		return nil
	})
}

// modify loads a playlist, checks ownership, applies fn and saves the result
// in one transaction.
func (e *Engine) modify(ctx context.Context, id, caller, reason string, fn func(p *playlist.Playlist) error) (*playlist.Playlist, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out *playlist.Playlist
	err := e.store.InTx(ctx, func(q *store.Queries) error {
		p, err := q.GetPlaylist(ctx, id)
		if err != nil {
			return err
		}
		if err := checkOwner(p, caller); err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		out = p
		return q.UpdatePlaylist(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	zlog.Debug().Msgf("Playlist modified: id=%s op=%s tracks=%d", id, reason, len(out.Tracks))
	e.changed(ctx, reason, id)
	return out, nil
}

func checkOwner(p *playlist.Playlist, caller string) error {
	if p.OwnerID != caller {
		return errors.Wrapf(errs.ErrPermissionDenied, "playlist %s belongs to another user", p.ID)
	}
	return nil
}

func (e *Engine) changed(ctx context.Context, reason, id string) {
	e.pub.Publish(ctx, notification.Event{
		Type:      notification.EventPlaylistChanged,
		Reason:    reason,
		SubjectID: id,
	})
}
