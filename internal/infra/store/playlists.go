package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/osa030/19queue/internal/domain/errs"
	"github.com/osa030/19queue/internal/domain/playlist"
)

const playlistColumns = `id, name, description, image, is_public, owner_id, tracks, created_at, updated_at`

// InsertPlaylist stores a new playlist.
func (q *Queries) InsertPlaylist(ctx context.Context, p *playlist.Playlist) error {
	tracks, err := encodeItems(p.Tracks)
	if err != nil {
		return err
	}
	_, err = q.exec(ctx,
		`INSERT INTO playlists (`+playlistColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.Image, p.IsPublic, p.OwnerID, tracks,
		toMillis(p.CreatedAt), toMillis(p.UpdatedAt))
	if err != nil {
		return errors.Wrap(err, "failed to insert playlist")
	}
	return nil
}

// UpdatePlaylist rewrites metadata and the embedded track list.
func (q *Queries) UpdatePlaylist(ctx context.Context, p *playlist.Playlist) error {
	tracks, err := encodeItems(p.Tracks)
	if err != nil {
		return err
	}
	res, err := q.exec(ctx,
		`UPDATE playlists SET name = ?, description = ?, image = ?, is_public = ?, tracks = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Description, p.Image, p.IsPublic, tracks, toMillis(p.UpdatedAt), p.ID)
	if err != nil {
		return errors.Wrap(err, "failed to update playlist")
	}
	return affected(res, "playlist "+p.ID)
}

// GetPlaylist returns the playlist with the given id.
func (q *Queries) GetPlaylist(ctx context.Context, id string) (*playlist.Playlist, error) {
	row := q.queryRow(ctx, `SELECT `+playlistColumns+` FROM playlists WHERE id = ?`, id)
	p, err := scanPlaylist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errs.ErrNotFound, "playlist %s", id)
	}
	return p, err
}

// ListPlaylistsByOwner returns a user's playlists, newest first.
func (q *Queries) ListPlaylistsByOwner(ctx context.Context, ownerID string) ([]playlist.Playlist, error) {
	return q.listPlaylists(ctx,
		`SELECT `+playlistColumns+` FROM playlists WHERE owner_id = ? ORDER BY created_at DESC, id`, ownerID)
}

// ListPublicPlaylists returns every public playlist, newest first.
func (q *Queries) ListPublicPlaylists(ctx context.Context) ([]playlist.Playlist, error) {
	return q.listPlaylists(ctx,
		`SELECT `+playlistColumns+` FROM playlists WHERE is_public = ? ORDER BY created_at DESC, id`, true)
}

// DeletePlaylist removes one playlist.
func (q *Queries) DeletePlaylist(ctx context.Context, id string) error {
	res, err := q.exec(ctx, `DELETE FROM playlists WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete playlist")
	}
	return affected(res, "playlist "+id)
}

// DeletePlaylistsByOwner removes every playlist owned by the user and returns the count.
func (q *Queries) DeletePlaylistsByOwner(ctx context.Context, ownerID string) (int64, error) {
	res, err := q.exec(ctx, `DELETE FROM playlists WHERE owner_id = ?`, ownerID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete playlists")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read affected rows")
	}
	return n, nil
}

func (q *Queries) listPlaylists(ctx context.Context, query string, args ...any) ([]playlist.Playlist, error) {
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list playlists")
	}
	defer rows.Close()

	playlists := []playlist.Playlist{}
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan playlist")
		}
		playlists = append(playlists, *p)
	}
	return playlists, errors.Wrap(rows.Err(), "failed to iterate playlists")
}

func scanPlaylist(row rowScanner) (*playlist.Playlist, error) {
	var (
		p                    playlist.Playlist
		tracks               string
		createdAt, updatedAt int64
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Image, &p.IsPublic, &p.OwnerID, &tracks, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tracks), &p.Tracks); err != nil {
		return nil, errors.Wrapf(err, "failed to decode tracks of playlist %s", p.ID)
	}
	if p.Tracks == nil {
		p.Tracks = []playlist.Item{}
	}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

func encodeItems(items []playlist.Item) (string, error) {
	if items == nil {
		items = []playlist.Item{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode playlist tracks")
	}
	return string(b), nil
}
