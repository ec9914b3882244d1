package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/osa030/19queue/internal/domain/errs"
	"github.com/osa030/19queue/internal/domain/queue"
)

const entryColumns = `id, spotify_id, track, added_by, added_at, position, status,
	played_at, skipped_at, skip_reason, requested_by, notes, priority`

// InsertEntry stores a new queue entry.
func (q *Queries) InsertEntry(ctx context.Context, e *queue.Entry) error {
	trackJSON, err := json.Marshal(e.Track)
	if err != nil {
		return errors.Wrap(err, "failed to encode track")
	}
	_, err = q.exec(ctx,
		`INSERT INTO queue_entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Track.SpotifyID, string(trackJSON), e.AddedBy, toMillis(e.AddedAt), e.Position, string(e.Status),
		nullMillis(e.PlayedAt), nullMillis(e.SkippedAt), e.SkipReason, e.RequestedBy, e.Notes, e.Priority)
	if err != nil {
		return errors.Wrap(err, "failed to insert queue entry")
	}
	return nil
}

// UpdateEntryStatus patches status and its timing fields.
func (q *Queries) UpdateEntryStatus(ctx context.Context, e *queue.Entry) error {
	res, err := q.exec(ctx,
		`UPDATE queue_entries SET status = ?, played_at = ?, skipped_at = ?, skip_reason = ? WHERE id = ?`,
		string(e.Status), nullMillis(e.PlayedAt), nullMillis(e.SkippedAt), e.SkipReason, e.ID)
	if err != nil {
		return errors.Wrap(err, "failed to update queue entry status")
	}
	return affected(res, "queue entry "+e.ID)
}

// SetEntryPosition moves one entry.
func (q *Queries) SetEntryPosition(ctx context.Context, id string, position int) error {
	res, err := q.exec(ctx, `UPDATE queue_entries SET position = ? WHERE id = ?`, position, id)
	if err != nil {
		return errors.Wrap(err, "failed to update queue position")
	}
	return affected(res, "queue entry "+id)
}

// GetEntry returns the queue entry with the given id.
func (q *Queries) GetEntry(ctx context.Context, id string) (*queue.Entry, error) {
	row := q.queryRow(ctx, `SELECT `+entryColumns+` FROM queue_entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errs.ErrNotFound, "queue entry %s", id)
	}
	return e, err
}

// ListEntries returns every entry in ascending position order.
func (q *Queries) ListEntries(ctx context.Context) ([]queue.Entry, error) {
	return q.listEntries(ctx, `SELECT `+entryColumns+` FROM queue_entries ORDER BY position, added_at, id`)
}

// ListEntriesByStatus returns entries in the given status in ascending position order.
func (q *Queries) ListEntriesByStatus(ctx context.Context, status queue.Status) ([]queue.Entry, error) {
	return q.listEntries(ctx,
		`SELECT `+entryColumns+` FROM queue_entries WHERE status = ? ORDER BY position, added_at, id`,
		string(status))
}

// ListEntriesBySpotifyID returns entries holding the given track in ascending position order.
func (q *Queries) ListEntriesBySpotifyID(ctx context.Context, spotifyID string) ([]queue.Entry, error) {
	return q.listEntries(ctx,
		`SELECT `+entryColumns+` FROM queue_entries WHERE spotify_id = ? ORDER BY position, added_at, id`,
		spotifyID)
}

// CountEntriesByStatus counts entries in the given status.
func (q *Queries) CountEntriesByStatus(ctx context.Context, status queue.Status) (int, error) {
	var n int
	err := q.queryRow(ctx, `SELECT COUNT(*) FROM queue_entries WHERE status = ?`, string(status)).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count queue entries")
	}
	return n, nil
}

// DeleteEntry removes one entry without repairing positions.
func (q *Queries) DeleteEntry(ctx context.Context, id string) error {
	res, err := q.exec(ctx, `DELETE FROM queue_entries WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete queue entry")
	}
	return affected(res, "queue entry "+id)
}

// DeleteAllEntries empties the queue and returns how many entries were removed.
func (q *Queries) DeleteAllEntries(ctx context.Context) (int64, error) {
	res, err := q.exec(ctx, `DELETE FROM queue_entries`)
	if err != nil {
		return 0, errors.Wrap(err, "failed to clear queue")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read affected rows")
	}
	return n, nil
}

func (q *Queries) listEntries(ctx context.Context, query string, args ...any) ([]queue.Entry, error) {
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list queue entries")
	}
	defer rows.Close()

	entries := []queue.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan queue entry")
		}
		entries = append(entries, *e)
	}
	return entries, errors.Wrap(rows.Err(), "failed to iterate queue entries")
}

func scanEntry(row rowScanner) (*queue.Entry, error) {
	var (
		e                   queue.Entry
		spotifyID, trackRaw string
		status              string
		addedAt             int64
		playedAt, skippedAt sql.NullInt64
	)
	err := row.Scan(&e.ID, &spotifyID, &trackRaw, &e.AddedBy, &addedAt, &e.Position, &status,
		&playedAt, &skippedAt, &e.SkipReason, &e.RequestedBy, &e.Notes, &e.Priority)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(trackRaw), &e.Track); err != nil {
		return nil, errors.Wrapf(err, "failed to decode track of queue entry %s", e.ID)
	}
	e.Track.SpotifyID = spotifyID
	e.Status = queue.Status(status)
	e.AddedAt = fromMillis(addedAt)
	e.PlayedAt = fromNullMillis(playedAt)
	e.SkippedAt = fromNullMillis(skippedAt)
	return &e, nil
}

const historyColumns = `id, entry_id, spotify_id, track, added_by, added_at, played_at,
	was_skipped, skip_reason, requested_by, notes`

// InsertHistory archives a played or skipped entry.
func (q *Queries) InsertHistory(ctx context.Context, h *queue.HistoryEntry) error {
	trackJSON, err := json.Marshal(h.Track)
	if err != nil {
		return errors.Wrap(err, "failed to encode track")
	}
	_, err = q.exec(ctx,
		`INSERT INTO queue_history (`+historyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.EntryID, h.Track.SpotifyID, string(trackJSON), h.AddedBy, toMillis(h.AddedAt), toMillis(h.PlayedAt),
		h.WasSkipped, h.SkipReason, h.RequestedBy, h.Notes)
	if err != nil {
		return errors.Wrap(err, "failed to insert queue history")
	}
	return nil
}

// ListHistory returns the most recently played entries first.
func (q *Queries) ListHistory(ctx context.Context, limit int) ([]queue.HistoryEntry, error) {
	rows, err := q.query(ctx,
		`SELECT `+historyColumns+` FROM queue_history ORDER BY played_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list queue history")
	}
	defer rows.Close()

	history := []queue.HistoryEntry{}
	for rows.Next() {
		var (
			h                   queue.HistoryEntry
			spotifyID, trackRaw string
			addedAt, playedAt   int64
		)
		if err := rows.Scan(&h.ID, &h.EntryID, &spotifyID, &trackRaw, &h.AddedBy, &addedAt, &playedAt,
			&h.WasSkipped, &h.SkipReason, &h.RequestedBy, &h.Notes); err != nil {
			return nil, errors.Wrap(err, "failed to scan queue history")
		}
		if err := json.Unmarshal([]byte(trackRaw), &h.Track); err != nil {
			return nil, errors.Wrapf(err, "failed to decode track of history entry %s", h.ID)
		}
		h.Track.SpotifyID = spotifyID
		h.AddedAt = fromMillis(addedAt)
		h.PlayedAt = fromMillis(playedAt)
		history = append(history, h)
	}
	return history, errors.Wrap(rows.Err(), "failed to iterate queue history")
}

// CountHistory returns the number of archived entries.
func (q *Queries) CountHistory(ctx context.Context) (int, error) {
	var n int
	if err := q.queryRow(ctx, `SELECT COUNT(*) FROM queue_history`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count queue history")
	}
	return n, nil
}
