package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/osa030/19queue/internal/domain/errs"
	"github.com/osa030/19queue/internal/domain/queue"
)

// Well-known keys of the singleton records.
const (
	nowPlayingKey = "current"
	settingsKey   = "global"
)

// UpsertNowPlaying creates or replaces the now-playing snapshot.
func (q *Queries) UpsertNowPlaying(ctx context.Context, np *queue.NowPlaying) error {
	trackJSON, err := json.Marshal(np.Track)
	if err != nil {
		return errors.Wrap(err, "failed to encode track")
	}
	deviceJSON, err := json.Marshal(np.Device)
	if err != nil {
		return errors.Wrap(err, "failed to encode device")
	}
	_, err = q.exec(ctx,
		`INSERT INTO now_playing (id, track, progress_ms, is_playing, device, shuffle_state, repeat_state, ts, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			track = excluded.track,
			progress_ms = excluded.progress_ms,
			is_playing = excluded.is_playing,
			device = excluded.device,
			shuffle_state = excluded.shuffle_state,
			repeat_state = excluded.repeat_state,
			ts = excluded.ts,
			updated_at = excluded.updated_at`,
		nowPlayingKey, string(trackJSON), np.ProgressMs, np.IsPlaying, string(deviceJSON),
		np.ShuffleState, np.RepeatState, np.Timestamp, toMillis(np.UpdatedAt))
	if err != nil {
		return errors.Wrap(err, "failed to upsert now playing")
	}
	return nil
}

// GetNowPlaying returns the now-playing snapshot, or errs.ErrNotFound when nothing plays.
func (q *Queries) GetNowPlaying(ctx context.Context) (*queue.NowPlaying, error) {
	var (
		np                  queue.NowPlaying
		trackRaw, deviceRaw string
		updatedAt           int64
	)
	err := q.queryRow(ctx,
		`SELECT track, progress_ms, is_playing, device, shuffle_state, repeat_state, ts, updated_at
		FROM now_playing WHERE id = ?`, nowPlayingKey).
		Scan(&trackRaw, &np.ProgressMs, &np.IsPlaying, &deviceRaw, &np.ShuffleState, &np.RepeatState, &np.Timestamp, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(errs.ErrNotFound, "now playing")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read now playing")
	}
	if err := json.Unmarshal([]byte(trackRaw), &np.Track); err != nil {
		return nil, errors.Wrap(err, "failed to decode now playing track")
	}
	if err := json.Unmarshal([]byte(deviceRaw), &np.Device); err != nil {
		return nil, errors.Wrap(err, "failed to decode now playing device")
	}
	np.UpdatedAt = fromMillis(updatedAt)
	return &np, nil
}

// ClearNowPlaying removes the snapshot. It reports whether one existed.
func (q *Queries) ClearNowPlaying(ctx context.Context) (bool, error) {
	res, err := q.exec(ctx, `DELETE FROM now_playing WHERE id = ?`, nowPlayingKey)
	if err != nil {
		return false, errors.Wrap(err, "failed to clear now playing")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read affected rows")
	}
	return n > 0, nil
}

const settingsColumns = `max_queue_size, allow_duplicates, duplicate_threshold, auto_skip_threshold,
	max_song_duration, restricted_users, is_paused, is_locked, updated_by, updated_at`

// EnsureSettings stores defaults unless settings already exist.
// It reports whether a record was created.
func (q *Queries) EnsureSettings(ctx context.Context, defaults queue.Settings) (bool, error) {
	restricted, err := encodeStrings(defaults.RestrictedUsers)
	if err != nil {
		return false, err
	}
	res, err := q.exec(ctx,
		`INSERT INTO queue_settings (id, `+settingsColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		settingsKey, defaults.MaxQueueSize, defaults.AllowDuplicates, defaults.DuplicateThreshold,
		defaults.AutoSkipThreshold, defaults.MaxSongDuration, restricted, defaults.IsPaused, defaults.IsLocked,
		defaults.UpdatedBy, toMillis(defaults.UpdatedAt))
	if err != nil {
		return false, errors.Wrap(err, "failed to initialize queue settings")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read affected rows")
	}
	return n > 0, nil
}

// GetSettings returns the stored settings, or errs.ErrNotFound before initialization.
func (q *Queries) GetSettings(ctx context.Context) (*queue.Settings, error) {
	var (
		s          queue.Settings
		restricted string
		updatedAt  int64
	)
	err := q.queryRow(ctx, `SELECT `+settingsColumns+` FROM queue_settings WHERE id = ?`, settingsKey).
		Scan(&s.MaxQueueSize, &s.AllowDuplicates, &s.DuplicateThreshold, &s.AutoSkipThreshold,
			&s.MaxSongDuration, &restricted, &s.IsPaused, &s.IsLocked, &s.UpdatedBy, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(errs.ErrNotFound, "queue settings")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read queue settings")
	}
	if err := json.Unmarshal([]byte(restricted), &s.RestrictedUsers); err != nil {
		return nil, errors.Wrap(err, "failed to decode restricted users")
	}
	if s.RestrictedUsers == nil {
		s.RestrictedUsers = []string{}
	}
	s.UpdatedAt = fromMillis(updatedAt)
	return &s, nil
}

// SaveSettings overwrites the stored settings.
func (q *Queries) SaveSettings(ctx context.Context, s *queue.Settings) error {
	restricted, err := encodeStrings(s.RestrictedUsers)
	if err != nil {
		return err
	}
	res, err := q.exec(ctx,
		`UPDATE queue_settings SET max_queue_size = ?, allow_duplicates = ?, duplicate_threshold = ?,
			auto_skip_threshold = ?, max_song_duration = ?, restricted_users = ?, is_paused = ?, is_locked = ?,
			updated_by = ?, updated_at = ?
		WHERE id = ?`,
		s.MaxQueueSize, s.AllowDuplicates, s.DuplicateThreshold, s.AutoSkipThreshold, s.MaxSongDuration,
		restricted, s.IsPaused, s.IsLocked, s.UpdatedBy, toMillis(s.UpdatedAt), settingsKey)
	if err != nil {
		return errors.Wrap(err, "failed to save queue settings")
	}
	return affected(res, "queue settings")
}

func encodeStrings(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode string list")
	}
	return string(b), nil
}
