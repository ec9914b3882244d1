package store

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/19queue/internal/domain/errs"
	"github.com/osa030/19queue/internal/domain/playlist"
	"github.com/osa030/19queue/internal/domain/queue"
	"github.com/osa030/19queue/internal/domain/track"
	"github.com/osa030/19queue/internal/domain/user"
)

var now = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTrack(id string) track.Track {
	return track.Track{
		SpotifyID:  id,
		Name:       "Track " + id,
		URI:        "spotify:track:" + id,
		DurationMs: 180000,
		Artists:    []track.Artist{{ID: "ar1", Name: "Artist"}},
		Album:      track.Album{Name: "Album", Images: []track.Image{{URL: "https://img", Height: 640, Width: 640}}},
	}
}

func TestOpen_Idempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Migrate(ctx))
	v, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, v)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql"})
	assert.Error(t, err)
}

func TestUsers(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	q := s.Queries()

	u := &user.User{ID: "u1", Email: "a@example.com", Name: "A", ExternalID: "google-1", Role: user.RoleUser, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, q.InsertUser(ctx, u))

	got, err := q.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, u, got)

	got, err = q.GetUserByExternalID(ctx, "google-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	_, err = q.GetUserByExternalID(ctx, "")
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	u.Role = user.RoleAdmin
	u.UpdatedAt = now.Add(time.Hour)
	require.NoError(t, q.UpdateUser(ctx, u))
	got, err = q.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, got.Role)

	users, err := q.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, q.DeleteUser(ctx, "u1"))
	_, err = q.GetUser(ctx, "u1")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
	assert.True(t, errors.Is(q.DeleteUser(ctx, "u1"), errs.ErrNotFound))
}

func TestQueueEntries(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	q := s.Queries()

	for i, id := range []string{"t0", "t1", "t2"} {
		require.NoError(t, q.InsertEntry(ctx, &queue.Entry{
			ID: "e" + id, Track: sampleTrack(id), AddedBy: "a@example.com", AddedAt: now,
			Position: i, Status: queue.StatusPending,
		}))
	}

	entries, err := q.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "et0", entries[0].ID)
	assert.Equal(t, sampleTrack("t0"), entries[0].Track)

	require.NoError(t, q.SetEntryPosition(ctx, "et0", 5))
	entries, err = q.ListEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, "et0", entries[2].ID)

	started := now.Add(time.Minute)
	e, err := q.GetEntry(ctx, "et1")
	require.NoError(t, err)
	e.Status = queue.StatusPlaying
	e.PlayedAt = &started
	require.NoError(t, q.UpdateEntryStatus(ctx, e))

	playing, err := q.ListEntriesByStatus(ctx, queue.StatusPlaying)
	require.NoError(t, err)
	require.Len(t, playing, 1)
	assert.Equal(t, started, *playing[0].PlayedAt)

	n, err := q.CountEntriesByStatus(ctx, queue.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	byTrack, err := q.ListEntriesBySpotifyID(ctx, "t2")
	require.NoError(t, err)
	assert.Len(t, byTrack, 1)

	require.NoError(t, q.DeleteEntry(ctx, "et2"))
	assert.True(t, errors.Is(q.DeleteEntry(ctx, "et2"), errs.ErrNotFound))
	_, err = q.GetEntry(ctx, "et2")
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	removed, err := q.DeleteAllEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}

func TestHistory(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	q := s.Queries()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.InsertHistory(ctx, &queue.HistoryEntry{
			ID: string(rune('a' + i)), EntryID: "e", Track: sampleTrack("t"), AddedBy: "a@example.com",
			AddedAt: now, PlayedAt: now.Add(time.Duration(i) * time.Minute), WasSkipped: i == 1, SkipReason: "meh",
		}))
	}

	history, err := q.ListHistory(ctx, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "c", history[0].ID)
	assert.Equal(t, "b", history[1].ID)
	assert.True(t, history[1].WasSkipped)

	n, err := q.CountHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestNowPlaying(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	q := s.Queries()

	_, err := q.GetNowPlaying(ctx)
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	np := &queue.NowPlaying{
		Track: sampleTrack("t1"), ProgressMs: 1000, IsPlaying: true,
		Device:      queue.Device{ID: "d", Name: "Speaker", Type: "Speaker", IsActive: true, VolumePercent: 40},
		RepeatState: "off", Timestamp: 42, UpdatedAt: now,
	}
	require.NoError(t, q.UpsertNowPlaying(ctx, np))

	np.ProgressMs = 2000
	np.Track = sampleTrack("t2")
	require.NoError(t, q.UpsertNowPlaying(ctx, np))

	got, err := q.GetNowPlaying(ctx)
	require.NoError(t, err)
	assert.Equal(t, np, got)

	cleared, err := q.ClearNowPlaying(ctx)
	require.NoError(t, err)
	assert.True(t, cleared)
	cleared, err = q.ClearNowPlaying(ctx)
	require.NoError(t, err)
	assert.False(t, cleared)
}

func TestSettings(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	q := s.Queries()

	_, err := q.GetSettings(ctx)
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	defaults := queue.DefaultSettings()
	defaults.UpdatedAt = now
	created, err := q.EnsureSettings(ctx, defaults)
	require.NoError(t, err)
	assert.True(t, created)

	again := defaults
	again.MaxQueueSize = 1
	created, err = q.EnsureSettings(ctx, again)
	require.NoError(t, err)
	assert.False(t, created, "second initialization keeps the first record")

	got, err := q.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, &defaults, got)

	got.IsLocked = true
	got.RestrictedUsers = []string{"x@example.com"}
	require.NoError(t, q.SaveSettings(ctx, got))
	saved, err := q.GetSettings(ctx)
	require.NoError(t, err)
	assert.True(t, saved.IsLocked)
	assert.Equal(t, []string{"x@example.com"}, saved.RestrictedUsers)
}

func TestPlaylists(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	q := s.Queries()

	require.NoError(t, q.InsertUser(ctx, &user.User{ID: "owner", Email: "o@example.com", Role: user.RoleUser, CreatedAt: now, UpdatedAt: now}))

	p := &playlist.Playlist{ID: "p1", Name: "Mix", OwnerID: "owner", Tracks: []playlist.Item{}, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, q.InsertPlaylist(ctx, p))
	require.NoError(t, q.InsertPlaylist(ctx, &playlist.Playlist{ID: "p2", Name: "Public", IsPublic: true, OwnerID: "owner", CreatedAt: now.Add(time.Second), UpdatedAt: now}))

	p.Tracks = append(p.Tracks, playlist.Item{Track: sampleTrack("t1"), AddedAt: now})
	require.NoError(t, q.UpdatePlaylist(ctx, p))

	got, err := q.GetPlaylist(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	owned, err := q.ListPlaylistsByOwner(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, "p2", owned[0].ID)

	public, err := q.ListPublicPlaylists(ctx)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Empty(t, public[0].Tracks)

	require.NoError(t, q.DeletePlaylist(ctx, "p1"))
	n, err := q.DeletePlaylistsByOwner(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = q.GetPlaylist(ctx, "p1")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestPlaylists_OwnerMustExist(t *testing.T) {
	s := setupTestStore(t)
	err := s.Queries().InsertPlaylist(context.Background(), &playlist.Playlist{ID: "p", Name: "x", OwnerID: "ghost", CreatedAt: now, UpdatedAt: now})
	assert.Error(t, err)
}

func TestInTx_RollsBack(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.InTx(ctx, func(q *Queries) error {
		require.NoError(t, q.InsertEntry(ctx, &queue.Entry{ID: "e", Track: sampleTrack("t"), AddedAt: now, Status: queue.StatusPending}))
		return boom
	})
	assert.True(t, errors.Is(err, boom))

	entries, err := s.Queries().ListEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, s.InTx(ctx, func(q *Queries) error {
		return q.InsertEntry(ctx, &queue.Entry{ID: "e", Track: sampleTrack("t"), AddedAt: now, Status: queue.StatusPending})
	}))
	entries, err = s.Queries().ListEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLock_NoOpOnSQLite(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	err := s.InTx(ctx, func(q *Queries) error {
		return q.Lock(ctx, LockQueue)
	})
	assert.NoError(t, err)
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "SELECT ? FROM t", rebind(DialectSQLite, "SELECT ? FROM t"))
	assert.Equal(t, "UPDATE t SET a = $1 WHERE b = $2", rebind(DialectPostgres, "UPDATE t SET a = ? WHERE b = ?"))
}
