package playlists

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/19queue/internal/domain/errs"
	"github.com/osa030/19queue/internal/domain/playlist"
	"github.com/osa030/19queue/internal/domain/track"
	"github.com/osa030/19queue/internal/domain/user"
	"github.com/osa030/19queue/internal/infra/store"
)

var now = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func setupEngine(t *testing.T) *Engine {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, store.Config{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	for _, id := range []string{"owner", "other"} {
		u := &user.User{ID: id, Email: id + "@example.com", Role: user.RoleUser, CreatedAt: now, UpdatedAt: now}
		require.NoError(t, s.Queries().InsertUser(ctx, u))
	}
	return NewEngine(s, WithClock(func() time.Time { return now }))
}

func song(id string) track.Track {
	return track.Track{SpotifyID: id, Name: "Song " + id, DurationMs: 60000, Artists: []track.Artist{{Name: "A"}}}
}

func trackIDs(p *playlist.Playlist) []string {
	return p.TrackIDs()
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	e := setupEngine(t)

	p, err := e.Create(ctx, "owner", CreateInput{Name: "Friday", IsPublic: true})
	require.NoError(t, err)
	assert.Equal(t, "owner", p.OwnerID)
	assert.Empty(t, p.Tracks)
	assert.Equal(t, now, p.CreatedAt)

	_, err = e.Create(ctx, "ghost", CreateInput{Name: "x"})
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	_, err = e.Create(ctx, "owner", CreateInput{Name: "  "})
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
}

func TestTracks(t *testing.T) {
	ctx := context.Background()
	e := setupEngine(t)
	p, err := e.Create(ctx, "owner", CreateInput{Name: "Mix"})
	require.NoError(t, err)

	p, err = e.AddTrack(ctx, p.ID, "owner", song("a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, trackIDs(p))

	_, err = e.AddTrack(ctx, p.ID, "owner", song("a"))
	assert.True(t, errors.Is(err, errs.ErrAlreadyExists))

	n, err := e.BulkAdd(ctx, p.ID, "owner", []track.Track{song("a"), song("b"), song("c"), song("b")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	p, err = e.Reorder(ctx, p.ID, "owner", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, trackIDs(p))

	_, err = e.Reorder(ctx, p.ID, "owner", 0, 3)
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	p, err = e.RemoveTrack(ctx, p.ID, "owner", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, trackIDs(p))

	_, err = e.RemoveTrack(ctx, p.ID, "owner", "a")
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	got, err := e.Get(ctx, p.ID, "owner")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, trackIDs(got))
	assert.Equal(t, 2*time.Minute, got.TotalDuration())
}

func TestOwnership(t *testing.T) {
	ctx := context.Background()
	e := setupEngine(t)
	p, err := e.Create(ctx, "owner", CreateInput{Name: "Private"})
	require.NoError(t, err)

	_, err = e.Get(ctx, p.ID, "other")
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	_, err = e.AddTrack(ctx, p.ID, "other", song("a"))
	assert.True(t, errors.Is(err, errs.ErrPermissionDenied))
	assert.True(t, errors.Is(e.Delete(ctx, p.ID, "other"), errs.ErrPermissionDenied))

	public := true
	name := "Shared"
	p, err = e.Update(ctx, p.ID, "owner", playlist.Patch{IsPublic: &public, Name: &name})
	require.NoError(t, err)
	assert.True(t, p.IsPublic)

	got, err := e.Get(ctx, p.ID, "other")
	require.NoError(t, err)
	assert.Equal(t, "Shared", got.Name)

	pubs, err := e.GetPublicPlaylists(ctx)
	require.NoError(t, err)
	assert.Len(t, pubs, 1)

	mine, err := e.GetUserPlaylists(ctx, "owner")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	require.NoError(t, e.Delete(ctx, p.ID, "owner"))
	_, err = e.Get(ctx, p.ID, "owner")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}
