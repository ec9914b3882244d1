package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/osa030/19queue/internal/app/gate"
	"github.com/osa030/19queue/internal/app/jukebox"
	"github.com/osa030/19queue/internal/app/notification"
	"github.com/osa030/19queue/internal/domain/queue"
	"github.com/osa030/19queue/internal/domain/track"
	"github.com/osa030/19queue/internal/domain/user"
	"github.com/osa030/19queue/internal/infra/store"
)

var now = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu       sync.Mutex
	np       *queue.NowPlaying
	upcoming []track.Track
	err      error
	calls    int
}

func (f *fakeSource) NowPlaying(context.Context) (*queue.NowPlaying, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.np == nil {
		return nil, nil
	}
	np := *f.np
	return &np, nil
}

func (f *fakeSource) UpcomingQueue(context.Context) (*queue.Upcoming, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &queue.Upcoming{Items: f.upcoming}, nil
}

func (f *fakeSource) set(np *queue.NowPlaying, upcoming ...track.Track) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.np = np
	f.upcoming = upcoming
}

type recorder struct {
	mu    sync.Mutex
	types []notification.EventType
}

func (r *recorder) Publish(_ context.Context, ev notification.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, ev.Type)
}

func (r *recorder) count(t notification.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.types {
		if got == t {
			n++
		}
	}
	return n
}

func song(id string) track.Track {
	return track.Track{SpotifyID: id, Name: "Song " + id, DurationMs: 200000, Artists: []track.Artist{{Name: "A"}}}
}

func playing(id string) *queue.NowPlaying {
	return &queue.NowPlaying{Track: song(id), IsPlaying: true, ProgressMs: 1000}
}

type fixture struct {
	source  *fakeSource
	engine  *jukebox.Engine
	adapter *Adapter
	events  *recorder
}

func setup(t *testing.T, limiter *rate.Limiter) *fixture {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, store.Config{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Queries().InsertUser(ctx, &user.User{
		ID: "u1", Email: "a@example.com", Role: user.RoleUser, CreatedAt: now, UpdatedAt: now,
	}))

	clock := func() time.Time { return now }
	eng := jukebox.NewEngine(s, gate.New(s), jukebox.WithClock(clock))
	src := &fakeSource{}
	rec := &recorder{}
	a := New(src, s, eng, Config{}, WithClock(clock), WithPublisher(rec), WithLimiter(limiter))
	return &fixture{source: src, engine: eng, adapter: a, events: rec}
}

func (f *fixture) enqueue(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := f.engine.Enqueue(context.Background(), song(id), "a@example.com", jukebox.EnqueueOptions{})
		require.NoError(t, err)
	}
}

func TestSync_PromotesAndFilters(t *testing.T) {
	ctx := context.Background()
	f := setup(t, rate.NewLimiter(rate.Inf, 1))
	f.enqueue(t, "a", "b")
	f.source.set(playing("a"), song("b"), song("x"), song("a"), song("y"))

	synced, err := f.adapter.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, synced)

	v, err := f.adapter.View(ctx)
	require.NoError(t, err)
	require.NotNil(t, v.NowPlaying)
	assert.Equal(t, "a", v.NowPlaying.Track.SpotifyID)
	assert.Equal(t, now, v.NowPlaying.UpdatedAt)
	require.Len(t, v.UserQueue, 2)
	assert.Equal(t, queue.StatusPlaying, v.UserQueue[0].Status)
	assert.Equal(t, queue.StatusPending, v.UserQueue[1].Status)
	assert.Equal(t, []string{"x", "y"}, track.IDs(v.SystemQueue))
	assert.Equal(t, 1, f.events.count(notification.EventNowPlayingChanged))

	// the player moves on to b: a is archived, b is promoted
	f.source.set(playing("b"), song("x"))
	_, err = f.adapter.Sync(ctx)
	require.NoError(t, err)

	v, err = f.adapter.View(ctx)
	require.NoError(t, err)
	require.Len(t, v.UserQueue, 1)
	assert.Equal(t, "b", v.UserQueue[0].Track.SpotifyID)
	assert.Equal(t, queue.StatusPlaying, v.UserQueue[0].Status)
	assert.Equal(t, 0, v.UserQueue[0].Position)
	assert.Equal(t, []string{"x"}, track.IDs(v.SystemQueue))

	history, err := f.engine.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "a", history[0].Track.SpotifyID)
	assert.Equal(t, 2, f.events.count(notification.EventNowPlayingChanged))
}

func TestSync_NullClearsNowPlaying(t *testing.T) {
	ctx := context.Background()
	f := setup(t, rate.NewLimiter(rate.Inf, 1))
	f.source.set(playing("a"))
	_, err := f.adapter.Sync(ctx)
	require.NoError(t, err)

	f.source.set(nil)
	synced, err := f.adapter.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, synced)

	np, err := f.engine.NowPlaying(ctx)
	require.NoError(t, err)
	assert.Nil(t, np)
	v, err := f.adapter.View(ctx)
	require.NoError(t, err)
	assert.Nil(t, v.NowPlaying)
	assert.Equal(t, 2, f.events.count(notification.EventNowPlayingChanged))
}

func TestSync_Throttled(t *testing.T) {
	ctx := context.Background()
	f := setup(t, rate.NewLimiter(rate.Every(time.Hour), 1))
	f.source.set(playing("a"))

	synced, err := f.adapter.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, synced)

	synced, err = f.adapter.Sync(ctx)
	require.NoError(t, err)
	assert.False(t, synced)
	assert.Equal(t, 1, f.source.calls)
}

func TestSync_SourceErrorIsReturned(t *testing.T) {
	f := setup(t, rate.NewLimiter(rate.Inf, 1))
	f.source.err = errors.New("503 Service Unavailable")

	synced, err := f.adapter.Sync(context.Background())
	assert.True(t, synced)
	assert.Error(t, err)
}

func TestRun_InvalidateTriggersSync(t *testing.T) {
	f := setup(t, rate.NewLimiter(rate.Inf, 1))
	f.adapter.interval = time.Hour
	f.source.set(playing("a"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.adapter.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		f.source.mu.Lock()
		defer f.source.mu.Unlock()
		return f.source.calls >= 1
	}, time.Second, 5*time.Millisecond)

	f.adapter.Invalidate()
	f.adapter.Invalidate()
	assert.Eventually(t, func() bool {
		f.source.mu.Lock()
		defer f.source.mu.Unlock()
		return f.source.calls >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestFilterUpcoming(t *testing.T) {
	got := FilterUpcoming([]track.Track{song("a"), song("b"), song("c")}, map[string]struct{}{"b": {}})
	assert.Equal(t, []string{"a", "c"}, track.IDs(got))
	assert.Empty(t, FilterUpcoming(nil, nil))
}
