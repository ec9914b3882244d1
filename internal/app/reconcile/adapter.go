// Package reconcile merges the external player's state into the store.
//
// The adapter runs in promote-and-filter mode: it never rewrites the user
// queue. When the player starts a track that a pending entry holds, that
// entry is promoted to playing, and whatever was playing before is archived.
// The player's own upcoming list is kept in memory and exposed through View
// with every track already in the user queue filtered out.
package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/osa030/19queue/internal/app/notification"
	"github.com/osa030/19queue/internal/domain/errs"
	"github.com/osa030/19queue/internal/domain/queue"
	"github.com/osa030/19queue/internal/domain/track"
	"github.com/osa030/19queue/internal/infra/store"
)

const (
	DefaultInterval    = 30 * time.Second
	DefaultMinInterval = 5 * time.Second
)

// Source is the external playback source.
type Source interface {
	NowPlaying(ctx context.Context) (*queue.NowPlaying, error)
	UpcomingQueue(ctx context.Context) (*queue.Upcoming, error)
}

// Queue is the part of the queue engine the adapter drives.
type Queue interface {
	Promote(ctx context.Context, spotifyID string) (bool, error)
	List(ctx context.Context) ([]queue.Entry, error)
}

// Config controls polling.
type Config struct {
	Interval    time.Duration
	MinInterval time.Duration
}

// View is the three-band presentation of the queue.
type View struct {
	NowPlaying  *queue.NowPlaying `json:"nowPlaying,omitempty"`
	UserQueue   []queue.Entry     `json:"userQueue"`
	SystemQueue []track.Track     `json:"systemQueue"`
	SyncedAt    time.Time         `json:"syncedAt"`
}

// Adapter polls the source on a ticker and on demand.
type Adapter struct {
	source   Source
	store    *store.Store
	queue    Queue
	pub      notification.Publisher
	limiter  *rate.Limiter
	interval time.Duration
	now      func() time.Time

	invalidate chan struct{}
	syncMu     sync.Mutex

	mu       sync.RWMutex
	upcoming []track.Track
	current  string
	playing  bool
	syncedAt time.Time
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithPublisher sets where now_playing_changed events go.
func WithPublisher(p notification.Publisher) Option {
	return func(a *Adapter) { a.pub = p }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// WithLimiter replaces the limiter built from Config.MinInterval.
func WithLimiter(l *rate.Limiter) Option {
	return func(a *Adapter) { a.limiter = l }
}

// New creates an adapter.
func New(src Source, st *store.Store, q Queue, cfg Config, opts ...Option) *Adapter {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	a := &Adapter{
		source:     src,
		store:      st,
		queue:      q,
		pub:        notification.Discard,
		limiter:    rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		interval:   cfg.Interval,
		now:        time.Now,
		invalidate: make(chan struct{}, 1),
		upcoming:   []track.Track{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run polls until ctx is cancelled. Sync failures are logged and polling continues.
func (a *Adapter) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	zlog.Info().Msgf("Reconciler started: interval=%s", a.interval)
	a.syncAndLog(ctx, "start")
	for {
		select {
		case <-ctx.Done():
			zlog.Info().Msg("Reconciler stopped")
			return
		case <-ticker.C:
			a.syncAndLog(ctx, "tick")
		case <-a.invalidate:
			a.syncAndLog(ctx, "invalidate")
		}
	}
}

func (a *Adapter) syncAndLog(ctx context.Context, trigger string) {
	synced, err := a.Sync(ctx)
	if err != nil {
		zlog.Warn().Msgf("Reconcile failed: trigger=%s err=%v", trigger, err)
		return
	}
	if !synced {
		zlog.Debug().Msgf("Reconcile throttled: trigger=%s", trigger)
	}
}

// Invalidate asks Run for an early sync. It never blocks.
func (a *Adapter) Invalidate() {
	select {
	case a.invalidate <- struct{}{}:
	default:
	}
}

// Sync polls the source once. A call arriving sooner than the minimum
// interval after the previous one does nothing and returns false.
func (a *Adapter) Sync(ctx context.Context) (bool, error) {
	a.syncMu.Lock()
	defer a.syncMu.Unlock()

	if !a.limiter.Allow() {
		return false, nil
	}

	np, err := a.source.NowPlaying(ctx)
	if err != nil {
		return true, errors.Wrap(err, "failed to read now playing")
	}
	if err := a.applyNowPlaying(ctx, np); err != nil {
		return true, err
	}

	up, err := a.source.UpcomingQueue(ctx)
	if err != nil {
		return true, errors.Wrap(err, "failed to read upcoming queue")
	}
	items := []track.Track{}
	if up != nil && up.Items != nil {
		items = up.Items
	}

	a.mu.Lock()
	a.upcoming = items
	a.syncedAt = a.now()
	a.mu.Unlock()
	return true, nil
}

func (a *Adapter) applyNowPlaying(ctx context.Context, np *queue.NowPlaying) error {
	q := a.store.Queries()

	if np == nil {
		cleared, err := q.ClearNowPlaying(ctx)
		if err != nil {
			return err
		}
		a.setCurrent("", false)
		if cleared {
			zlog.Info().Msg("Player idle, now playing cleared")
			a.pub.Publish(ctx, notification.Event{Type: notification.EventNowPlayingChanged, Reason: "cleared"})
		}
		return nil
	}

	np.UpdatedAt = a.now()
	if err := q.UpsertNowPlaying(ctx, np); err != nil {
		return err
	}
	if _, err := a.queue.Promote(ctx, np.Track.SpotifyID); err != nil {
		return errors.Wrap(err, "failed to promote entry")
	}

	if a.setCurrent(np.Track.SpotifyID, np.IsPlaying) {
		zlog.Info().Msgf("Now playing: track=%s playing=%t", np.Track.String(), np.IsPlaying)
		a.pub.Publish(ctx, notification.Event{
			Type:      notification.EventNowPlayingChanged,
			Reason:    "sync",
			SubjectID: np.Track.SpotifyID,
		})
	}
	return nil
}

// setCurrent records the player's track and reports whether it changed.
func (a *Adapter) setCurrent(id string, playing bool) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	changed := a.current != id || a.playing != playing
	a.current, a.playing = id, playing
	return changed
}

// View returns now playing, the user queue and the filtered system queue.
func (a *Adapter) View(ctx context.Context) (*View, error) {
	np, err := a.store.Queries().GetNowPlaying(ctx)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}
	live, err := a.queue.List(ctx)
	if err != nil {
		return nil, err
	}

	a.mu.RLock()
	upcoming := a.upcoming
	syncedAt := a.syncedAt
	a.mu.RUnlock()

	exclude := make(map[string]struct{}, len(live)+1)
	for _, e := range live {
		exclude[e.Track.SpotifyID] = struct{}{}
	}
	if np != nil {
		exclude[np.Track.SpotifyID] = struct{}{}
	}

	return &View{
		NowPlaying:  np,
		UserQueue:   live,
		SystemQueue: FilterUpcoming(upcoming, exclude),
		SyncedAt:    syncedAt,
	}, nil
}

// FilterUpcoming drops every track whose id is in exclude, keeping order.
func FilterUpcoming(upcoming []track.Track, exclude map[string]struct{}) []track.Track {
	out := make([]track.Track, 0, len(upcoming))
	for _, t := range upcoming {
		if _, skip := exclude[t.SpotifyID]; skip {
			continue
		}
		out = append(out, t)
	}
	return out
}
