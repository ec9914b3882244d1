// Package jukebox implements the queue engine: enqueue, status transitions,
// removal and reordering of the shared live queue.
package jukebox

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19queue/internal/app/gate"
	"github.com/osa030/19queue/internal/app/notification"
	"github.com/osa030/19queue/internal/app/position"
	"github.com/osa030/19queue/internal/domain/errs"
	"github.com/osa030/19queue/internal/domain/queue"
	"github.com/osa030/19queue/internal/domain/track"
	"github.com/osa030/19queue/internal/infra/store"
)

const (
	// DefaultHistoryLimit is used when History is called without a limit.
	DefaultHistoryLimit = 50
	maxHistoryLimit     = 500
	// recentWindow is how much history the gate sees for recently played checks.
	recentWindow = 50
)

// Forwarder queues a track on the external player.
type Forwarder interface {
	Enqueue(ctx context.Context, uri string) error
}

// Engine serializes structural queue mutations. Each one runs under the
// engine mutex inside a single store transaction.
type Engine struct {
	mu        sync.Mutex
	store     *store.Store
	gate      *gate.Gate
	forwarder Forwarder
	pub       notification.Publisher
	now       func() time.Time
	newID     func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithForwarder queues every accepted track on the external player as well.
func WithForwarder(f Forwarder) Option {
	return func(e *Engine) { e.forwarder = f }
}

// WithPublisher sets where queue_changed events go.
func WithPublisher(p notification.Publisher) Option {
	return func(e *Engine) { e.pub = p }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a queue engine.
func NewEngine(s *store.Store, g *gate.Gate, opts ...Option) *Engine {
	e := &Engine{
		store: s,
		gate:  g,
		pub:   notification.Discard,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EnqueueOptions carries the optional request metadata of an entry.
type EnqueueOptions struct {
	RequestedBy string
	Notes       string
	Priority    int
}

// BulkResult reports what BulkEnqueue inserted.
type BulkResult struct {
	AddedCount int
	IDs        []string
}

// mutate runs fn in one transaction holding both the engine mutex and the
// store's queue lock, so writers in other processes wait as well.
func (e *Engine) mutate(ctx context.Context, fn func(q *store.Queries) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.InTx(ctx, func(q *store.Queries) error {
		if err := q.Lock(ctx, store.LockQueue); err != nil {
			return err
		}
		return fn(q)
	})
}

func (e *Engine) changed(ctx context.Context, reason, subject string) {
	e.pub.Publish(ctx, notification.Event{
		Type:      notification.EventQueueChanged,
		Reason:    reason,
		SubjectID: subject,
	})
}

// Enqueue appends a track submitted by the user with the given email.
func (e *Engine) Enqueue(ctx context.Context, t track.Track, submitter string, opts EnqueueOptions) (*queue.Entry, error) {
	if err := t.Validate(); err != nil {
		return nil, errors.Mark(err, errs.ErrInvalidArgument)
	}

	var entry *queue.Entry
	err := e.mutate(ctx, func(q *store.Queries) error {
		u, err := q.GetUserByEmail(ctx, submitter)
		if err != nil {
			return err
		}
		settings, err := e.gate.Settings(ctx, q)
		if err != nil {
			return err
		}
		live, err := q.ListEntries(ctx)
		if err != nil {
			return err
		}
		recent, err := q.ListHistory(ctx, recentWindow)
		if err != nil {
			return err
		}

		req := gate.Request{
			Action:         gate.ActionEnqueue,
			Track:          t,
			Submitter:      *u,
			Settings:       *settings,
			Pending:        byStatus(live, queue.StatusPending),
			RecentlyPlayed: recent,
		}
		if err := e.gate.Evaluate(ctx, req); err != nil {
			return err
		}

		entry = &queue.Entry{
			ID:          e.newID(),
			Track:       t,
			AddedBy:     u.Email,
			AddedAt:     e.now(),
			Position:    position.Next(positions(live)),
			Status:      queue.StatusPending,
			RequestedBy: opts.RequestedBy,
			Notes:       opts.Notes,
			Priority:    opts.Priority,
		}
		return q.InsertEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	zlog.Info().Msgf("Track enqueued: id=%s track=%s by=%s position=%d", entry.ID, t.SpotifyID, entry.AddedBy, entry.Position)
	e.changed(ctx, "enqueue", entry.ID)
	e.forward(ctx, &entry.Track)
	return entry, nil
}

func (e *Engine) forward(ctx context.Context, t *track.Track) {
	if e.forwarder == nil {
		return
	}
	if err := e.forwarder.Enqueue(ctx, t.PlaybackURI()); err != nil {
		zlog.Warn().Msgf("Failed to forward track to player: track=%s err=%v", t.SpotifyID, err)
	}
}

// BulkEnqueue appends many tracks at once. With clearExisting the queue is
// emptied first; otherwise tracks already in the queue are skipped. Tracks
// repeated within the batch are added once.
func (e *Engine) BulkEnqueue(ctx context.Context, tracks []track.Track, submitter string, clearExisting bool) (*BulkResult, error) {
	for i := range tracks {
		if err := tracks[i].Validate(); err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "track %d", i), errs.ErrInvalidArgument)
		}
	}

	res := &BulkResult{IDs: []string{}}
	err := e.mutate(ctx, func(q *store.Queries) error {
		u, err := q.GetUserByEmail(ctx, submitter)
		if err != nil {
			return err
		}
		settings, err := e.gate.Settings(ctx, q)
		if err != nil {
			return err
		}

		var live []queue.Entry
		if clearExisting {
			n, err := q.DeleteAllEntries(ctx)
			if err != nil {
				return err
			}
			zlog.Info().Msgf("Queue cleared for bulk enqueue: removed=%d", n)
		} else if live, err = q.ListEntries(ctx); err != nil {
			return err
		}

		req := gate.Request{
			Action:    gate.ActionBulkEnqueue,
			Submitter: *u,
			Settings:  *settings,
			Pending:   byStatus(live, queue.StatusPending),
		}
		if err := e.gate.Evaluate(ctx, req); err != nil {
			return err
		}

		seen := make(map[string]struct{}, len(live)+len(tracks))
		for _, le := range live {
			seen[le.Track.SpotifyID] = struct{}{}
		}
		next := position.Next(positions(live))
		now := e.now()
		for _, t := range tracks {
			if _, dup := seen[t.SpotifyID]; dup {
				continue
			}
			seen[t.SpotifyID] = struct{}{}
			entry := &queue.Entry{
				ID:       e.newID(),
				Track:    t,
				AddedBy:  u.Email,
				AddedAt:  now,
				Position: next,
				Status:   queue.StatusPending,
			}
			if err := q.InsertEntry(ctx, entry); err != nil {
				return err
			}
			res.IDs = append(res.IDs, entry.ID)
			next++
		}
		res.AddedCount = len(res.IDs)
		return nil
	})
	if err != nil {
		return nil, err
	}

	zlog.Info().Msgf("Bulk enqueue: requested=%d added=%d clear=%t by=%s", len(tracks), res.AddedCount, clearExisting, submitter)
	if res.AddedCount > 0 || clearExisting {
		e.changed(ctx, "bulk_enqueue", "")
	}
	return res, nil
}

// TransitionStatus moves an entry through its lifecycle. Played and skipped
// entries are archived to history, deleted and the gap closed, all in one
// transaction. Playing only stamps playedAt.
func (e *Engine) TransitionStatus(ctx context.Context, id string, status queue.Status, skipReason string) (*queue.Entry, error) {
	if !status.Valid() {
		return nil, errors.Wrapf(errs.ErrInvalidArgument, "unknown status %q", status)
	}

	var out *queue.Entry
	err := e.mutate(ctx, func(q *store.Queries) error {
		entry, err := q.GetEntry(ctx, id)
		if err != nil {
			return err
		}
		out, err = e.transition(ctx, q, entry, status, skipReason)
		return err
	})
	if err != nil {
		return nil, err
	}

	zlog.Info().Msgf("Entry status changed: id=%s status=%s", id, status)
	e.changed(ctx, "transition_"+string(status), id)
	return out, nil
}

func (e *Engine) transition(ctx context.Context, q *store.Queries, entry *queue.Entry, status queue.Status, skipReason string) (*queue.Entry, error) {
	now := e.now()
	switch {
	case status.Terminal():
		if status == queue.StatusSkipped {
			entry.SkippedAt = &now
			entry.SkipReason = skipReason
		}
		h := queue.NewHistoryEntry(e.newID(), entry, status, skipReason, now)
		if err := q.InsertHistory(ctx, h); err != nil {
			return nil, err
		}
		if err := e.deleteAndRepair(ctx, q, entry); err != nil {
			return nil, err
		}
		entry.Status = status
		if entry.PlayedAt == nil {
			entry.PlayedAt = &h.PlayedAt
		}
		return entry, nil

	case status == queue.StatusPlaying:
		playing, err := q.ListEntriesByStatus(ctx, queue.StatusPlaying)
		if err != nil {
			return nil, err
		}
		for _, p := range playing {
			if p.ID != entry.ID {
				return nil, errors.Wrapf(errs.ErrInvalidState, "entry %s is already playing", p.ID)
			}
		}
		entry.Status = queue.StatusPlaying
		entry.PlayedAt = &now

	default:
		entry.Status = status
	}

	if err := q.UpdateEntryStatus(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// deleteAndRepair removes entry and shifts every later entry down by one.
func (e *Engine) deleteAndRepair(ctx context.Context, q *store.Queries, entry *queue.Entry) error {
	// re-read: an earlier repair in the same transaction may have moved it
	cur, err := q.GetEntry(ctx, entry.ID)
	if err != nil {
		return err
	}
	if err := q.DeleteEntry(ctx, cur.ID); err != nil {
		return err
	}
	live, err := q.ListEntries(ctx)
	if err != nil {
		return err
	}
	entry.Position = cur.Position
	return applyShifts(ctx, q, live, position.CloseGap(positions(live), cur.Position))
}

// Remove deletes a pending entry. Only its submitter or an admin may remove it.
func (e *Engine) Remove(ctx context.Context, id, remover string) error {
	err := e.mutate(ctx, func(q *store.Queries) error {
		u, err := q.GetUserByEmail(ctx, remover)
		if err != nil {
			return err
		}
		entry, err := q.GetEntry(ctx, id)
		if err != nil {
			return err
		}
		if entry.Status != queue.StatusPending {
			return errors.Wrapf(errs.ErrInvalidState, "entry %s is %s", id, entry.Status)
		}
		if entry.AddedBy != u.Email && !u.IsAdmin() {
			return errors.Wrapf(errs.ErrPermissionDenied, "entry %s was added by another user", id)
		}
		return e.deleteAndRepair(ctx, q, entry)
	})
	if err != nil {
		return err
	}

	zlog.Info().Msgf("Entry removed: id=%s by=%s", id, remover)
	e.changed(ctx, "remove", id)
	return nil
}

// Reorder moves the pending entry at from to position to, which must also
// hold a pending entry. Pending entries in between slide toward the vacated
// slot; the playing entry keeps its position.
func (e *Engine) Reorder(ctx context.Context, from, to int) error {
	moved := false
	err := e.mutate(ctx, func(q *store.Queries) error {
		live, err := q.ListEntries(ctx)
		if err != nil {
			return err
		}
		pend := byStatus(live, queue.StatusPending)
		if indexAt(pend, from) < 0 {
			return errors.Wrapf(errs.ErrNotFound, "no pending entry at position %d", from)
		}
		if indexAt(pend, to) < 0 {
			return errors.Wrapf(errs.ErrInvalidArgument, "target position %d holds no pending entry", to)
		}

		shifts, err := position.MoveAmong(positions(pend), from, to)
		if err != nil {
			return errors.Mark(err, errs.ErrInvalidArgument)
		}
		moved = len(shifts) > 0
		return applyShifts(ctx, q, pend, shifts)
	})
	if err != nil {
		return err
	}

	if moved {
		zlog.Info().Msgf("Queue reordered: from=%d to=%d", from, to)
		e.changed(ctx, "reorder", "")
	}
	return nil
}

// Promote marks the lowest pending entry holding spotifyID as playing. A
// playing entry for a different track is archived as played first. It
// reports whether anything changed.
func (e *Engine) Promote(ctx context.Context, spotifyID string) (bool, error) {
	changed := false
	err := e.mutate(ctx, func(q *store.Queries) error {
		playing, err := q.ListEntriesByStatus(ctx, queue.StatusPlaying)
		if err != nil {
			return err
		}
		for i := range playing {
			p := &playing[i]
			if p.Track.SpotifyID == spotifyID {
				return nil
			}
			if _, err := e.transition(ctx, q, p, queue.StatusPlayed, ""); err != nil {
				return err
			}
			changed = true
		}
		if spotifyID == "" {
			return nil
		}

		candidates, err := q.ListEntriesBySpotifyID(ctx, spotifyID)
		if err != nil {
			return err
		}
		for i := range candidates {
			if candidates[i].Status != queue.StatusPending {
				continue
			}
			if _, err := e.transition(ctx, q, &candidates[i], queue.StatusPlaying, ""); err != nil {
				return err
			}
			changed = true
			zlog.Info().Msgf("Queue entry promoted to playing: id=%s track=%s", candidates[i].ID, spotifyID)
			break
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if changed {
		e.changed(ctx, "promote", spotifyID)
	}
	return changed, nil
}

// List returns every live entry ordered by position.
func (e *Engine) List(ctx context.Context) ([]queue.Entry, error) {
	return e.store.Queries().ListEntries(ctx)
}

// Pending returns the pending entries ordered by position.
func (e *Engine) Pending(ctx context.Context) ([]queue.Entry, error) {
	return e.store.Queries().ListEntriesByStatus(ctx, queue.StatusPending)
}

// Current returns the playing entry, or nil.
func (e *Engine) Current(ctx context.Context) (*queue.Entry, error) {
	playing, err := e.store.Queries().ListEntriesByStatus(ctx, queue.StatusPlaying)
	if err != nil || len(playing) == 0 {
		return nil, err
	}
	return &playing[0], nil
}

// History returns archived entries, most recent first.
func (e *Engine) History(ctx context.Context, limit int) ([]queue.HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return e.store.Queries().ListHistory(ctx, limit)
}

// NowPlaying returns the last reconciled player state, or nil.
func (e *Engine) NowPlaying(ctx context.Context) (*queue.NowPlaying, error) {
	np, err := e.store.Queries().GetNowPlaying(ctx)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	return np, err
}

func applyShifts(ctx context.Context, q *store.Queries, entries []queue.Entry, shifts []position.Shift) error {
	ids := make(map[int]string, len(entries))
	for _, en := range entries {
		ids[en.Position] = en.ID
	}
	for _, s := range shifts {
		id, ok := ids[s.From]
		if !ok {
			return errors.Wrapf(errs.ErrNotFound, "no entry at position %d", s.From)
		}
		if err := q.SetEntryPosition(ctx, id, s.To); err != nil {
			return err
		}
	}
	return nil
}

func positions(entries []queue.Entry) []int {
	out := make([]int, len(entries))
	for i, en := range entries {
		out[i] = en.Position
	}
	return out
}

func byStatus(entries []queue.Entry, status queue.Status) []queue.Entry {
	out := []queue.Entry{}
	for _, en := range entries {
		if en.Status == status {
			out = append(out, en)
		}
	}
	return out
}

func indexAt(entries []queue.Entry, pos int) int {
	for i, en := range entries {
		if en.Position == pos {
			return i
		}
	}
	return -1
}
