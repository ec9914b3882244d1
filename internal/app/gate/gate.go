package gate

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19queue/internal/app/notification"
	"github.com/osa030/19queue/internal/domain/errs"
	"github.com/osa030/19queue/internal/domain/queue"
	"github.com/osa030/19queue/internal/infra/store"
)

// DefaultMessages are the user-facing reasons for each deny code.
var DefaultMessages = map[string]string{
	CodeLocked:         "Queue is currently locked",
	CodeFull:           "Queue is full",
	CodeDuplicate:      "Track already in queue",
	CodeDurationLimit:  "Track is too long",
	CodeRestrictedUser: "You are not allowed to add tracks",
	CodePaused:         "Queue is paused",
	CodeGuest:          "Guests cannot add tracks",
	CodeRecentlyPlayed: "Track was played recently",
}

var validate = validator.New()

// Gate owns the queue settings singleton and evaluates the rule chain.
type Gate struct {
	store    *store.Store
	chain    *Chain
	defaults queue.Settings
	messages func(code string) string
	now      func() time.Time
	pub      notification.Publisher
}

// Option configures a Gate.
type Option func(*Gate)

// WithChain replaces the default core chain.
func WithChain(c *Chain) Option {
	return func(g *Gate) { g.chain = c }
}

// WithDefaults sets the settings created on first access.
func WithDefaults(s queue.Settings) Option {
	return func(g *Gate) { g.defaults = s }
}

// WithMessages sets the lookup for deny reasons. An empty result falls back
// to DefaultMessages.
func WithMessages(fn func(code string) string) Option {
	return func(g *Gate) { g.messages = fn }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithPublisher sets where settings_changed events go.
func WithPublisher(p notification.Publisher) Option {
	return func(g *Gate) { g.pub = p }
}

// New creates a Gate over the given store.
func New(s *store.Store, opts ...Option) *Gate {
	g := &Gate{
		store:    s,
		defaults: queue.DefaultSettings(),
		now:      time.Now,
		pub:      notification.Discard,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.chain == nil {
		g.chain = DefaultChain()
	}
	return g
}

// Chain returns the rule chain in use.
func (g *Gate) Chain() *Chain {
	return g.chain
}

// Evaluate runs the chain and turns a denial into an errs.PolicyError.
func (g *Gate) Evaluate(ctx context.Context, req Request) error {
	d := g.chain.Execute(ctx, req)
	if d.Allowed {
		return nil
	}
	msg := g.Message(d.Code)
	zlog.Info().Msgf("Gate denied: action=%s track=%s user=%s code=%s",
		req.Action, req.Track.SpotifyID, req.Submitter.Email, d.Code)
	return errs.Denied(d.Code, msg)
}

// Message returns the user-facing reason for a deny code.
func (g *Gate) Message(code string) string {
	if g.messages != nil {
		if msg := g.messages(code); msg != "" {
			return msg
		}
	}
	if msg, ok := DefaultMessages[code]; ok {
		return msg
	}
	return "Request rejected: " + code
}

// Settings ensures the singleton exists and reads it through q, so callers
// evaluate policy inside the transaction that performs their mutation.
func (g *Gate) Settings(ctx context.Context, q *store.Queries) (*queue.Settings, error) {
	if _, err := g.ensure(ctx, q); err != nil {
		return nil, err
	}
	return q.GetSettings(ctx)
}

func (g *Gate) ensure(ctx context.Context, q *store.Queries) (bool, error) {
	d := g.defaults
	d.UpdatedAt = g.now()
	created, err := q.EnsureSettings(ctx, d)
	if err != nil {
		return false, err
	}
	if created {
		zlog.Info().Msgf("Queue settings initialized with defaults: max_queue_size=%d", d.MaxQueueSize)
	}
	return created, nil
}

// GetSettings returns the current settings, creating the defaults if needed.
func (g *Gate) GetSettings(ctx context.Context) (*queue.Settings, error) {
	var out *queue.Settings
	err := g.store.InTx(ctx, func(q *store.Queries) error {
		s, err := g.Settings(ctx, q)
		out = s
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// InitializeSettings creates the default settings once. It reports whether
// this call created them.
func (g *Gate) InitializeSettings(ctx context.Context) (bool, *queue.Settings, error) {
	var (
		created bool
		out     *queue.Settings
	)
	err := g.store.InTx(ctx, func(q *store.Queries) error {
		var err error
		if created, err = g.ensure(ctx, q); err != nil {
			return err
		}
		out, err = q.GetSettings(ctx)
		return err
	})
	if err != nil {
		return false, nil, err
	}
	if created {
		g.pub.Publish(ctx, notification.Event{Type: notification.EventSettingsChanged, Reason: "initialize"})
	}
	return created, out, nil
}

// UpdateSettings applies a partial patch. updatedBy and updatedAt always refresh.
func (g *Gate) UpdateSettings(ctx context.Context, patch queue.SettingsPatch, by string) (*queue.Settings, error) {
	var out queue.Settings
	err := g.store.InTx(ctx, func(q *store.Queries) error {
		cur, err := g.Settings(ctx, q)
		if err != nil {
			return err
		}
		next := cur.Apply(patch, by, g.now())
		if err := validate.Struct(next); err != nil {
			return errors.Mark(errors.Wrap(err, "invalid settings"), errs.ErrInvalidArgument)
		}
		if err := q.SaveSettings(ctx, &next); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	zlog.Info().Msgf("Queue settings updated: by=%s locked=%t paused=%t max_queue_size=%d",
		by, out.IsLocked, out.IsPaused, out.MaxQueueSize)
	g.pub.Publish(ctx, notification.Event{Type: notification.EventSettingsChanged, Reason: "update"})
	return &out, nil
}
