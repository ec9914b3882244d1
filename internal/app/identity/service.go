// Package identity keeps the user records the queue and playlists refer to.
package identity

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19queue/internal/domain/errs"
	"github.com/osa030/19queue/internal/domain/user"
	"github.com/osa030/19queue/internal/infra/store"
)

// Service manages users.
type Service struct {
	store       *store.Store
	adminEmails []string
	now         func() time.Time
	newID       func() string
}

// Option configures a Service.
type Option func(*Service)

// WithAdminEmails grants the admin role to these emails when they first sign in.
func WithAdminEmails(emails ...string) Option {
	return func(s *Service) {
		for _, e := range emails {
			s.adminEmails = append(s.adminEmails, normalizeEmail(e))
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an identity service.
func NewService(st *store.Store, opts ...Option) *Service {
	s := &Service{store: st, now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpsertInput is the profile reported by the sign-in provider.
type UpsertInput struct {
	Email      string
	Name       string
	Image      string
	ExternalID string
}

// UpsertUser creates a user on first sign-in and refreshes the profile on
// later ones. It returns the stored user.
func (s *Service) UpsertUser(ctx context.Context, in UpsertInput) (*user.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, errors.Wrap(errs.ErrInvalidArgument, "email is required")
	}

	var out *user.User
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		now := s.now()
		u, err := q.GetUserByEmail(ctx, email)
		if errors.Is(err, errs.ErrNotFound) {
			role := user.RoleUser
			if slices.Contains(s.adminEmails, email) {
				role = user.RoleAdmin
			}
			out = &user.User{
				ID:         s.newID(),
				Email:      email,
				Name:       in.Name,
				Image:      in.Image,
				ExternalID: in.ExternalID,
				Role:       role,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			zlog.Info().Msgf("User created: id=%s email=%s role=%s", out.ID, email, role)
			return q.InsertUser(ctx, out)
		}
		if err != nil {
			return err
		}

		if in.Name != "" {
			u.Name = in.Name
		}
		if in.Image != "" {
			u.Image = in.Image
		}
		if in.ExternalID != "" {
			u.ExternalID = in.ExternalID
		}
		u.UpdatedAt = now
		out = u
		return q.UpdateUser(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetUser returns a user by id.
func (s *Service) GetUser(ctx context.Context, id string) (*user.User, error) {
	return s.store.Queries().GetUser(ctx, id)
}

// GetUserByEmail returns a user by email.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.store.Queries().GetUserByEmail(ctx, normalizeEmail(email))
}

// GetUserByExternalID returns a user by sign-in provider subject.
func (s *Service) GetUserByExternalID(ctx context.Context, externalID string) (*user.User, error) {
	return s.store.Queries().GetUserByExternalID(ctx, externalID)
}

// ListUsers returns every user, oldest first.
func (s *Service) ListUsers(ctx context.Context) ([]user.User, error) {
	users, err := s.store.Queries().ListUsers(ctx)
	if users == nil && err == nil {
		users = []user.User{}
	}
	return users, err
}

// UpdateUserRole changes a user's role.
func (s *Service) UpdateUserRole(ctx context.Context, id string, role user.Role) (*user.User, error) {
	if !role.Valid() {
		return nil, errors.Wrapf(errs.ErrInvalidArgument, "unknown role %q", role)
	}
	u, err := s.update(ctx, id, func(u *user.User) { u.Role = role })
	if err != nil {
		return nil, err
	}
	zlog.Info().Msgf("User role changed: id=%s role=%s", id, role)
	return u, nil
}

// ProfilePatch carries a partial profile update.
type ProfilePatch struct {
	Name  *string
	Image *string
}

// UpdateUserProfile patches name and image.
func (s *Service) UpdateUserProfile(ctx context.Context, id string, p ProfilePatch) (*user.User, error) {
	return s.update(ctx, id, func(u *user.User) {
		if p.Name != nil {
			u.Name = *p.Name
		}
		if p.Image != nil {
			u.Image = *p.Image
		}
	})
}

func (s *Service) update(ctx context.Context, id string, fn func(u *user.User)) (*user.User, error) {
	var out *user.User
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		u, err := q.GetUser(ctx, id)
		if err != nil {
			return err
		}
		fn(u)
		u.UpdatedAt = s.now()
		out = u
		return q.UpdateUser(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteUser removes the user's playlists and then the user, atomically.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	var removed int64
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		if _, err := q.GetUser(ctx, id); err != nil {
			return err
		}
		n, err := q.DeletePlaylistsByOwner(ctx, id)
		if err != nil {
			return err
		}
		removed = n
		return q.DeleteUser(ctx, id)
	})
	if err != nil {
		return err
	}
	zlog.Info().Msgf("User deleted: id=%s playlists=%d", id, removed)
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
