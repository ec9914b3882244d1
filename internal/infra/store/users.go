package store

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"

	"github.com/osa030/19queue/internal/domain/errs"
	"github.com/osa030/19queue/internal/domain/user"
)

const userColumns = `id, email, name, image, external_id, role, created_at, updated_at`

// InsertUser stores a new user.
func (q *Queries) InsertUser(ctx context.Context, u *user.User) error {
	_, err := q.exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.Image, u.ExternalID, string(u.Role),
		toMillis(u.CreatedAt), toMillis(u.UpdatedAt))
	if err != nil {
		return errors.Wrap(err, "failed to insert user")
	}
	return nil
}

// UpdateUser rewrites every mutable column of an existing user.
func (q *Queries) UpdateUser(ctx context.Context, u *user.User) error {
	res, err := q.exec(ctx,
		`UPDATE users SET email = ?, name = ?, image = ?, external_id = ?, role = ?, updated_at = ? WHERE id = ?`,
		u.Email, u.Name, u.Image, u.ExternalID, string(u.Role), toMillis(u.UpdatedAt), u.ID)
	if err != nil {
		return errors.Wrap(err, "failed to update user")
	}
	return affected(res, "user "+u.ID)
}

// GetUser returns the user with the given id.
func (q *Queries) GetUser(ctx context.Context, id string) (*user.User, error) {
	row := q.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row, "user "+id)
}

// GetUserByEmail returns the user with the given email.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	row := q.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row, "user "+email)
}

// GetUserByExternalID returns the user linked to the given OAuth subject.
func (q *Queries) GetUserByExternalID(ctx context.Context, externalID string) (*user.User, error) {
	row := q.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE external_id = ? AND external_id <> ''`, externalID)
	return scanUser(row, "user with external id "+externalID)
}

// ListUsers returns all users ordered by creation time.
func (q *Queries) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := q.query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		u, err := scanUser(rows, "")
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, errors.Wrap(rows.Err(), "failed to iterate users")
}

// DeleteUser removes a user. Owned playlists must be removed first.
func (q *Queries) DeleteUser(ctx context.Context, id string) error {
	res, err := q.exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete user")
	}
	return affected(res, "user "+id)
}

func scanUser(row rowScanner, what string) (*user.User, error) {
	var (
		u                    user.User
		role                 string
		createdAt, updatedAt int64
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Image, &u.ExternalID, &role, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errs.ErrNotFound, "%s", what)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan user")
	}
	u.Role = user.Role(role)
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return &u, nil
}
