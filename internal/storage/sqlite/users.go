package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/steveyegge/tracker/internal/storage"
	"github.com/steveyegge/tracker/internal/types"
)

// CreateUser creates a new user.
func (s *Store) CreateUser(ctx context.Context, user *types.User) error {
	if strings.TrimSpace(user.Email) == "" {
		return fmt.Errorf("%w: email is required", storage.ErrValidation)
	}

	user.CreatedAt = time.Now()
	return s.withWriteTx(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `
			INSERT INTO users (email, name, team_id, created_at) VALUES (?, ?, ?, ?)
		`, user.Email, user.Name, user.TeamID, user.CreatedAt)
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("email %q: %w", user.Email, storage.ErrDuplicateID)
			}
			if isForeignKeyConstraintError(err) {
				return fmt.Errorf("%w: referenced team does not exist", storage.ErrValidation)
			}
			return wrapDBError("insert user", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return wrapDBError("user insert id", err)
		}
		user.ID = id
		return nil
	})
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id int64) (*types.User, error) {
	var u types.User
	var teamID sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, team_id, created_at FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.Email, &u.Name, &teamID, &u.CreatedAt)
	if err != nil {
		return nil, wrapDBError("get user", err)
	}
	if teamID.Valid {
		u.TeamID = &teamID.Int64
	}
	return &u, nil
}

// ListUsers returns all users ordered by email.
func (s *Store) ListUsers(ctx context.Context) ([]*types.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, name, team_id, created_at FROM users ORDER BY email
	`)
	if err != nil {
		return nil, wrapDBError("list users", err)
	}
	defer func() { _ = rows.Close() }()

	var users []*types.User
	for rows.Next() {
		var u types.User
		var teamID sql.NullInt64
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &teamID, &u.CreatedAt); err != nil {
			return nil, wrapDBError("scan user", err)
		}
		if teamID.Valid {
			u.TeamID = &teamID.Int64
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// DeleteUser removes a user. Work item assignee/reporter references and
// project creator references are cleared; the user's own comments,
// attachments and history attributions cascade away, since those rows
// have no meaning without the actor.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.withWriteTx(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
		if err != nil {
			return wrapDBError("delete user", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return wrapDBError("delete user rows", err)
		}
		if n == 0 {
			return fmt.Errorf("user %d: %w", id, storage.ErrNotFound)
		}
		return nil
	})
}

// CreateTeam creates a new team.
func (s *Store) CreateTeam(ctx context.Context, team *types.Team) error {
	if strings.TrimSpace(team.Name) == "" {
		return fmt.Errorf("%w: team name is required", storage.ErrValidation)
	}

	team.CreatedAt = time.Now()
	return s.withWriteTx(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `
			INSERT INTO teams (name, created_at) VALUES (?, ?)
		`, team.Name, team.CreatedAt)
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("team %q: %w", team.Name, storage.ErrDuplicateID)
			}
			return wrapDBError("insert team", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return wrapDBError("team insert id", err)
		}
		team.ID = id
		return nil
	})
}

// GetTeam retrieves a team by ID.
func (s *Store) GetTeam(ctx context.Context, id int64) (*types.Team, error) {
	var t types.Team
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at FROM teams WHERE id = ?
	`, id).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		return nil, wrapDBError("get team", err)
	}
	return &t, nil
}

// DeleteTeam removes a team; member and project references are cleared.
func (s *Store) DeleteTeam(ctx context.Context, id int64) error {
	return s.withWriteTx(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `DELETE FROM teams WHERE id = ?`, id)
		if err != nil {
			return wrapDBError("delete team", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return wrapDBError("delete team rows", err)
		}
		if n == 0 {
			return fmt.Errorf("team %d: %w", id, storage.ErrNotFound)
		}
		return nil
	})
}
