package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/steveyegge/tracker/internal/idgen"
	"github.com/steveyegge/tracker/internal/storage"
	"github.com/steveyegge/tracker/internal/types"
)

// querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx, letting query
// helpers run either standalone or inside a write transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// allowedProjectUpdateFields whitelists column names for UpdateProject.
// key is deliberately absent: it is immutable once work items reference it.
var allowedProjectUpdateFields = map[string]bool{
	"name":    true,
	"status":  true,
	"team_id": true,
}

// CreateProject creates a new project and seeds its identifier counter.
func (s *Store) CreateProject(ctx context.Context, project *types.Project) error {
	if err := idgen.ValidateProjectKey(project.Key); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}
	if strings.TrimSpace(project.Name) == "" {
		return fmt.Errorf("%w: project name is required", storage.ErrValidation)
	}
	if project.Status == "" {
		project.Status = types.ProjectPlanning
	}
	if !project.Status.IsValid() {
		return fmt.Errorf("%w: invalid project status: %s", storage.ErrValidation, project.Status)
	}

	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now

	return s.withWriteTx(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `
			INSERT INTO projects (key, name, status, team_id, created_by, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, project.Key, project.Name, project.Status, project.TeamID, project.CreatedBy,
			project.CreatedAt, project.UpdatedAt)
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("project key %q: %w", project.Key, storage.ErrDuplicateID)
			}
			return wrapDBError("insert project", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return wrapDBError("project insert id", err)
		}
		project.ID = id

		// Seed the per-project counter so allocation is a plain UPDATE.
		// Work items may already occupy this key namespace via explicit
		// external IDs created before the project; start past the highest
		// of those so the first allocation cannot collide.
		if _, err := conn.ExecContext(ctx, `
			INSERT INTO item_counters (project_id, last_seq)
			VALUES (?, COALESCE((
				SELECT MAX(CAST(substr(external_id, length(?) + 2) AS INTEGER))
				FROM work_items
				WHERE external_id LIKE ? || '-%'
			), 0))
		`, id, project.Key, project.Key); err != nil {
			return wrapDBError("seed item counter", err)
		}
		return nil
	})
}

// GetProject retrieves a project by internal ID.
func (s *Store) GetProject(ctx context.Context, id int64) (*types.Project, error) {
	return scanProject(s.db.QueryRowContext(ctx, `
		SELECT id, key, name, status, team_id, created_by, created_at, updated_at
		FROM projects WHERE id = ?
	`, id))
}

// GetProjectByKey retrieves a project by its unique key.
func (s *Store) GetProjectByKey(ctx context.Context, key string) (*types.Project, error) {
	return scanProject(s.db.QueryRowContext(ctx, `
		SELECT id, key, name, status, team_id, created_by, created_at, updated_at
		FROM projects WHERE key = ?
	`, key))
}

func scanProject(row *sql.Row) (*types.Project, error) {
	var p types.Project
	var teamID, createdBy sql.NullInt64
	err := row.Scan(&p.ID, &p.Key, &p.Name, &p.Status, &teamID, &createdBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, wrapDBError("get project", err)
	}
	if teamID.Valid {
		p.TeamID = &teamID.Int64
	}
	if createdBy.Valid {
		p.CreatedBy = &createdBy.Int64
	}
	return &p, nil
}

// ListProjects returns all projects ordered by key.
func (s *Store) ListProjects(ctx context.Context) ([]*types.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, key, name, status, team_id, created_by, created_at, updated_at
		FROM projects ORDER BY key
	`)
	if err != nil {
		return nil, wrapDBError("list projects", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []*types.Project
	for rows.Next() {
		var p types.Project
		var teamID, createdBy sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Key, &p.Name, &p.Status, &teamID, &createdBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, wrapDBError("scan project", err)
		}
		if teamID.Valid {
			p.TeamID = &teamID.Int64
		}
		if createdBy.Valid {
			p.CreatedBy = &createdBy.Int64
		}
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

// UpdateProject updates mutable project fields (name, status, team).
func (s *Store) UpdateProject(ctx context.Context, id int64, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	setClauses := []string{"updated_at = ?"}
	args := []interface{}{time.Now()}

	for key, value := range updates {
		// Prevent SQL injection by validating field names
		if !allowedProjectUpdateFields[key] {
			return fmt.Errorf("%w: invalid field for update: %s", storage.ErrValidation, key)
		}
		if key == "status" {
			status, _ := value.(string)
			if !types.ProjectStatus(status).IsValid() {
				return fmt.Errorf("%w: invalid project status: %v", storage.ErrValidation, value)
			}
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = ?", key))
		args = append(args, value)
	}
	args = append(args, id)

	return s.withWriteTx(ctx, func(conn *sql.Conn) error {
		query := fmt.Sprintf("UPDATE projects SET %s WHERE id = ?", strings.Join(setClauses, ", ")) // #nosec G201 - column names validated above
		res, err := conn.ExecContext(ctx, query, args...)
		if err != nil {
			return wrapDBError("update project", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return wrapDBError("update project rows", err)
		}
		if n == 0 {
			return fmt.Errorf("project %d: %w", id, storage.ErrNotFound)
		}
		return nil
	})
}

// DeleteProject removes a project. All of its work items, and their
// history, comments and attachments, cascade away with it.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	return s.withWriteTx(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
		if err != nil {
			return wrapDBError("delete project", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return wrapDBError("delete project rows", err)
		}
		if n == 0 {
			return fmt.Errorf("project %d: %w", id, storage.ErrNotFound)
		}
		return nil
	})
}
