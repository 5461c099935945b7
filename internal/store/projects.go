package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AlexZinkM/edufund/internal/common"
	"github.com/AlexZinkM/edufund/internal/model"
)

// InitProjectsTable creates the projects table
func (s *Store) InitProjectsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		payout_address TEXT NOT NULL,
		goal_lovelace INTEGER NOT NULL,
		raised_lovelace INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_id);
	`
	_, err := s.db.Exec(query)
	return err
}

const projectColumns = `id, owner_id, title, description, payout_address, goal_lovelace, raised_lovelace, created_at, updated_at`

func scanProject(row rowScanner) (model.Project, error) {
	var p model.Project
	var goal, raised, created, updated int64
	err := row.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.PayoutAddress,
		&goal, &raised, &created, &updated)
	if err != nil {
		return model.Project{}, err
	}
	p.GoalLovelace = uint64(goal)
	p.RaisedLovelace = uint64(raised)
	p.Goal = common.LovelaceToADA(p.GoalLovelace)
	p.Raised = common.LovelaceToADA(p.RaisedLovelace)
	p.CreatedAt = unixTime(created)
	p.UpdatedAt = unixTime(updated)
	return p, nil
}

// CreateProject inserts a project with a new id and zero raised.
func (s *Store) CreateProject(ctx context.Context, p *model.Project) error {
	now := time.Now().UTC().Truncate(time.Second)
	p.ID = uuid.NewString()
	p.RaisedLovelace = 0
	p.CreatedAt, p.UpdatedAt = now, now
	p.Goal = common.LovelaceToADA(p.GoalLovelace)
	p.Raised = common.LovelaceToADA(0)
	goal, err := lovelaceArg(p.GoalLovelace)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		p.ID, p.OwnerID, p.Title, p.Description, p.PayoutAddress, goal,
		now.Unix(), now.Unix(),
	)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("owner %s: %w", p.OwnerID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// GetProject returns ErrNotFound for an unknown id.
func (s *Store) GetProject(ctx context.Context, id string) (*model.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query project: %w", err)
	}
	return &p, nil
}

// ListProjects returns projects newest first, optionally only those of ownerID.
func (s *Store) ListProjects(ctx context.Context, ownerID string) ([]model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	var args []any
	if ownerID != "" {
		query += ` WHERE owner_id = ?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY created_at DESC, id`

	projects, err := queryRows(ctx, s.db, query, func(rows *sql.Rows) (model.Project, error) {
		return scanProject(rows)
	}, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// UpdateProject replaces the editable fields. The raised total is untouched.
func (s *Store) UpdateProject(ctx context.Context, p *model.Project) error {
	goal, err := lovelaceArg(p.GoalLovelace)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Truncate(time.Second)
	res, err := s.db.ExecContext(ctx, `
		UPDATE projects SET title = ?, description = ?, payout_address = ?, goal_lovelace = ?, updated_at = ?
		WHERE id = ?`,
		p.Title, p.Description, p.PayoutAddress, goal, now.Unix(), p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	p.UpdatedAt = now
	p.Goal = common.LovelaceToADA(p.GoalLovelace)
	return nil
}

// DeleteProject removes a project and, by cascade, its donations.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
