package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AlexZinkM/edufund/internal/common"
	"github.com/AlexZinkM/edufund/internal/model"
)

// InitDonationsTable creates the donations table
func (s *Store) InitDonationsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS donations (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		donor_id TEXT NOT NULL,
		tx_id TEXT NOT NULL UNIQUE,
		lovelace INTEGER NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
		FOREIGN KEY (donor_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_donations_project ON donations(project_id);
	CREATE INDEX IF NOT EXISTS idx_donations_donor ON donations(donor_id);
	CREATE INDEX IF NOT EXISTS idx_donations_created ON donations(created_at);
	`
	_, err := s.db.Exec(query)
	return err
}

// CreateDonation records a donation and adds it to the project's raised total
// in one transaction. A tx id can only be recorded once.
func (s *Store) CreateDonation(ctx context.Context, d *model.Donation) error {
	d.ID = uuid.NewString()
	d.TxID = strings.ToLower(strings.TrimSpace(d.TxID))
	d.Amount = common.LovelaceToADA(d.Lovelace)
	amount, err := lovelaceArg(d.Lovelace)
	if err != nil {
		return err
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx,
		`UPDATE projects SET raised_lovelace = raised_lovelace + ? WHERE id = ?`,
		amount, d.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to update project total: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s: %w", d.ProjectID, ErrNotFound)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO donations (id, project_id, donor_id, tx_id, lovelace, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ProjectID, d.DonorID, d.TxID, amount, d.Message, d.CreatedAt.Unix(),
	)
	switch {
	case isUniqueViolation(err):
		return ErrDuplicateTx
	case isForeignKeyViolation(err):
		return ErrUnknownDonor
	case err != nil:
		return fmt.Errorf("failed to insert donation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit donation: %w", err)
	}

	s.log.WithField("project_id", d.ProjectID).WithField("tx_id", d.TxID).Info("donation recorded")
	return nil
}

func scanDonation(row rowScanner) (model.Donation, error) {
	var d model.Donation
	var lovelace, created int64
	if err := row.Scan(&d.ID, &d.ProjectID, &d.DonorID, &d.TxID, &lovelace, &d.Message, &created); err != nil {
		return model.Donation{}, err
	}
	d.Lovelace = uint64(lovelace)
	d.Amount = common.LovelaceToADA(d.Lovelace)
	d.CreatedAt = unixTime(created)
	return d, nil
}

// ListDonations returns donations matching filter, newest first, and their total in lovelace.
// The filter must have been validated.
func (s *Store) ListDonations(ctx context.Context, filter model.DonationFilter) ([]model.Donation, uint64, error) {
	var where []string
	var args []any

	if filter.ProjectID != nil {
		where = append(where, "project_id = ?")
		args = append(args, *filter.ProjectID)
	}
	if filter.DonorID != nil {
		where = append(where, "donor_id = ?")
		args = append(args, *filter.DonorID)
	}
	if filter.TxID != nil {
		where = append(where, "tx_id = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(*filter.TxID)))
	}
	if filter.From != nil {
		where = append(where, "created_at >= ?")
		args = append(args, filter.From.Unix())
	}
	if filter.To != nil {
		where = append(where, "created_at <= ?")
		args = append(args, filter.To.Unix())
	}
	if filter.MinAmount != nil {
		v, err := common.ADAToLovelace(*filter.MinAmount)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid minAmount: %w", err)
		}
		where = append(where, "lovelace >= ?")
		args = append(args, int64(v)) // capped at MaxLovelace
	}
	if filter.MaxAmount != nil {
		v, err := common.ADAToLovelace(*filter.MaxAmount)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid maxAmount: %w", err)
		}
		where = append(where, "lovelace <= ?")
		args = append(args, int64(v)) // capped at MaxLovelace
	}

	query := `SELECT id, project_id, donor_id, tx_id, lovelace, message, created_at FROM donations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	donations, err := queryRows(ctx, s.db, query, func(rows *sql.Rows) (model.Donation, error) {
		return scanDonation(rows)
	}, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list donations: %w", err)
	}

	var total uint64
	for _, d := range donations {
		total += d.Lovelace
	}
	return donations, total, nil
}
