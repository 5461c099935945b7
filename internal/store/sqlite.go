// Package store persists platform users, projects and donations in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/AlexZinkM/edufund/internal/common"
	"github.com/AlexZinkM/edufund/internal/logging"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrEmailTaken   = errors.New("email already registered")
	ErrDuplicateTx  = errors.New("donation with this transaction id already recorded")
	ErrUnknownDonor = errors.New("unknown donor")
	ErrAmountRange  = errors.New("amount exceeds maximum ADA supply")
)

// Store wraps the SQLite database.
type Store struct {
	db  *sql.DB
	log log.FieldLogger
}

// Open opens (creating if needed) the database at path and initializes its tables.
func Open(path string, logger log.FieldLogger) (*Store, error) {
	path = filepath.ToSlash(path)
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, log: logging.Component(logger, "store")}

	for _, tbl := range []struct {
		name string
		fn   func() error
	}{
		{"users", s.InitUsersTable},
		{"projects", s.InitProjectsTable},
		{"donations", s.InitDonationsTable},
	} {
		if err := tbl.fn(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize %s table: %w", tbl.name, err)
		}
	}

	s.log.WithField("path", path).Info("database ready")
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// lovelaceArg converts an amount to the INTEGER column type. Anything above
// the ADA supply would wrap negative in int64 and is refused.
func lovelaceArg(v uint64) (int64, error) {
	if v > common.MaxLovelace {
		return 0, ErrAmountRange
	}
	return int64(v), nil
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// queryRows runs a query and scans every row.
func queryRows[T any](ctx context.Context, db *sql.DB, query string, scan func(*sql.Rows) (T, error), args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
