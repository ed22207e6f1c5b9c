package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"CharityFund/internal/model"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store persists projects, donations and allocation history in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database and runs migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite has a single writer; one connection keeps transactions serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite store opened: %s", dbPath)
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS charity_project (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			name            TEXT NOT NULL UNIQUE,
			description     TEXT NOT NULL,
			full_amount     INTEGER NOT NULL CHECK (full_amount > 0),
			invested_amount INTEGER NOT NULL DEFAULT 0
				CHECK (invested_amount >= 0 AND invested_amount <= full_amount),
			fully_invested  INTEGER NOT NULL DEFAULT 0,
			create_date     INTEGER NOT NULL,
			close_date      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_project_open ON charity_project(fully_invested, create_date, id)`,

		`CREATE TABLE IF NOT EXISTS donation (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			full_amount     INTEGER NOT NULL CHECK (full_amount > 0),
			invested_amount INTEGER NOT NULL DEFAULT 0
				CHECK (invested_amount >= 0 AND invested_amount <= full_amount),
			fully_invested  INTEGER NOT NULL DEFAULT 0,
			create_date     INTEGER NOT NULL,
			close_date      INTEGER,
			comment         TEXT NOT NULL DEFAULT '',
			user_id         TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_donation_open ON donation(fully_invested, create_date, id)`,
		`CREATE INDEX IF NOT EXISTS idx_donation_user ON donation(user_id)`,

		`CREATE TABLE IF NOT EXISTS transfer (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			pass_id     TEXT NOT NULL,
			project_id  INTEGER NOT NULL,
			donation_id INTEGER NOT NULL,
			amount      INTEGER NOT NULL CHECK (amount > 0),
			created_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transfer_project ON transfer(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transfer_donation ON transfer(donation_id)`,

		`CREATE TABLE IF NOT EXISTS funding_snapshot (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp          INTEGER NOT NULL,
			projects_total     INTEGER,
			projects_open      INTEGER,
			requested_amount   INTEGER,
			raised_amount      INTEGER,
			donations_total    INTEGER,
			donated_amount     INTEGER,
			unallocated_amount INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshot_ts ON funding_snapshot(timestamp)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// InTx runs fn inside a single transaction. The transaction is committed when
// fn returns nil and rolled back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListProjects returns every project ordered by creation.
func (s *Store) ListProjects(ctx context.Context) ([]*model.Project, error) {
	return queryProjects(ctx, s.db, "")
}

// GetProject returns a project by id.
func (s *Store) GetProject(ctx context.Context, id int64) (*model.Project, error) {
	return getProject(ctx, s.db, id)
}

// ListDonations returns every donation ordered by creation.
func (s *Store) ListDonations(ctx context.Context) ([]*model.Donation, error) {
	return queryDonations(ctx, s.db, "")
}

// ListUserDonations returns the donations made by userID.
func (s *Store) ListUserDonations(ctx context.Context, userID string) ([]*model.Donation, error) {
	return queryDonations(ctx, s.db, "WHERE user_id = ?", userID)
}

// ListTransfers returns the transfers touching the entity of the given kind.
func (s *Store) ListTransfers(ctx context.Context, kind model.Kind, id int64) ([]model.Transfer, error) {
	column := "project_id"
	if kind == model.KindDonation {
		column = "donation_id"
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, pass_id, project_id, donation_id, amount, created_at
		FROM transfer WHERE `+column+` = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer rows.Close()

	var out []model.Transfer
	for rows.Next() {
		var t model.Transfer
		var createdAt int64
		if err := rows.Scan(&t.ID, &t.PassID, &t.ProjectID, &t.DonationID, &t.Amount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		t.CreatedAt = fromUnix(createdAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Summary computes funding totals at this moment.
func (s *Store) Summary(ctx context.Context) (*model.Summary, error) {
	sum := &model.Summary{TakenAt: time.Now().UTC()}
	err := s.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN fully_invested = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(full_amount), 0),
			COALESCE(SUM(invested_amount), 0)
		FROM charity_project`).Scan(&sum.ProjectsTotal, &sum.ProjectsOpen, &sum.RequestedAmount, &sum.RaisedAmount)
	if err != nil {
		return nil, fmt.Errorf("project totals: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COALESCE(SUM(full_amount), 0),
			COALESCE(SUM(full_amount - invested_amount), 0)
		FROM donation`).Scan(&sum.DonationsTotal, &sum.DonatedAmount, &sum.UnallocatedAmount)
	if err != nil {
		return nil, fmt.Errorf("donation totals: %w", err)
	}
	return sum, nil
}

// RecordSnapshot stores a summary for later trend analysis.
func (s *Store) RecordSnapshot(ctx context.Context, sum *model.Summary) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO funding_snapshot
		(timestamp, projects_total, projects_open, requested_amount, raised_amount,
		 donations_total, donated_amount, unallocated_amount)
		VALUES (?,?,?,?,?,?,?,?)`,
		toUnix(sum.TakenAt), sum.ProjectsTotal, sum.ProjectsOpen,
		sum.RequestedAmount, sum.RaisedAmount,
		sum.DonationsTotal, sum.DonatedAmount, sum.UnallocatedAmount,
	)
	return err
}

// ListSnapshots returns up to limit of the most recent snapshots, newest first.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]model.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT timestamp, projects_total, projects_open,
			requested_amount, raised_amount, donations_total, donated_amount, unallocated_amount
		FROM funding_snapshot ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []model.Summary
	for rows.Next() {
		var sum model.Summary
		var ts int64
		if err := rows.Scan(&ts, &sum.ProjectsTotal, &sum.ProjectsOpen,
			&sum.RequestedAmount, &sum.RaisedAmount,
			&sum.DonationsTotal, &sum.DonatedAmount, &sum.UnallocatedAmount); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		sum.TakenAt = fromUnix(ts)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	log.Println("[INFO] closing sqlite store")
	return s.db.Close()
}

func toUnix(t time.Time) int64 { return t.UnixNano() }

func fromUnix(n int64) time.Time { return time.Unix(0, n).UTC() }

func nullableUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toUnix(*t), Valid: true}
}

func fromNullable(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromUnix(n.Int64)
	return &t
}
