package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"CharityFund/internal/model"
)

// Tx is a unit of work opened by Store.InTx.
type Tx struct {
	tx *sql.Tx
}

const projectColumns = `id, name, description, full_amount, invested_amount, fully_invested, create_date, close_date`

const donationColumns = `id, full_amount, invested_amount, fully_invested, create_date, close_date, comment, user_id`

// CreateProject inserts p and assigns its id.
func (t *Tx) CreateProject(ctx context.Context, p *model.Project) error {
	res, err := t.tx.ExecContext(ctx, `INSERT INTO charity_project
		(name, description, full_amount, invested_amount, fully_invested, create_date, close_date)
		VALUES (?,?,?,?,?,?,?)`,
		p.Name, p.Description, p.FullAmount, p.InvestedAmount, p.FullyInvested,
		toUnix(p.CreateDate), nullableUnix(p.CloseDate),
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("project id: %w", err)
	}
	return nil
}

// GetProject returns a project by id.
func (t *Tx) GetProject(ctx context.Context, id int64) (*model.Project, error) {
	return getProject(ctx, t.tx, id)
}

// ProjectIDByName looks up a project id by its exact name.
func (t *Tx) ProjectIDByName(ctx context.Context, name string) (int64, bool, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, `SELECT id FROM charity_project WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup project name: %w", err)
	}
	return id, true, nil
}

// UpdateProject writes every mutable column of p.
func (t *Tx) UpdateProject(ctx context.Context, p *model.Project) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE charity_project SET
		name = ?, description = ?, full_amount = ?, invested_amount = ?, fully_invested = ?, close_date = ?
		WHERE id = ?`,
		p.Name, p.Description, p.FullAmount, p.InvestedAmount, p.FullyInvested,
		nullableUnix(p.CloseDate), p.ID,
	)
	if err != nil {
		return fmt.Errorf("update project %d: %w", p.ID, err)
	}
	return expectOneRow(res, "project", p.ID)
}

// DeleteProject removes a project by id.
func (t *Tx) DeleteProject(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM charity_project WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project %d: %w", id, err)
	}
	return expectOneRow(res, "project", id)
}

// CreateDonation inserts d and assigns its id.
func (t *Tx) CreateDonation(ctx context.Context, d *model.Donation) error {
	res, err := t.tx.ExecContext(ctx, `INSERT INTO donation
		(full_amount, invested_amount, fully_invested, create_date, close_date, comment, user_id)
		VALUES (?,?,?,?,?,?,?)`,
		d.FullAmount, d.InvestedAmount, d.FullyInvested,
		toUnix(d.CreateDate), nullableUnix(d.CloseDate), d.Comment, d.UserID,
	)
	if err != nil {
		return fmt.Errorf("insert donation: %w", err)
	}
	if d.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("donation id: %w", err)
	}
	return nil
}

// OpenProjects returns projects that are not fully invested, oldest first.
func (t *Tx) OpenProjects(ctx context.Context) ([]*model.Project, error) {
	return queryProjects(ctx, t.tx, "WHERE fully_invested = 0")
}

// OpenDonations returns donations that are not fully invested, oldest first.
func (t *Tx) OpenDonations(ctx context.Context) ([]*model.Donation, error) {
	return queryDonations(ctx, t.tx, "WHERE fully_invested = 0")
}

// SaveFunding persists the funding columns of f in the table for kind.
func (t *Tx) SaveFunding(ctx context.Context, kind model.Kind, f *model.Fundable) error {
	var table string
	switch kind {
	case model.KindProject:
		table = "charity_project"
	case model.KindDonation:
		table = "donation"
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}
	res, err := t.tx.ExecContext(ctx, `UPDATE `+table+` SET
		invested_amount = ?, fully_invested = ?, close_date = ?
		WHERE id = ?`,
		f.InvestedAmount, f.FullyInvested, nullableUnix(f.CloseDate), f.ID,
	)
	if err != nil {
		return fmt.Errorf("save %s %d funding: %w", kind, f.ID, err)
	}
	return expectOneRow(res, string(kind), f.ID)
}

// InsertTransfers appends allocation history rows.
func (t *Tx) InsertTransfers(ctx context.Context, transfers []model.Transfer) error {
	for i := range transfers {
		tr := &transfers[i]
		res, err := t.tx.ExecContext(ctx, `INSERT INTO transfer
			(pass_id, project_id, donation_id, amount, created_at)
			VALUES (?,?,?,?,?)`,
			tr.PassID, tr.ProjectID, tr.DonationID, tr.Amount, toUnix(tr.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert transfer: %w", err)
		}
		if tr.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("transfer id: %w", err)
		}
	}
	return nil
}

func expectOneRow(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}

func getProject(ctx context.Context, q querier, id int64) (*model.Project, error) {
	row := q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM charity_project WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project %d: %w", id, err)
	}
	return p, nil
}

func queryProjects(ctx context.Context, q querier, where string, args ...any) ([]*model.Project, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+projectColumns+` FROM charity_project `+where+
		` ORDER BY create_date, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var out []*model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func queryDonations(ctx context.Context, q querier, where string, args ...any) ([]*model.Donation, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+donationColumns+` FROM donation `+where+
		` ORDER BY create_date, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query donations: %w", err)
	}
	defer rows.Close()

	var out []*model.Donation
	for rows.Next() {
		var d model.Donation
		var created int64
		var closed sql.NullInt64
		if err := rows.Scan(&d.ID, &d.FullAmount, &d.InvestedAmount, &d.FullyInvested,
			&created, &closed, &d.Comment, &d.UserID); err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		d.CreateDate = fromUnix(created)
		d.CloseDate = fromNullable(closed)
		out = append(out, &d)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(s scanner) (*model.Project, error) {
	var p model.Project
	var created int64
	var closed sql.NullInt64
	if err := s.Scan(&p.ID, &p.Name, &p.Description, &p.FullAmount, &p.InvestedAmount,
		&p.FullyInvested, &created, &closed); err != nil {
		return nil, err
	}
	p.CreateDate = fromUnix(created)
	p.CloseDate = fromNullable(closed)
	return &p, nil
}
