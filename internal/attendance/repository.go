package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akademi-app/akademi/internal/platform/db"
	"github.com/akademi-app/akademi/internal/shared"
)

// Repository provides PostgreSQL backed persistence for attendance sheets.
// A sheet and its entries are written in one transaction.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListByClass returns the sheets of a class, most recent date first.
// Entries are not loaded; Get returns the full sheet.
func (r *Repository) ListByClass(ctx context.Context, companyID, classID int64) ([]Sheet, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, company_id, class_id, date, created_at, updated_at
		 FROM attendance_sheets WHERE company_id = $1 AND class_id = $2 ORDER BY date DESC`,
		companyID, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sheets []Sheet
	for rows.Next() {
		var s Sheet
		if err := rows.Scan(&s.ID, &s.CompanyID, &s.ClassID, &s.Date, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		sheets = append(sheets, s)
	}
	return sheets, rows.Err()
}

// Get fetches a sheet with its entries.
func (r *Repository) Get(ctx context.Context, companyID, id int64) (Sheet, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, company_id, class_id, date, created_at, updated_at
		 FROM attendance_sheets WHERE id = $1 AND company_id = $2`,
		id, companyID)
	var s Sheet
	if err := row.Scan(&s.ID, &s.CompanyID, &s.ClassID, &s.Date, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sheet{}, shared.ErrNotFound
		}
		return Sheet{}, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT student_id, status, COALESCE(note, '') FROM attendance_entries WHERE sheet_id = $1 ORDER BY student_id`,
		id)
	if err != nil {
		return Sheet{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.StudentID, &e.Status, &e.Note); err != nil {
			return Sheet{}, err
		}
		s.Entries = append(s.Entries, e)
	}
	return s, rows.Err()
}

// Create inserts a sheet and its entries atomically.
func (r *Repository) Create(ctx context.Context, sheet Sheet) (Sheet, error) {
	now := time.Now().UTC()
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`INSERT INTO attendance_sheets (company_id, class_id, date, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $4) RETURNING id`,
			sheet.CompanyID, sheet.ClassID, sheet.Date, now)
		if err := row.Scan(&sheet.ID); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrDuplicateSheet
			}
			return err
		}
		return insertEntries(ctx, tx, sheet.ID, sheet.Entries)
	})
	if err != nil {
		return Sheet{}, err
	}
	sheet.CreatedAt = now
	sheet.UpdatedAt = now
	return sheet, nil
}

// ReplaceEntries rewrites a sheet's entries atomically.
func (r *Repository) ReplaceEntries(ctx context.Context, companyID, sheetID int64, entries []Entry) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE attendance_sheets SET updated_at = $1 WHERE id = $2 AND company_id = $3`,
			time.Now().UTC(), sheetID, companyID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM attendance_entries WHERE sheet_id = $1`, sheetID); err != nil {
			return err
		}
		return insertEntries(ctx, tx, sheetID, entries)
	})
}

// Delete removes a sheet and its entries.
func (r *Repository) Delete(ctx context.Context, companyID, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM attendance_sheets WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ClassTeacher returns the teacher responsible for a class, for the
// owns-class refinement.
func (r *Repository) ClassTeacher(ctx context.Context, companyID, classID int64) (int64, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT teacher_id FROM classes WHERE id = $1 AND company_id = $2`, classID, companyID)
	var teacherID int64
	if err := row.Scan(&teacherID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return teacherID, nil
}

func insertEntries(ctx context.Context, tx pgx.Tx, sheetID int64, entries []Entry) error {
	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO attendance_entries (sheet_id, student_id, status, note) VALUES ($1, $2, $3, NULLIF($4, ''))`,
			sheetID, e.StudentID, e.Status, e.Note); err != nil {
			return err
		}
	}
	return nil
}
