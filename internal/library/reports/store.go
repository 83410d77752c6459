package reports

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"biblios-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

// selectRows loads query results into dest inside a read-only transaction,
// with sqlx handling the struct scanning.
func (s *Store) selectRows(ctx context.Context, dest any, query string, args ...any) error {
	return db.ReadOnly(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		return sqlx.StructScan(rows, dest)
	})
}

// BookLoanRows returns one row per loan that counts as a borrow, with its
// book's details. Books with no qualifying loans never show up, which
// pre-filters the top-borrowed candidates at the query boundary.
func (s *Store) BookLoanRows(ctx context.Context) ([]BookLoanRow, error) {
	const q = `
	SELECT b.book_id, b.title, b.author, b.isbn, b.category,
	       b.copies_available, b.copies_total, l.status AS loan_status
	FROM books b
	JOIN loans l ON l.book_id = b.book_id
	WHERE l.status IN ('ACTIVE', 'RETURNED')`
	var rows []BookLoanRow
	if err := s.selectRows(ctx, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) ActiveLoanRows(ctx context.Context) ([]ActiveLoanRow, error) {
	const q = `
	SELECT l.loan_id, b.book_id, b.title AS book_title, b.author AS book_author,
	       b.isbn AS book_isbn, p.patron_id, p.name AS patron_name,
	       p.email AS patron_email, l.loan_date, l.due_date
	FROM loans l
	JOIN books b ON b.book_id = l.book_id
	JOIN patrons p ON p.patron_id = l.patron_id
	WHERE l.status = 'ACTIVE'`
	var rows []ActiveLoanRow
	if err := s.selectRows(ctx, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) PatronLoanRows(ctx context.Context) ([]PatronLoanRow, error) {
	const q = `
	SELECT p.patron_id, p.name AS patron_name, p.email AS patron_email,
	       p.patron_type, l.status AS loan_status, l.due_date
	FROM loans l
	JOIN patrons p ON p.patron_id = l.patron_id`
	var rows []PatronLoanRow
	if err := s.selectRows(ctx, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) BookRows(ctx context.Context) ([]BookRow, error) {
	const q = `
	SELECT book_id, title, author, isbn, category, copies_available, copies_total
	FROM books`
	var rows []BookRow
	if err := s.selectRows(ctx, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// PeriodLoanRows returns loans whose loan_date falls in [from, to].
func (s *Store) PeriodLoanRows(ctx context.Context, from, to time.Time) ([]PeriodLoanRow, error) {
	const q = `
	SELECT status AS loan_status, due_date, renewals
	FROM loans
	WHERE loan_date >= ? AND loan_date <= ?`
	var rows []PeriodLoanRow
	if err := s.selectRows(ctx, &rows, q, from, to); err != nil {
		return nil, err
	}
	return rows, nil
}
