package loans

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	"github.com/doug-martin/goqu/v9/exp"

	"biblios-backend/internal/library/books"
	"biblios-backend/internal/platform/apperr"
	"biblios-backend/internal/platform/db"
	"biblios-backend/internal/platform/web"
)

var dialect = goqu.Dialect("mysql")

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

const loanColumns = `loan_id, loan_ulid, book_id, patron_id, loan_date, due_date,
	return_date, status, notes, renewals, created_at, updated_at`

func scanLoan(row interface{ Scan(...any) error }) (*Loan, error) {
	var l Loan
	err := row.Scan(
		&l.LoanID, &l.LoanULID, &l.BookID, &l.PatronID, &l.LoanDate, &l.DueDate,
		&l.ReturnDate, &l.Status, &l.Notes, &l.Renewals, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// bookRef carries the fields of a book the loan rules inspect.
type bookRef struct {
	ID              int64
	CopiesAvailable int
}

// patronRef carries the fields of a patron the loan rules inspect.
type patronRef struct {
	ID        int64
	Active    bool
	LoanLimit int
}

func (s *Store) GetBookRef(ctx context.Context, bookID int64) (*bookRef, error) {
	const q = `SELECT book_id, copies_available FROM books WHERE book_id = ?`
	var b bookRef
	if err := s.db.QueryRowContext(ctx, q, bookID).Scan(&b.ID, &b.CopiesAvailable); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) GetPatronRef(ctx context.Context, patronID int64) (*patronRef, error) {
	const q = `SELECT patron_id, active, loan_limit FROM patrons WHERE patron_id = ?`
	var p patronRef
	if err := s.db.QueryRowContext(ctx, q, patronID).Scan(&p.ID, &p.Active, &p.LoanLimit); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CountActiveByPatron(ctx context.Context, patronID int64) (int64, error) {
	const q = `SELECT COUNT(*) FROM loans WHERE patron_id = ? AND status = 'ACTIVE'`
	var n int64
	if err := s.db.QueryRowContext(ctx, q, patronID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// PatronHasOverdue checks this patron's own loans, not an arbitrary
// system-wide row.
func (s *Store) PatronHasOverdue(ctx context.Context, patronID int64, today time.Time) (bool, error) {
	const q = `
	SELECT EXISTS(
		SELECT 1 FROM loans
		WHERE patron_id = ? AND status = 'ACTIVE' AND due_date < ?
	)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, q, patronID, today).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// CreateLoan persists the loan and takes the book copy in one transaction.
// The guarded decrement re-checks availability, so a concurrent checkout of
// the last copy makes exactly one of the two transactions fail.
func (s *Store) CreateLoan(ctx context.Context, l *Loan) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		if err := books.ReserveCopyTx(ctx, tx, l.BookID); err != nil {
			return err
		}

		const q = `
		INSERT INTO loans
		(loan_ulid, book_id, patron_id, loan_date, due_date, status, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
		res, err := tx.ExecContext(ctx, q,
			l.LoanULID, l.BookID, l.PatronID, l.LoanDate, l.DueDate, l.Status, l.Notes,
		)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		l.LoanID = id
		return nil
	})
}

// MarkReturned closes the loan and puts the copy back, atomically.
func (s *Store) MarkReturned(ctx context.Context, loanID, bookID int64, returnDate time.Time) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		const q = `
		UPDATE loans
		SET status = 'RETURNED', return_date = ?
		WHERE loan_id = ? AND status = 'ACTIVE'`
		res, err := tx.ExecContext(ctx, q, returnDate, loanID)
		if err != nil {
			return err
		}
		if aff, _ := res.RowsAffected(); aff != 1 {
			return apperr.BusinessRule("loan is not active")
		}
		return books.ReleaseCopyTx(ctx, tx, bookID)
	})
}

// Renew pushes the due date out and bumps the renewal counter.
func (s *Store) Renew(ctx context.Context, loanID int64, newDue time.Time) error {
	const q = `
	UPDATE loans
	SET due_date = ?, renewals = renewals + 1
	WHERE loan_id = ? AND status = 'ACTIVE'`
	res, err := s.db.ExecContext(ctx, q, newDue, loanID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff != 1 {
		return apperr.BusinessRule("loan is not active")
	}
	return nil
}

// Delete hard-deletes the loan. Deleting an ACTIVE loan releases the
// reserved copy in the same transaction so the book's counter keeps
// reflecting outstanding active loans.
func (s *Store) Delete(ctx context.Context, loanID int64) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		const sel = `SELECT book_id, status FROM loans WHERE loan_id = ? FOR UPDATE`
		var bookID int64
		var status Status
		if err := tx.QueryRowContext(ctx, sel, loanID).Scan(&bookID, &status); err != nil {
			if err == sql.ErrNoRows {
				return apperr.NotFound("loan not found")
			}
			return err
		}

		if status == StatusActive {
			if err := books.ReleaseCopyTx(ctx, tx, bookID); err != nil {
				return err
			}
		}

		const del = `DELETE FROM loans WHERE loan_id = ?`
		_, err := tx.ExecContext(ctx, del, loanID)
		return err
	})
}

func (s *Store) GetByID(ctx context.Context, id int64) (*Loan, error) {
	const q = `SELECT ` + loanColumns + ` FROM loans WHERE loan_id = ?`
	return scanLoan(s.db.QueryRowContext(ctx, q, id))
}

func (s *Store) GetByULID(ctx context.Context, ulid string) (*Loan, error) {
	const q = `SELECT ` + loanColumns + ` FROM loans WHERE loan_ulid = ?`
	return scanLoan(s.db.QueryRowContext(ctx, q, ulid))
}

func (s *Store) ListActive(ctx context.Context, p web.Page) ([]Loan, int64, error) {
	conds := []goqu.Expression{goqu.C("status").Eq(string(StatusActive))}
	return s.listWhere(ctx, conds, goqu.C("loan_date").Desc(), p)
}

// ListOverdue returns active loans past due, soonest-lapsed first.
func (s *Store) ListOverdue(ctx context.Context, today time.Time, p web.Page) ([]Loan, int64, error) {
	conds := []goqu.Expression{
		goqu.C("status").Eq(string(StatusActive)),
		goqu.C("due_date").Lt(today),
	}
	return s.listWhere(ctx, conds, goqu.C("due_date").Asc(), p)
}

func (s *Store) ListByPatron(ctx context.Context, patronID int64, status *Status, p web.Page) ([]Loan, int64, error) {
	conds := []goqu.Expression{goqu.C("patron_id").Eq(patronID)}
	if status != nil {
		conds = append(conds, goqu.C("status").Eq(string(*status)))
	}
	return s.listWhere(ctx, conds, goqu.C("loan_date").Desc(), p)
}

func (s *Store) ListByBook(ctx context.Context, bookID int64, p web.Page) ([]Loan, int64, error) {
	conds := []goqu.Expression{goqu.C("book_id").Eq(bookID)}
	return s.listWhere(ctx, conds, goqu.C("loan_date").Desc(), p)
}

// ListByPeriod filters on loan_date, both bounds inclusive.
func (s *Store) ListByPeriod(ctx context.Context, from, to time.Time, p web.Page) ([]Loan, int64, error) {
	conds := []goqu.Expression{
		goqu.C("loan_date").Gte(from),
		goqu.C("loan_date").Lte(to),
	}
	return s.listWhere(ctx, conds, goqu.C("loan_date").Desc(), p)
}

func (s *Store) listWhere(ctx context.Context, conds []goqu.Expression, order exp.OrderedExpression, p web.Page) ([]Loan, int64, error) {
	countSQL, countArgs, err := dialect.From("loans").
		Select(goqu.COUNT("*")).
		Where(conds...).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listSQL, listArgs, err := dialect.From("loans").
		Select(
			"loan_id", "loan_ulid", "book_id", "patron_id", "loan_date", "due_date",
			"return_date", "status", "notes", "renewals", "created_at", "updated_at",
		).
		Where(conds...).
		Order(order).
		Limit(uint(p.Limit)).
		Offset(uint(p.Offset)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, err
	}

	items, err := s.queryLoans(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// HistoryByPatron is the patron's full record within the date range,
// unpaginated, newest first.
func (s *Store) HistoryByPatron(ctx context.Context, patronID int64, from, to time.Time) ([]Loan, error) {
	const q = `
	SELECT ` + loanColumns + `
	FROM loans
	WHERE patron_id = ? AND loan_date >= ? AND loan_date <= ?
	ORDER BY loan_date DESC`
	return s.queryLoans(ctx, q, patronID, from, to)
}

// ActiveByPatron lists the patron's outstanding loans, unpaginated.
func (s *Store) ActiveByPatron(ctx context.Context, patronID int64) ([]Loan, error) {
	const q = `
	SELECT ` + loanColumns + `
	FROM loans
	WHERE patron_id = ? AND status = 'ACTIVE'
	ORDER BY loan_date DESC`
	return s.queryLoans(ctx, q, patronID)
}

func (s *Store) queryLoans(ctx context.Context, q string, args ...any) ([]Loan, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}
