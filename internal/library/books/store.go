package books

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"

	"biblios-backend/internal/platform/apperr"
	"biblios-backend/internal/platform/db"
	"biblios-backend/internal/platform/web"
)

var dialect = goqu.Dialect("mysql")

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

const bookColumns = `book_id, title, author, isbn, category, description,
	copies_available, copies_total, created_at, updated_at`

func scanBook(row interface{ Scan(...any) error }) (*Book, error) {
	var b Book
	err := row.Scan(
		&b.BookID, &b.Title, &b.Author, &b.ISBN, &b.Category, &b.Description,
		&b.CopiesAvailable, &b.CopiesTotal, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) Insert(ctx context.Context, b *Book) (int64, error) {
	const q = `
	INSERT INTO books
	(title, author, isbn, category, description, copies_available, copies_total)
	VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q,
		b.Title, b.Author, b.ISBN, b.Category, b.Description,
		b.CopiesAvailable, b.CopiesTotal,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetByID(ctx context.Context, id int64) (*Book, error) {
	const q = `SELECT ` + bookColumns + ` FROM books WHERE book_id = ?`
	return scanBook(s.db.QueryRowContext(ctx, q, id))
}

func (s *Store) GetByISBN(ctx context.Context, isbn string) (*Book, error) {
	const q = `SELECT ` + bookColumns + ` FROM books WHERE isbn = ?`
	return scanBook(s.db.QueryRowContext(ctx, q, isbn))
}

func (s *Store) Update(ctx context.Context, b *Book) error {
	const q = `
	UPDATE books
	SET title = ?, author = ?, isbn = ?, category = ?, description = ?,
	    copies_available = ?, copies_total = ?
	WHERE book_id = ?`
	res, err := s.db.ExecContext(ctx, q,
		b.Title, b.Author, b.ISBN, b.Category, b.Description,
		b.CopiesAvailable, b.CopiesTotal, b.BookID,
	)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		// updated_at is the only thing that could make this zero when the
		// row exists with identical values; treat as success in that case.
		if _, getErr := s.GetByID(ctx, b.BookID); getErr == sql.ErrNoRows {
			return sql.ErrNoRows
		}
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM books WHERE book_id = ?`
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// HasLoans reports whether any loan, active or historical, references the book.
func (s *Store) HasLoans(ctx context.Context, bookID int64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM loans WHERE book_id = ?)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, q, bookID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// List returns a page of books matching the filter plus the total match count.
func (s *Store) List(ctx context.Context, f Filter, p web.Page) ([]Book, int64, error) {
	conds := []goqu.Expression{}
	if f.Title != "" {
		conds = append(conds, goqu.C("title").Like("%"+f.Title+"%"))
	}
	if f.Author != "" {
		conds = append(conds, goqu.C("author").Like("%"+f.Author+"%"))
	}
	if f.ISBN != "" {
		conds = append(conds, goqu.C("isbn").Like("%"+f.ISBN+"%"))
	}
	if f.Category != "" {
		conds = append(conds, goqu.C("category").Eq(f.Category))
	}
	return s.listWhere(ctx, conds, p)
}

// ListAvailable returns books with at least one copy on the shelf.
func (s *Store) ListAvailable(ctx context.Context, p web.Page) ([]Book, int64, error) {
	return s.listWhere(ctx, []goqu.Expression{goqu.C("copies_available").Gt(0)}, p)
}

func (s *Store) listWhere(ctx context.Context, conds []goqu.Expression, p web.Page) ([]Book, int64, error) {
	countSQL, countArgs, err := dialect.From("books").
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

	listSQL, listArgs, err := dialect.From("books").
		Select(
			"book_id", "title", "author", "isbn", "category", "description",
			"copies_available", "copies_total", "created_at", "updated_at",
		).
		Where(conds...).
		Order(goqu.C("title").Asc()).
		Limit(uint(p.Limit)).
		Offset(uint(p.Offset)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *b)
	}
	return out, total, rows.Err()
}

// MostBorrowed returns up to n books ordered by how many times they were
// lent out (ACTIVE or RETURNED loans).
func (s *Store) MostBorrowed(ctx context.Context, n int) ([]Book, error) {
	const q = `
	SELECT b.book_id, b.title, b.author, b.isbn, b.category, b.description,
	       b.copies_available, b.copies_total, b.created_at, b.updated_at
	FROM books b
	JOIN loans l ON l.book_id = b.book_id AND l.status IN ('ACTIVE', 'RETURNED')
	GROUP BY b.book_id
	ORDER BY COUNT(*) DESC, b.book_id ASC
	LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// ReserveCopyTx atomically takes one available copy of the book. The guarded
// UPDATE is the only thing standing between two concurrent checkouts of the
// last copy, so callers must run it inside the same transaction as the loan
// insert.
func ReserveCopyTx(ctx context.Context, tx db.DBTX, bookID int64) error {
	const q = `
	UPDATE books
	SET copies_available = copies_available - 1
	WHERE book_id = ? AND copies_available > 0`
	res, err := tx.ExecContext(ctx, q, bookID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff != 1 {
		return apperr.BusinessRule("no copies available")
	}
	return nil
}

// ReleaseCopyTx returns one copy to the shelf. A zero row count means the
// counter was already at copies_total, which indicates inconsistent data.
func ReleaseCopyTx(ctx context.Context, tx db.DBTX, bookID int64) error {
	const q = `
	UPDATE books
	SET copies_available = copies_available + 1
	WHERE book_id = ? AND copies_available < copies_total`
	res, err := tx.ExecContext(ctx, q, bookID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff != 1 {
		return apperr.Internal("all copies already available")
	}
	return nil
}
