package patrons

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"

	"biblios-backend/internal/platform/web"
)

var dialect = goqu.Dialect("mysql")

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

const patronColumns = `patron_id, name, email, phone, address, patron_type,
	active, loan_limit, created_at, updated_at`

func scanPatron(row interface{ Scan(...any) error }) (*Patron, error) {
	var p Patron
	err := row.Scan(
		&p.PatronID, &p.Name, &p.Email, &p.Phone, &p.Address, &p.Type,
		&p.Active, &p.LoanLimit, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) Insert(ctx context.Context, p *Patron) (int64, error) {
	const q = `
	INSERT INTO patrons
	(name, email, phone, address, patron_type, active, loan_limit)
	VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q,
		p.Name, p.Email, p.Phone, p.Address, p.Type, p.Active, p.LoanLimit,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetByID(ctx context.Context, id int64) (*Patron, error) {
	const q = `SELECT ` + patronColumns + ` FROM patrons WHERE patron_id = ?`
	return scanPatron(s.db.QueryRowContext(ctx, q, id))
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*Patron, error) {
	const q = `SELECT ` + patronColumns + ` FROM patrons WHERE email = ?`
	return scanPatron(s.db.QueryRowContext(ctx, q, email))
}

func (s *Store) Update(ctx context.Context, p *Patron) error {
	const q = `
	UPDATE patrons
	SET name = ?, email = ?, phone = ?, address = ?, patron_type = ?,
	    active = ?, loan_limit = ?
	WHERE patron_id = ?`
	_, err := s.db.ExecContext(ctx, q,
		p.Name, p.Email, p.Phone, p.Address, p.Type, p.Active, p.LoanLimit,
		p.PatronID,
	)
	return err
}

// SetActive flips the active flag only; existing loans are untouched.
func (s *Store) SetActive(ctx context.Context, id int64, active bool) error {
	const q = `UPDATE patrons SET active = ? WHERE patron_id = ?`
	_, err := s.db.ExecContext(ctx, q, active, id)
	return err
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM patrons WHERE patron_id = ?`
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// HasLoans reports whether any loan, active or historical, references the patron.
func (s *Store) HasLoans(ctx context.Context, patronID int64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM loans WHERE patron_id = ?)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, q, patronID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Store) List(ctx context.Context, f Filter, p web.Page) ([]Patron, int64, error) {
	conds := []goqu.Expression{}
	if f.Name != "" {
		conds = append(conds, goqu.C("name").Like("%"+f.Name+"%"))
	}
	if f.Type != "" {
		conds = append(conds, goqu.C("patron_type").Eq(f.Type))
	}
	if f.Active != nil {
		conds = append(conds, goqu.C("active").Eq(*f.Active))
	}

	countSQL, countArgs, err := dialect.From("patrons").
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

	listSQL, listArgs, err := dialect.From("patrons").
		Select(
			"patron_id", "name", "email", "phone", "address", "patron_type",
			"active", "loan_limit", "created_at", "updated_at",
		).
		Where(conds...).
		Order(goqu.C("name").Asc()).
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

	var out []Patron
	for rows.Next() {
		pat, err := scanPatron(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *pat)
	}
	return out, total, rows.Err()
}
