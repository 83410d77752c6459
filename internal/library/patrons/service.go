package patrons

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	mysql "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"biblios-backend/internal/platform/apperr"
	"biblios-backend/internal/platform/web"
)

type patronStore interface {
	Insert(ctx context.Context, p *Patron) (int64, error)
	GetByID(ctx context.Context, id int64) (*Patron, error)
	GetByEmail(ctx context.Context, email string) (*Patron, error)
	Update(ctx context.Context, p *Patron) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	HasLoans(ctx context.Context, patronID int64) (bool, error)
	List(ctx context.Context, f Filter, p web.Page) ([]Patron, int64, error)
}

type Service struct {
	store patronStore
	log   *zap.SugaredLogger
}

func NewService(conn *sql.DB, log *zap.SugaredLogger) *Service {
	return &Service{store: NewStore(conn), log: log}
}

func (s *Service) Create(ctx context.Context, req CreatePatronRequest) (PatronResponse, error) {
	typ := PatronType(strings.ToUpper(strings.TrimSpace(req.Type)))
	if !typ.Valid() {
		return PatronResponse{}, apperr.Invalid("patron_type must be one of STUDENT, TEACHER, VISITOR, STAFF")
	}

	email := strings.TrimSpace(req.Email)
	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return PatronResponse{}, apperr.BusinessRule("patron with email " + email + " already exists")
	} else if err != sql.ErrNoRows {
		return PatronResponse{}, err
	}

	p := &Patron{
		Name:      strings.TrimSpace(req.Name),
		Email:     email,
		Phone:     nullStr(req.Phone),
		Address:   nullStr(req.Address),
		Type:      typ,
		Active:    true,
		LoanLimit: DefaultLoanLimit,
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
	if req.LoanLimit != nil {
		if *req.LoanLimit < 0 {
			return PatronResponse{}, apperr.Invalid("loan_limit must be >= 0")
		}
		p.LoanLimit = *req.LoanLimit
	}

	id, err := s.store.Insert(ctx, p)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return PatronResponse{}, apperr.BusinessRule("patron with email " + email + " already exists")
		}
		return PatronResponse{}, err
	}

	s.log.Infow("patron created", "patron_id", id, "email", email)
	return s.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdatePatronRequest) (PatronResponse, error) {
	typ := PatronType(strings.ToUpper(strings.TrimSpace(req.Type)))
	if !typ.Valid() {
		return PatronResponse{}, apperr.Invalid("patron_type must be one of STUDENT, TEACHER, VISITOR, STAFF")
	}

	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return PatronResponse{}, apperr.NotFound("patron not found")
		}
		return PatronResponse{}, err
	}

	email := strings.TrimSpace(req.Email)
	if p.Email != email {
		if _, err := s.store.GetByEmail(ctx, email); err == nil {
			return PatronResponse{}, apperr.BusinessRule("patron with email " + email + " already exists")
		} else if err != sql.ErrNoRows {
			return PatronResponse{}, err
		}
	}

	p.Name = strings.TrimSpace(req.Name)
	p.Email = email
	p.Phone = nullStr(req.Phone)
	p.Address = nullStr(req.Address)
	p.Type = typ
	if req.Active != nil {
		p.Active = *req.Active
	}
	if req.LoanLimit != nil {
		if *req.LoanLimit < 0 {
			return PatronResponse{}, apperr.Invalid("loan_limit must be >= 0")
		}
		p.LoanLimit = *req.LoanLimit
	}

	if err := s.store.Update(ctx, p); err != nil {
		return PatronResponse{}, err
	}

	s.log.Infow("patron updated", "patron_id", id)
	return s.GetByID(ctx, id)
}

func (s *Service) GetByID(ctx context.Context, id int64) (PatronResponse, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return PatronResponse{}, apperr.NotFound("patron not found")
		}
		return PatronResponse{}, err
	}
	return buildPatronResponse(p), nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (PatronResponse, error) {
	p, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return PatronResponse{}, apperr.NotFound("patron not found")
		}
		return PatronResponse{}, err
	}
	return buildPatronResponse(p), nil
}

func (s *Service) List(ctx context.Context, f Filter, p web.Page) ([]PatronResponse, int64, error) {
	if f.Type != "" && !PatronType(f.Type).Valid() {
		return nil, 0, apperr.Invalid("unknown patron_type filter: " + f.Type)
	}
	items, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]PatronResponse, 0, len(items))
	for i := range items {
		out = append(out, buildPatronResponse(&items[i]))
	}
	return out, total, nil
}

// SetActive flips the active flag. Deactivation has no effect on loans the
// patron already holds; it only blocks new checkouts.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) (PatronResponse, error) {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return PatronResponse{}, apperr.NotFound("patron not found")
		}
		return PatronResponse{}, err
	}
	if err := s.store.SetActive(ctx, id, active); err != nil {
		return PatronResponse{}, err
	}
	s.log.Infow("patron active flag changed", "patron_id", id, "active", active)
	return s.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return apperr.NotFound("patron not found")
		}
		return err
	}

	hasLoans, err := s.store.HasLoans(ctx, id)
	if err != nil {
		return err
	}
	if hasLoans {
		return apperr.BusinessRule("patron has associated loans and cannot be deleted")
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return apperr.NotFound("patron not found")
		}
		return err
	}

	s.log.Infow("patron deleted", "patron_id", id)
	return nil
}

func nullStr(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
