package loans

import (
	"context"
	"crypto/rand"
	"database/sql"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"biblios-backend/internal/platform/apperr"
	"biblios-backend/internal/platform/web"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	id, err := ulid.New(ulid.Timestamp(t), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

type loanStore interface {
	GetBookRef(ctx context.Context, bookID int64) (*bookRef, error)
	GetPatronRef(ctx context.Context, patronID int64) (*patronRef, error)
	CountActiveByPatron(ctx context.Context, patronID int64) (int64, error)
	PatronHasOverdue(ctx context.Context, patronID int64, today time.Time) (bool, error)
	CreateLoan(ctx context.Context, l *Loan) error
	MarkReturned(ctx context.Context, loanID, bookID int64, returnDate time.Time) error
	Renew(ctx context.Context, loanID int64, newDue time.Time) error
	Delete(ctx context.Context, loanID int64) error
	GetByID(ctx context.Context, id int64) (*Loan, error)
	GetByULID(ctx context.Context, ulid string) (*Loan, error)
	ListActive(ctx context.Context, p web.Page) ([]Loan, int64, error)
	ListOverdue(ctx context.Context, today time.Time, p web.Page) ([]Loan, int64, error)
	ListByPatron(ctx context.Context, patronID int64, status *Status, p web.Page) ([]Loan, int64, error)
	ListByBook(ctx context.Context, bookID int64, p web.Page) ([]Loan, int64, error)
	ListByPeriod(ctx context.Context, from, to time.Time, p web.Page) ([]Loan, int64, error)
	HistoryByPatron(ctx context.Context, patronID int64, from, to time.Time) ([]Loan, error)
	ActiveByPatron(ctx context.Context, patronID int64) ([]Loan, error)
}

type Service struct {
	store loanStore
	clock Clock
	id    IDGen
	log   *zap.SugaredLogger
}

func NewService(conn *sql.DB, log *zap.SugaredLogger) *Service {
	return &Service{
		store: NewStore(conn),
		clock: realClock{},
		id:    ulidGen{},
		log:   log,
	}
}

func (s *Service) today() time.Time { return DateOnly(s.clock.Now()) }

// Create checks out a book. The preconditions run in a fixed order and the
// first failure wins; the copy decrement is re-checked atomically inside the
// store transaction.
func (s *Service) Create(ctx context.Context, req CreateLoanRequest) (LoanResponse, error) {
	book, err := s.store.GetBookRef(ctx, req.BookID)
	if err != nil {
		if err == sql.ErrNoRows {
			return LoanResponse{}, apperr.NotFound("book not found")
		}
		return LoanResponse{}, err
	}

	patron, err := s.store.GetPatronRef(ctx, req.PatronID)
	if err != nil {
		if err == sql.ErrNoRows {
			return LoanResponse{}, apperr.NotFound("patron not found")
		}
		return LoanResponse{}, err
	}

	if !patron.Active {
		return LoanResponse{}, apperr.BusinessRule("patron is not active")
	}
	if book.CopiesAvailable <= 0 {
		return LoanResponse{}, apperr.BusinessRule("no copies available")
	}

	activeCount, err := s.store.CountActiveByPatron(ctx, patron.ID)
	if err != nil {
		return LoanResponse{}, err
	}
	if activeCount >= int64(patron.LoanLimit) {
		return LoanResponse{}, apperr.BusinessRule("patron reached the loan limit")
	}

	overdue, err := s.store.PatronHasOverdue(ctx, patron.ID, s.today())
	if err != nil {
		return LoanResponse{}, err
	}
	if overdue {
		return LoanResponse{}, apperr.BusinessRule("patron has an overdue loan")
	}

	loanDate := s.today()
	if req.LoanDate != nil && *req.LoanDate != "" {
		parsed, err := time.Parse(dateLayout, *req.LoanDate)
		if err != nil {
			return LoanResponse{}, apperr.Invalid("invalid loan_date, expected YYYY-MM-DD")
		}
		loanDate = DateOnly(parsed)
	}

	idStr, err := s.id.New()
	if err != nil {
		return LoanResponse{}, err
	}

	l := &Loan{
		LoanULID: idStr,
		BookID:   book.ID,
		PatronID: patron.ID,
		LoanDate: loanDate,
		DueDate:  loanDate.AddDate(0, 0, LoanDays),
		Status:   StatusActive,
	}
	if req.Notes != nil && *req.Notes != "" {
		l.Notes = sql.NullString{String: *req.Notes, Valid: true}
	}

	if err := s.store.CreateLoan(ctx, l); err != nil {
		return LoanResponse{}, err
	}

	s.log.Infow("loan created",
		"loan_id", l.LoanID, "book_id", l.BookID, "patron_id", l.PatronID,
		"due_date", l.DueDate.Format(dateLayout))
	return s.GetByID(ctx, l.LoanID)
}

// Return closes an active loan and releases the book copy.
func (s *Service) Return(ctx context.Context, loanID int64) (LoanResponse, error) {
	l, err := s.getLoan(ctx, loanID)
	if err != nil {
		return LoanResponse{}, err
	}
	if l.Status != StatusActive {
		return LoanResponse{}, apperr.BusinessRule("loan is not active")
	}

	if err := s.store.MarkReturned(ctx, l.LoanID, l.BookID, s.today()); err != nil {
		return LoanResponse{}, err
	}

	s.log.Infow("loan returned", "loan_id", l.LoanID, "book_id", l.BookID)
	return s.GetByID(ctx, l.LoanID)
}

// Renew extends an active, non-overdue loan by another loan period.
// There is no cap on the number of renewals.
func (s *Service) Renew(ctx context.Context, loanID int64) (LoanResponse, error) {
	l, err := s.getLoan(ctx, loanID)
	if err != nil {
		return LoanResponse{}, err
	}
	if l.Status != StatusActive {
		return LoanResponse{}, apperr.BusinessRule("loan is not active and cannot be renewed")
	}
	if l.IsOverdue(s.today()) {
		return LoanResponse{}, apperr.BusinessRule("loan is overdue and cannot be renewed")
	}

	newDue := l.DueDate.AddDate(0, 0, LoanDays)
	if err := s.store.Renew(ctx, l.LoanID, newDue); err != nil {
		return LoanResponse{}, err
	}

	s.log.Infow("loan renewed", "loan_id", l.LoanID, "due_date", newDue.Format(dateLayout))
	return s.GetByID(ctx, l.LoanID)
}

// Delete is an administrative hard delete. The store releases the reserved
// copy when the loan is still active.
func (s *Service) Delete(ctx context.Context, loanID int64) error {
	if err := s.store.Delete(ctx, loanID); err != nil {
		return err
	}
	s.log.Infow("loan deleted", "loan_id", loanID)
	return nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (LoanResponse, error) {
	l, err := s.getLoan(ctx, id)
	if err != nil {
		return LoanResponse{}, err
	}
	return s.buildLoanResponse(l), nil
}

// GetByKey fetches by numeric id when the key parses as one, by ULID otherwise.
func (s *Service) GetByKey(ctx context.Context, key string) (LoanResponse, error) {
	if key == "" {
		return LoanResponse{}, apperr.Invalid("id or ulid is required")
	}
	if id, err := strconv.ParseInt(key, 10, 64); err == nil && id > 0 {
		return s.GetByID(ctx, id)
	}
	l, err := s.store.GetByULID(ctx, key)
	if err != nil {
		if err == sql.ErrNoRows {
			return LoanResponse{}, apperr.NotFound("loan not found")
		}
		return LoanResponse{}, err
	}
	return s.buildLoanResponse(l), nil
}

func (s *Service) ListActive(ctx context.Context, p web.Page) ([]LoanResponse, int64, error) {
	items, total, err := s.store.ListActive(ctx, p)
	if err != nil {
		return nil, 0, err
	}
	return s.buildLoanResponses(items), total, nil
}

func (s *Service) ListOverdue(ctx context.Context, p web.Page) ([]LoanResponse, int64, error) {
	items, total, err := s.store.ListOverdue(ctx, s.today(), p)
	if err != nil {
		return nil, 0, err
	}
	return s.buildLoanResponses(items), total, nil
}

func (s *Service) ListByPatron(ctx context.Context, patronID int64, status string, p web.Page) ([]LoanResponse, int64, error) {
	var st *Status
	if status != "" {
		v := Status(status)
		if !v.Valid() {
			return nil, 0, apperr.Invalid("unknown status filter: " + status)
		}
		st = &v
	}
	items, total, err := s.store.ListByPatron(ctx, patronID, st, p)
	if err != nil {
		return nil, 0, err
	}
	return s.buildLoanResponses(items), total, nil
}

func (s *Service) ListByBook(ctx context.Context, bookID int64, p web.Page) ([]LoanResponse, int64, error) {
	items, total, err := s.store.ListByBook(ctx, bookID, p)
	if err != nil {
		return nil, 0, err
	}
	return s.buildLoanResponses(items), total, nil
}

func (s *Service) ListByPeriod(ctx context.Context, from, to time.Time, p web.Page) ([]LoanResponse, int64, error) {
	if from.IsZero() || to.IsZero() {
		return nil, 0, apperr.Invalid("from and to dates are required")
	}
	if to.Before(from) {
		return nil, 0, apperr.Invalid("to must not be before from")
	}
	items, total, err := s.store.ListByPeriod(ctx, DateOnly(from), DateOnly(to), p)
	if err != nil {
		return nil, 0, err
	}
	return s.buildLoanResponses(items), total, nil
}

func (s *Service) HistoryByPatron(ctx context.Context, patronID int64, from, to time.Time) ([]LoanResponse, error) {
	if from.IsZero() || to.IsZero() {
		return nil, apperr.Invalid("from and to dates are required")
	}
	items, err := s.store.HistoryByPatron(ctx, patronID, DateOnly(from), DateOnly(to))
	if err != nil {
		return nil, err
	}
	return s.buildLoanResponses(items), nil
}

func (s *Service) ActiveByPatron(ctx context.Context, patronID int64) ([]LoanResponse, error) {
	items, err := s.store.ActiveByPatron(ctx, patronID)
	if err != nil {
		return nil, err
	}
	return s.buildLoanResponses(items), nil
}

func (s *Service) getLoan(ctx context.Context, id int64) (*Loan, error) {
	l, err := s.store.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("loan not found")
		}
		return nil, err
	}
	return l, nil
}
