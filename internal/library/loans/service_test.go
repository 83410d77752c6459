package loans

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"biblios-backend/internal/platform/apperr"
	"biblios-backend/internal/platform/web"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fixedIDGen struct{ v string }

func (g fixedIDGen) New() (string, error) { return g.v, nil }

// fakeLoanStore keeps everything in maps and mirrors the transactional
// store's copy bookkeeping so the service rules can be tested without MySQL.
type fakeLoanStore struct {
	books   map[int64]bookRef
	patrons map[int64]patronRef
	loans   map[int64]*Loan
	overdue map[int64]bool
	nextID  int64
}

func newFakeLoanStore() *fakeLoanStore {
	return &fakeLoanStore{
		books:   map[int64]bookRef{},
		patrons: map[int64]patronRef{},
		loans:   map[int64]*Loan{},
		overdue: map[int64]bool{},
	}
}

func (f *fakeLoanStore) GetBookRef(_ context.Context, bookID int64) (*bookRef, error) {
	b, ok := f.books[bookID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &b, nil
}

func (f *fakeLoanStore) GetPatronRef(_ context.Context, patronID int64) (*patronRef, error) {
	p, ok := f.patrons[patronID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (f *fakeLoanStore) CountActiveByPatron(_ context.Context, patronID int64) (int64, error) {
	var n int64
	for _, l := range f.loans {
		if l.PatronID == patronID && l.Status == StatusActive {
			n++
		}
	}
	return n, nil
}

func (f *fakeLoanStore) PatronHasOverdue(_ context.Context, patronID int64, _ time.Time) (bool, error) {
	return f.overdue[patronID], nil
}

func (f *fakeLoanStore) CreateLoan(_ context.Context, l *Loan) error {
	b := f.books[l.BookID]
	if b.CopiesAvailable <= 0 {
		return apperr.BusinessRule("no copies available")
	}
	b.CopiesAvailable--
	f.books[l.BookID] = b

	f.nextID++
	l.LoanID = f.nextID
	cp := *l
	f.loans[l.LoanID] = &cp
	return nil
}

func (f *fakeLoanStore) MarkReturned(_ context.Context, loanID, bookID int64, returnDate time.Time) error {
	l, ok := f.loans[loanID]
	if !ok || l.Status != StatusActive {
		return apperr.BusinessRule("loan is not active")
	}
	l.Status = StatusReturned
	l.ReturnDate = sql.NullTime{Time: returnDate, Valid: true}

	b := f.books[bookID]
	b.CopiesAvailable++
	f.books[bookID] = b
	return nil
}

func (f *fakeLoanStore) Renew(_ context.Context, loanID int64, newDue time.Time) error {
	l, ok := f.loans[loanID]
	if !ok || l.Status != StatusActive {
		return apperr.BusinessRule("loan is not active and cannot be renewed")
	}
	l.DueDate = newDue
	l.Renewals++
	return nil
}

func (f *fakeLoanStore) Delete(_ context.Context, loanID int64) error {
	l, ok := f.loans[loanID]
	if !ok {
		return sql.ErrNoRows
	}
	if l.Status == StatusActive {
		b := f.books[l.BookID]
		b.CopiesAvailable++
		f.books[l.BookID] = b
	}
	delete(f.loans, loanID)
	return nil
}

func (f *fakeLoanStore) GetByID(_ context.Context, id int64) (*Loan, error) {
	l, ok := f.loans[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLoanStore) GetByULID(_ context.Context, ulid string) (*Loan, error) {
	for _, l := range f.loans {
		if l.LoanULID == ulid {
			cp := *l
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeLoanStore) ListActive(_ context.Context, _ web.Page) ([]Loan, int64, error) {
	var out []Loan
	for _, l := range f.loans {
		if l.Status == StatusActive {
			out = append(out, *l)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeLoanStore) ListOverdue(_ context.Context, today time.Time, _ web.Page) ([]Loan, int64, error) {
	var out []Loan
	for _, l := range f.loans {
		if l.IsOverdue(today) {
			out = append(out, *l)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeLoanStore) ListByPatron(_ context.Context, patronID int64, status *Status, _ web.Page) ([]Loan, int64, error) {
	var out []Loan
	for _, l := range f.loans {
		if l.PatronID != patronID {
			continue
		}
		if status != nil && l.Status != *status {
			continue
		}
		out = append(out, *l)
	}
	return out, int64(len(out)), nil
}

func (f *fakeLoanStore) ListByBook(_ context.Context, bookID int64, _ web.Page) ([]Loan, int64, error) {
	var out []Loan
	for _, l := range f.loans {
		if l.BookID == bookID {
			out = append(out, *l)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeLoanStore) ListByPeriod(_ context.Context, from, to time.Time, _ web.Page) ([]Loan, int64, error) {
	var out []Loan
	for _, l := range f.loans {
		if !l.LoanDate.Before(from) && !l.LoanDate.After(to) {
			out = append(out, *l)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeLoanStore) HistoryByPatron(_ context.Context, patronID int64, from, to time.Time) ([]Loan, error) {
	items, _, err := f.ListByPeriod(context.Background(), from, to, web.Page{})
	if err != nil {
		return nil, err
	}
	var out []Loan
	for _, l := range items {
		if l.PatronID == patronID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLoanStore) ActiveByPatron(_ context.Context, patronID int64) ([]Loan, error) {
	st := StatusActive
	items, _, err := f.ListByPatron(context.Background(), patronID, &st, web.Page{})
	return items, err
}

func newTestService(store *fakeLoanStore, today string) *Service {
	return &Service{
		store: store,
		clock: fixedClock{t: date(today)},
		id:    fixedIDGen{v: "01HTESTULID0000000000000AB"},
		log:   zap.NewNop().Sugar(),
	}
}

func seedBookAndPatron(f *fakeLoanStore) {
	f.books[1] = bookRef{ID: 1, CopiesAvailable: 2}
	f.patrons[10] = patronRef{ID: 10, Active: true, LoanLimit: 5}
}

func TestCreateLoanSetsDueDateFourteenDaysOut(t *testing.T) {
	f := newFakeLoanStore()
	seedBookAndPatron(f)
	svc := newTestService(f, "2024-01-01")

	res, err := svc.Create(context.Background(), CreateLoanRequest{BookID: 1, PatronID: 10})
	require.NoError(t, err)

	assert.Equal(t, "2024-01-01", res.LoanDate)
	assert.Equal(t, "2024-01-15", res.DueDate)
	assert.Equal(t, string(StatusActive), res.Status)
	assert.Equal(t, 0, res.Renewals)
	assert.False(t, res.IsOverdue)
	assert.Equal(t, 1, f.books[1].CopiesAvailable, "one copy must be reserved")
}

func TestCreateLoanWithExplicitLoanDate(t *testing.T) {
	f := newFakeLoanStore()
	seedBookAndPatron(f)
	svc := newTestService(f, "2024-03-01")

	loanDate := "2024-02-20"
	res, err := svc.Create(context.Background(), CreateLoanRequest{BookID: 1, PatronID: 10, LoanDate: &loanDate})
	require.NoError(t, err)

	assert.Equal(t, "2024-02-20", res.LoanDate)
	assert.Equal(t, "2024-03-05", res.DueDate)
}

func TestCreateLoanRejectsBadLoanDate(t *testing.T) {
	f := newFakeLoanStore()
	seedBookAndPatron(f)
	svc := newTestService(f, "2024-01-01")

	bad := "20-02-2024"
	_, err := svc.Create(context.Background(), CreateLoanRequest{BookID: 1, PatronID: 10, LoanDate: &bad})
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidArgument))
}

func TestCreateLoanUnknownBook(t *testing.T) {
	f := newFakeLoanStore()
	f.patrons[10] = patronRef{ID: 10, Active: true, LoanLimit: 5}
	svc := newTestService(f, "2024-01-01")

	_, err := svc.Create(context.Background(), CreateLoanRequest{BookID: 99, PatronID: 10})
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestCreateLoanUnknownPatron(t *testing.T) {
	f := newFakeLoanStore()
	f.books[1] = bookRef{ID: 1, CopiesAvailable: 1}
	svc := newTestService(f, "2024-01-01")

	_, err := svc.Create(context.Background(), CreateLoanRequest{BookID: 1, PatronID: 99})
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestCreateLoanInactivePatron(t *testing.T) {
	f := newFakeLoanStore()
	f.books[1] = bookRef{ID: 1, CopiesAvailable: 1}
	f.patrons[10] = patronRef{ID: 10, Active: false, LoanLimit: 5}
	svc := newTestService(f, "2024-01-01")

	_, err := svc.Create(context.Background(), CreateLoanRequest{BookID: 1, PatronID: 10})
	assert.True(t, apperr.IsCode(err, apperr.CodeBusinessRule))
	assert.ErrorContains(t, err, "patron is not active")
}

func TestCreateLoanNoCopiesAvailable(t *testing.T) {
	f := newFakeLoanStore()
	f.books[1] = bookRef{ID: 1, CopiesAvailable: 0}
	f.patrons[10] = patronRef{ID: 10, Active: true, LoanLimit: 5}
	svc := newTestService(f, "2024-01-01")

	_, err := svc.Create(context.Background(), CreateLoanRequest{BookID: 1, PatronID: 10})
	assert.True(t, apperr.IsCode(err, apperr.CodeBusinessRule))
	assert.ErrorContains(t, err, "no copies available")
}

func TestCreateLoanAtLoanLimit(t *testing.T) {
	f := newFakeLoanStore()
	f.books[1] = bookRef{ID: 1, CopiesAvailable: 5}
	f.patrons[10] = patronRef{ID: 10, Active: true, LoanLimit: 2}
	svc := newTestService(f, "2024-01-01")

	for i := 0; i < 2; i++ {
		_, err := svc.Create(context.Background(), CreateLoanRequest{BookID: 1, PatronID: 10})
		require.NoError(t, err)
	}

	_, err := svc.Create(context.Background(), CreateLoanRequest{BookID: 1, PatronID: 10})
	assert.True(t, apperr.IsCode(err, apperr.CodeBusinessRule))
	assert.ErrorContains(t, err, "patron reached the loan limit")
}

func TestCreateLoanBlockedByOwnOverdueLoan(t *testing.T) {
	f := newFakeLoanStore()
	seedBookAndPatron(f)
	f.overdue[10] = true
	svc := newTestService(f, "2024-01-01")

	_, err := svc.Create(context.Background(), CreateLoanRequest{BookID: 1, PatronID: 10})
	assert.True(t, apperr.IsCode(err, apperr.CodeBusinessRule))
	assert.ErrorContains(t, err, "patron has an overdue loan")
}

func TestCreateLoanOtherPatronsOverdueDoesNotBlock(t *testing.T) {
	f := newFakeLoanStore()
	seedBookAndPatron(f)
	f.overdue[11] = true
	svc := newTestService(f, "2024-01-01")

	_, err := svc.Create(context.Background(), CreateLoanRequest{BookID: 1, PatronID: 10})
	assert.NoError(t, err)
}

func TestReturnReleasesCopyAndStampsDate(t *testing.T) {
	f := newFakeLoanStore()
	seedBookAndPatron(f)
	svc := newTestService(f, "2024-01-01")

	created, err := svc.Create(context.Background(), CreateLoanRequest{BookID: 1, PatronID: 10})
	require.NoError(t, err)
	require.Equal(t, 1, f.books[1].CopiesAvailable)

	svc.clock = fixedClock{t: date("2024-01-10")}
	res, err := svc.Return(context.Background(), created.LoanID)
	require.NoError(t, err)

	assert.Equal(t, string(StatusReturned), res.Status)
	require.NotNil(t, res.ReturnDate)
	assert.Equal(t, "2024-01-10", *res.ReturnDate)
	assert.Equal(t, 2, f.books[1].CopiesAvailable)
}

func TestReturnTwiceFails(t *testing.T) {
	f := newFakeLoanStore()
	seedBookAndPatron(f)
	svc := newTestService(f, "2024-01-01")

	created, err := svc.Create(context.Background(), CreateLoanRequest{BookID: 1, PatronID: 10})
	require.NoError(t, err)

	_, err = svc.Return(context.Background(), created.LoanID)
	require.NoError(t, err)

	_, err = svc.Return(context.Background(), created.LoanID)
	assert.True(t, apperr.IsCode(err, apperr.CodeBusinessRule))
}

func TestRenewExtendsDueDateAndCountsRenewal(t *testing.T) {
	f := newFakeLoanStore()
	seedBookAndPatron(f)
	svc := newTestService(f, "2024-01-01")

	created, err := svc.Create(context.Background(), CreateLoanRequest{BookID: 1, PatronID: 10})
	require.NoError(t, err)
	require.Equal(t, "2024-01-15", created.DueDate)

	res, err := svc.Renew(context.Background(), created.LoanID)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-29", res.DueDate)
	assert.Equal(t, 1, res.Renewals)

	res, err = svc.Renew(context.Background(), created.LoanID)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-12", res.DueDate)
	assert.Equal(t, 2, res.Renewals)
}

func TestRenewOverdueLoanFails(t *testing.T) {
	f := newFakeLoanStore()
	seedBookAndPatron(f)
	svc := newTestService(f, "2024-01-01")

	created, err := svc.Create(context.Background(), CreateLoanRequest{BookID: 1, PatronID: 10})
	require.NoError(t, err)

	svc.clock = fixedClock{t: date("2024-01-20")}
	_, err = svc.Renew(context.Background(), created.LoanID)
	assert.True(t, apperr.IsCode(err, apperr.CodeBusinessRule))
	assert.ErrorContains(t, err, "loan is overdue and cannot be renewed")
}

func TestRenewReturnedLoanFails(t *testing.T) {
	f := newFakeLoanStore()
	seedBookAndPatron(f)
	svc := newTestService(f, "2024-01-01")

	created, err := svc.Create(context.Background(), CreateLoanRequest{BookID: 1, PatronID: 10})
	require.NoError(t, err)
	_, err = svc.Return(context.Background(), created.LoanID)
	require.NoError(t, err)

	_, err = svc.Renew(context.Background(), created.LoanID)
	assert.True(t, apperr.IsCode(err, apperr.CodeBusinessRule))
}

func TestDeleteActiveLoanReleasesCopy(t *testing.T) {
	f := newFakeLoanStore()
	seedBookAndPatron(f)
	svc := newTestService(f, "2024-01-01")

	created, err := svc.Create(context.Background(), CreateLoanRequest{BookID: 1, PatronID: 10})
	require.NoError(t, err)
	require.Equal(t, 1, f.books[1].CopiesAvailable)

	require.NoError(t, svc.Delete(context.Background(), created.LoanID))
	assert.Equal(t, 2, f.books[1].CopiesAvailable)

	_, err = svc.GetByID(context.Background(), created.LoanID)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestGetByKeyAcceptsIDOrULID(t *testing.T) {
	f := newFakeLoanStore()
	seedBookAndPatron(f)
	svc := newTestService(f, "2024-01-01")

	created, err := svc.Create(context.Background(), CreateLoanRequest{BookID: 1, PatronID: 10})
	require.NoError(t, err)

	byID, err := svc.GetByKey(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, created.LoanID, byID.LoanID)

	byULID, err := svc.GetByKey(context.Background(), created.LoanULID)
	require.NoError(t, err)
	assert.Equal(t, created.LoanID, byULID.LoanID)

	_, err = svc.GetByKey(context.Background(), "01HNOSUCHULID000000000000Z")
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestListByPeriodValidation(t *testing.T) {
	f := newFakeLoanStore()
	svc := newTestService(f, "2024-01-01")

	_, _, err := svc.ListByPeriod(context.Background(), time.Time{}, date("2024-01-31"), web.Page{Limit: 20})
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidArgument))

	_, _, err = svc.ListByPeriod(context.Background(), date("2024-02-01"), date("2024-01-01"), web.Page{Limit: 20})
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidArgument))
}

func TestListByPatronRejectsUnknownStatus(t *testing.T) {
	f := newFakeLoanStore()
	svc := newTestService(f, "2024-01-01")

	_, _, err := svc.ListByPatron(context.Background(), 10, "LOST", web.Page{Limit: 20})
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidArgument))
}
