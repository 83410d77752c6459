package reports

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"go.uber.org/zap"

	"biblios-backend/internal/library/loans"
	"biblios-backend/internal/platform/apperr"
)

const topBorrowedLimit = 20

const uncategorized = "Uncategorized"

type reportStore interface {
	BookLoanRows(ctx context.Context) ([]BookLoanRow, error)
	ActiveLoanRows(ctx context.Context) ([]ActiveLoanRow, error)
	PatronLoanRows(ctx context.Context) ([]PatronLoanRow, error)
	BookRows(ctx context.Context) ([]BookRow, error)
	PeriodLoanRows(ctx context.Context, from, to time.Time) ([]PeriodLoanRow, error)
}

type Service struct {
	store reportStore
	clock loans.Clock
	log   *zap.SugaredLogger
}

func NewService(conn *sql.DB, log *zap.SugaredLogger) *Service {
	return &Service{store: NewStore(conn), clock: systemClock{}, log: log}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (s *Service) today() time.Time { return loans.DateOnly(s.clock.Now()) }

func (s *Service) TopBorrowed(ctx context.Context) ([]BorrowedBook, error) {
	rows, err := s.store.BookLoanRows(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Debugw("top-borrowed report", "loan_rows", len(rows))
	return topBorrowed(rows, topBorrowedLimit), nil
}

func (s *Service) CheckedOut(ctx context.Context) ([]CheckedOutEntry, error) {
	rows, err := s.store.ActiveLoanRows(ctx)
	if err != nil {
		return nil, err
	}
	return checkedOut(rows, s.today()), nil
}

func (s *Service) LoansByPatron(ctx context.Context) ([]PatronSummary, error) {
	rows, err := s.store.PatronLoanRows(ctx)
	if err != nil {
		return nil, err
	}
	return loansByPatron(rows, s.today()), nil
}

func (s *Service) BooksByCategory(ctx context.Context) ([]CategorySummary, error) {
	rows, err := s.store.BookRows(ctx)
	if err != nil {
		return nil, err
	}
	return booksByCategory(rows), nil
}

// Activity reports on loans opened within [from, to]. Zero bounds default
// to the last month ending today.
func (s *Service) Activity(ctx context.Context, from, to time.Time) (ActivityReport, error) {
	today := s.today()
	if from.IsZero() && to.IsZero() {
		to = today
		from = today.AddDate(0, -1, 0)
	}
	if from.IsZero() || to.IsZero() {
		return ActivityReport{}, apperr.Invalid("from and to must be provided together")
	}
	from, to = loans.DateOnly(from), loans.DateOnly(to)
	if to.Before(from) {
		return ActivityReport{}, apperr.Invalid("to must not be before from")
	}

	rows, err := s.store.PeriodLoanRows(ctx, from, to)
	if err != nil {
		return ActivityReport{}, err
	}
	return activity(rows, from, to, today), nil
}

// overdue applies the loan package's derived rule to a report row: only an
// ACTIVE loan past its due date counts.
func overdue(status string, dueDate, today time.Time) bool {
	l := loans.Loan{Status: loans.Status(status), DueDate: dueDate}
	return l.IsOverdue(today)
}

// topBorrowed counts qualifying loans per book and keeps the busiest ones.
func topBorrowed(rows []BookLoanRow, limit int) []BorrowedBook {
	byBook := make(map[int64]*BorrowedBook)
	for _, r := range rows {
		if r.LoanStatus != string(loans.StatusActive) && r.LoanStatus != string(loans.StatusReturned) {
			continue
		}
		entry, ok := byBook[r.BookID]
		if !ok {
			entry = &BorrowedBook{
				BookID:          r.BookID,
				Title:           r.Title,
				Author:          r.Author,
				ISBN:            r.ISBN,
				CopiesAvailable: r.CopiesAvailable,
				CopiesTotal:     r.CopiesTotal,
			}
			if r.Category.Valid {
				val := r.Category.String
				entry.Category = &val
			}
			byBook[r.BookID] = entry
		}
		entry.LoanCount++
	}

	out := make([]BorrowedBook, 0, len(byBook))
	for _, entry := range byBook {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LoanCount != out[j].LoanCount {
			return out[i].LoanCount > out[j].LoanCount
		}
		return out[i].BookID < out[j].BookID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// checkedOut builds the currently-loaned view, soonest due first.
// DaysRemaining goes negative once the due date has passed.
func checkedOut(rows []ActiveLoanRow, today time.Time) []CheckedOutEntry {
	out := make([]CheckedOutEntry, 0, len(rows))
	for _, r := range rows {
		l := loans.Loan{Status: loans.StatusActive, DueDate: r.DueDate}
		out = append(out, CheckedOutEntry{
			LoanID:        r.LoanID,
			BookID:        r.BookID,
			BookTitle:     r.BookTitle,
			BookAuthor:    r.BookAuthor,
			BookISBN:      r.BookISBN,
			PatronID:      r.PatronID,
			PatronName:    r.PatronName,
			PatronEmail:   r.PatronEmail,
			LoanDate:      r.LoanDate.Format(time.DateOnly),
			DueDate:       r.DueDate.Format(time.DateOnly),
			DaysRemaining: l.DaysRemaining(today),
			IsOverdue:     l.IsOverdue(today),
			DaysOverdue:   l.DaysOverdue(today),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate < out[j].DueDate })
	return out
}

// loansByPatron groups every loan by patron, busiest patrons first.
func loansByPatron(rows []PatronLoanRow, today time.Time) []PatronSummary {
	byPatron := make(map[int64]*PatronSummary)
	for _, r := range rows {
		sum, ok := byPatron[r.PatronID]
		if !ok {
			sum = &PatronSummary{
				PatronID:    r.PatronID,
				PatronName:  r.PatronName,
				PatronEmail: r.PatronEmail,
				PatronType:  r.PatronType,
			}
			byPatron[r.PatronID] = sum
		}
		sum.TotalLoans++
		switch loans.Status(r.LoanStatus) {
		case loans.StatusReturned:
			sum.Returned++
		case loans.StatusActive:
			sum.Active++
		}
		if overdue(r.LoanStatus, r.DueDate, today) {
			sum.Overdue++
		}
	}

	out := make([]PatronSummary, 0, len(byPatron))
	for _, sum := range byPatron {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalLoans != out[j].TotalLoans {
			return out[i].TotalLoans > out[j].TotalLoans
		}
		return out[i].PatronID < out[j].PatronID
	})
	return out
}

// booksByCategory groups the whole catalog by category, alphabetically.
func booksByCategory(rows []BookRow) []CategorySummary {
	byCategory := make(map[string]*CategorySummary)
	for _, r := range rows {
		cat := uncategorized
		if r.Category.Valid && r.Category.String != "" {
			cat = r.Category.String
		}
		sum, ok := byCategory[cat]
		if !ok {
			sum = &CategorySummary{Category: cat}
			byCategory[cat] = sum
		}
		sum.TotalBooks++
		sum.CopiesAvailable += r.CopiesAvailable
		sum.CopiesTotal += r.CopiesTotal
		sum.Books = append(sum.Books, BookBrief{
			BookID: r.BookID,
			Title:  r.Title,
			Author: r.Author,
			ISBN:   r.ISBN,
		})
	}

	out := make([]CategorySummary, 0, len(byCategory))
	for _, sum := range byCategory {
		if sum.CopiesTotal > 0 {
			sum.AvailabilityRate = float64(sum.CopiesAvailable) * 100.0 / float64(sum.CopiesTotal)
		}
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// activity summarizes loans opened in the period. Overdue counts loans that
// are currently overdue among the period's loans, not overdue as of the
// period end.
func activity(rows []PeriodLoanRow, from, to, today time.Time) ActivityReport {
	rep := ActivityReport{
		From:       from.Format(time.DateOnly),
		To:         to.Format(time.DateOnly),
		TotalLoans: len(rows),
	}
	for _, r := range rows {
		if loans.Status(r.LoanStatus) == loans.StatusReturned {
			rep.Returned++
		}
		if overdue(r.LoanStatus, r.DueDate, today) {
			rep.Overdue++
		}
		if r.Renewals > 0 {
			rep.Renewed++
		}
	}
	if rep.TotalLoans > 0 {
		rep.OverdueRate = float64(rep.Overdue) * 100.0 / float64(rep.TotalLoans)
	}
	return rep
}
