package loans

import (
	"database/sql"
	"time"
)

// Status is the closed set of loan states. OVERDUE exists in the enumeration
// but is never persisted: overdue-ness is derived from ACTIVE + due_date so
// the stored state cannot drift from the calendar.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusReturned  Status = "RETURNED"
	StatusOverdue   Status = "OVERDUE"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusReturned, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// LoanDays is the fixed loan period. Renewal extends the due date by the
// same amount.
const LoanDays = 14

// Loan is one row of the loans table. Book and patron references are
// immutable after creation.
type Loan struct {
	LoanID     int64
	LoanULID   string
	BookID     int64
	PatronID   int64
	LoanDate   time.Time
	DueDate    time.Time
	ReturnDate sql.NullTime
	Status     Status
	Notes      sql.NullString
	Renewals   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsOverdue reports whether the loan is active and past due as of today.
func (l *Loan) IsOverdue(today time.Time) bool {
	return l.Status == StatusActive && today.After(l.DueDate)
}

// DaysOverdue is how many days past due the loan is, 0 when not overdue.
func (l *Loan) DaysOverdue(today time.Time) int {
	if !l.IsOverdue(today) {
		return 0
	}
	return daysBetween(l.DueDate, today)
}

// DaysRemaining is the count of days until the due date; negative once past.
func (l *Loan) DaysRemaining(today time.Time) int {
	return daysBetween(today, l.DueDate)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// DateOnly truncates t to a UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
