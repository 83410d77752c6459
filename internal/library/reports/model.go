package reports

import (
	"database/sql"
	"time"
)

// Row types loaded by the store. Reports are pure projections over these;
// nothing in this package writes to the datastore.

// BookLoanRow is one (book, loan) pair for the top-borrowed report.
type BookLoanRow struct {
	BookID          int64          `db:"book_id"`
	Title           string         `db:"title"`
	Author          string         `db:"author"`
	ISBN            string         `db:"isbn"`
	Category        sql.NullString `db:"category"`
	CopiesAvailable int            `db:"copies_available"`
	CopiesTotal     int            `db:"copies_total"`
	LoanStatus      string         `db:"loan_status"`
}

// ActiveLoanRow is one ACTIVE loan joined with book and patron details.
type ActiveLoanRow struct {
	LoanID      int64     `db:"loan_id"`
	BookID      int64     `db:"book_id"`
	BookTitle   string    `db:"book_title"`
	BookAuthor  string    `db:"book_author"`
	BookISBN    string    `db:"book_isbn"`
	PatronID    int64     `db:"patron_id"`
	PatronName  string    `db:"patron_name"`
	PatronEmail string    `db:"patron_email"`
	LoanDate    time.Time `db:"loan_date"`
	DueDate     time.Time `db:"due_date"`
}

// PatronLoanRow is one loan joined with its patron, for per-patron grouping.
type PatronLoanRow struct {
	PatronID    int64     `db:"patron_id"`
	PatronName  string    `db:"patron_name"`
	PatronEmail string    `db:"patron_email"`
	PatronType  string    `db:"patron_type"`
	LoanStatus  string    `db:"loan_status"`
	DueDate     time.Time `db:"due_date"`
}

// BookRow is one book, for the per-category report.
type BookRow struct {
	BookID          int64          `db:"book_id"`
	Title           string         `db:"title"`
	Author          string         `db:"author"`
	ISBN            string         `db:"isbn"`
	Category        sql.NullString `db:"category"`
	CopiesAvailable int            `db:"copies_available"`
	CopiesTotal     int            `db:"copies_total"`
}

// PeriodLoanRow is one loan whose loan_date falls in the report range.
type PeriodLoanRow struct {
	LoanStatus string    `db:"loan_status"`
	DueDate    time.Time `db:"due_date"`
	Renewals   int       `db:"renewals"`
}

// Report shapes.

type BorrowedBook struct {
	BookID          int64   `json:"book_id"`
	Title           string  `json:"title"`
	Author          string  `json:"author"`
	ISBN            string  `json:"isbn"`
	Category        *string `json:"category,omitempty"`
	CopiesAvailable int     `json:"copies_available"`
	CopiesTotal     int     `json:"copies_total"`
	LoanCount       int     `json:"loan_count"`
}

type CheckedOutEntry struct {
	LoanID        int64  `json:"loan_id"`
	BookID        int64  `json:"book_id"`
	BookTitle     string `json:"book_title"`
	BookAuthor    string `json:"book_author"`
	BookISBN      string `json:"book_isbn"`
	PatronID      int64  `json:"patron_id"`
	PatronName    string `json:"patron_name"`
	PatronEmail   string `json:"patron_email"`
	LoanDate      string `json:"loan_date"`
	DueDate       string `json:"due_date"`
	DaysRemaining int    `json:"days_remaining"`
	IsOverdue     bool   `json:"is_overdue"`
	DaysOverdue   int    `json:"days_overdue"`
}

type PatronSummary struct {
	PatronID    int64  `json:"patron_id"`
	PatronName  string `json:"patron_name"`
	PatronEmail string `json:"patron_email"`
	PatronType  string `json:"patron_type"`
	TotalLoans  int    `json:"total_loans"`
	Returned    int    `json:"returned_loans"`
	Active      int    `json:"active_loans"`
	Overdue     int    `json:"overdue_loans"`
}

type BookBrief struct {
	BookID int64  `json:"book_id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
}

type CategorySummary struct {
	Category         string      `json:"category"`
	TotalBooks       int         `json:"total_books"`
	CopiesAvailable  int         `json:"copies_available"`
	CopiesTotal      int         `json:"copies_total"`
	AvailabilityRate float64     `json:"availability_rate"`
	Books            []BookBrief `json:"books"`
}

type ActivityReport struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	TotalLoans  int     `json:"total_loans"`
	Returned    int     `json:"returned_loans"`
	Overdue     int     `json:"overdue_loans"`
	Renewed     int     `json:"renewed_loans"`
	OverdueRate float64 `json:"overdue_rate"`
}
