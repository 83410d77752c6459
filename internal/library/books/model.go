package books

import (
	"database/sql"
	"time"
)

// Book is one row of the books table. Copy counters always satisfy
// 0 <= copies_available <= copies_total.
type Book struct {
	BookID          int64
	Title           string
	Author          string
	ISBN            string
	Category        sql.NullString
	Description     sql.NullString
	CopiesAvailable int
	CopiesTotal     int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CopiesBorrowed is derived, never stored.
func (b *Book) CopiesBorrowed() int {
	return b.CopiesTotal - b.CopiesAvailable
}

// Filter narrows the book list query. All fields are substring matches
// except Category, which matches exactly.
type Filter struct {
	Title    string
	Author   string
	ISBN     string
	Category string
}
