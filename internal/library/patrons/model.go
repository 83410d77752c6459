package patrons

import (
	"database/sql"
	"time"
)

// PatronType is the closed set of membership categories.
type PatronType string

const (
	TypeStudent PatronType = "STUDENT"
	TypeTeacher PatronType = "TEACHER"
	TypeVisitor PatronType = "VISITOR"
	TypeStaff   PatronType = "STAFF"
)

func (t PatronType) Valid() bool {
	switch t {
	case TypeStudent, TypeTeacher, TypeVisitor, TypeStaff:
		return true
	}
	return false
}

const DefaultLoanLimit = 5

// Patron is one row of the patrons table.
type Patron struct {
	PatronID  int64
	Name      string
	Email     string
	Phone     sql.NullString
	Address   sql.NullString
	Type      PatronType
	Active    bool
	LoanLimit int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Filter narrows the patron list query. Name is a substring match,
// Type matches exactly, Active filters on the flag when set.
type Filter struct {
	Name   string
	Type   string
	Active *bool
}
