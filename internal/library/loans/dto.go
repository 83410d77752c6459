package loans

import "time"

type CreateLoanRequest struct {
	BookID   int64  `json:"book_id" binding:"required"`
	PatronID int64  `json:"patron_id" binding:"required"`
	// "2006-01-02"; defaults to today when omitted.
	LoanDate *string `json:"loan_date,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

type LoanResponse struct {
	LoanID     int64      `json:"loan_id"`
	LoanULID   string     `json:"loan_ulid"`
	BookID     int64      `json:"book_id"`
	PatronID   int64      `json:"patron_id"`
	LoanDate   string     `json:"loan_date"`
	DueDate    string     `json:"due_date"`
	ReturnDate *string    `json:"return_date,omitempty"`
	Status     string     `json:"status"`
	Notes      *string    `json:"notes,omitempty"`
	Renewals   int        `json:"renewals"`
	IsOverdue  bool       `json:"is_overdue"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

const dateLayout = "2006-01-02"

func (s *Service) buildLoanResponse(l *Loan) LoanResponse {
	resp := LoanResponse{
		LoanID:    l.LoanID,
		LoanULID:  l.LoanULID,
		BookID:    l.BookID,
		PatronID:  l.PatronID,
		LoanDate:  l.LoanDate.Format(dateLayout),
		DueDate:   l.DueDate.Format(dateLayout),
		Status:    string(l.Status),
		Renewals:  l.Renewals,
		IsOverdue: l.IsOverdue(s.today()),
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
	if l.ReturnDate.Valid {
		val := l.ReturnDate.Time.Format(dateLayout)
		resp.ReturnDate = &val
	}
	if l.Notes.Valid {
		val := l.Notes.String
		resp.Notes = &val
	}
	return resp
}

func (s *Service) buildLoanResponses(items []Loan) []LoanResponse {
	out := make([]LoanResponse, 0, len(items))
	for i := range items {
		out = append(out, s.buildLoanResponse(&items[i]))
	}
	return out
}
