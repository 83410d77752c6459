package patrons

import "time"

type CreatePatronRequest struct {
	Name      string  `json:"name" binding:"required"`
	Email     string  `json:"email" binding:"required,email"`
	Phone     *string `json:"phone,omitempty"`
	Address   *string `json:"address,omitempty"`
	Type      string  `json:"patron_type" binding:"required"`
	Active    *bool   `json:"active,omitempty"`
	LoanLimit *int    `json:"loan_limit,omitempty"`
}

type UpdatePatronRequest struct {
	Name      string  `json:"name" binding:"required"`
	Email     string  `json:"email" binding:"required,email"`
	Phone     *string `json:"phone,omitempty"`
	Address   *string `json:"address,omitempty"`
	Type      string  `json:"patron_type" binding:"required"`
	Active    *bool   `json:"active,omitempty"`
	LoanLimit *int    `json:"loan_limit,omitempty"`
}

type PatronResponse struct {
	PatronID  int64     `json:"patron_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone,omitempty"`
	Address   *string   `json:"address,omitempty"`
	Type      string    `json:"patron_type"`
	Active    bool      `json:"active"`
	LoanLimit int       `json:"loan_limit"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func buildPatronResponse(p *Patron) PatronResponse {
	resp := PatronResponse{
		PatronID:  p.PatronID,
		Name:      p.Name,
		Email:     p.Email,
		Type:      string(p.Type),
		Active:    p.Active,
		LoanLimit: p.LoanLimit,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.Phone.Valid {
		val := p.Phone.String
		resp.Phone = &val
	}
	if p.Address.Valid {
		val := p.Address.String
		resp.Address = &val
	}
	return resp
}
