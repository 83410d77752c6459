package books

import "time"

type CreateBookRequest struct {
	Title           string  `json:"title" binding:"required"`
	Author          string  `json:"author" binding:"required"`
	ISBN            string  `json:"isbn" binding:"required"`
	Category        *string `json:"category,omitempty"`
	Description     *string `json:"description,omitempty"`
	CopiesAvailable int     `json:"copies_available"`
	CopiesTotal     int     `json:"copies_total" binding:"required"`
}

type UpdateBookRequest struct {
	Title           string  `json:"title" binding:"required"`
	Author          string  `json:"author" binding:"required"`
	ISBN            string  `json:"isbn" binding:"required"`
	Category        *string `json:"category,omitempty"`
	Description     *string `json:"description,omitempty"`
	CopiesAvailable int     `json:"copies_available"`
	CopiesTotal     int     `json:"copies_total" binding:"required"`
}

type BookResponse struct {
	BookID          int64     `json:"book_id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            string    `json:"isbn"`
	Category        *string   `json:"category,omitempty"`
	Description     *string   `json:"description,omitempty"`
	CopiesAvailable int       `json:"copies_available"`
	CopiesTotal     int       `json:"copies_total"`
	CopiesBorrowed  int       `json:"copies_borrowed"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func buildBookResponse(b *Book) BookResponse {
	resp := BookResponse{
		BookID:          b.BookID,
		Title:           b.Title,
		Author:          b.Author,
		ISBN:            b.ISBN,
		CopiesAvailable: b.CopiesAvailable,
		CopiesTotal:     b.CopiesTotal,
		CopiesBorrowed:  b.CopiesBorrowed(),
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
	if b.Category.Valid {
		val := b.Category.String
		resp.Category = &val
	}
	if b.Description.Valid {
		val := b.Description.String
		resp.Description = &val
	}
	return resp
}
