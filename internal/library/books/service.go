package books

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	mysql "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"biblios-backend/internal/platform/apperr"
	"biblios-backend/internal/platform/web"
)

const topBorrowedLimit = 20

type bookStore interface {
	Insert(ctx context.Context, b *Book) (int64, error)
	GetByID(ctx context.Context, id int64) (*Book, error)
	GetByISBN(ctx context.Context, isbn string) (*Book, error)
	Update(ctx context.Context, b *Book) error
	Delete(ctx context.Context, id int64) error
	HasLoans(ctx context.Context, bookID int64) (bool, error)
	List(ctx context.Context, f Filter, p web.Page) ([]Book, int64, error)
	ListAvailable(ctx context.Context, p web.Page) ([]Book, int64, error)
	MostBorrowed(ctx context.Context, n int) ([]Book, error)
}

type Service struct {
	store bookStore
	log   *zap.SugaredLogger
}

func NewService(conn *sql.DB, log *zap.SugaredLogger) *Service {
	return &Service{store: NewStore(conn), log: log}
}

func (s *Service) Create(ctx context.Context, req CreateBookRequest) (BookResponse, error) {
	if err := validateCopies(req.CopiesAvailable, req.CopiesTotal); err != nil {
		return BookResponse{}, err
	}

	if _, err := s.store.GetByISBN(ctx, strings.TrimSpace(req.ISBN)); err == nil {
		return BookResponse{}, apperr.BusinessRule("book with ISBN " + req.ISBN + " already exists")
	} else if err != sql.ErrNoRows {
		return BookResponse{}, err
	}

	b := &Book{
		Title:           strings.TrimSpace(req.Title),
		Author:          strings.TrimSpace(req.Author),
		ISBN:            strings.TrimSpace(req.ISBN),
		Category:        nullStr(req.Category),
		Description:     nullStr(req.Description),
		CopiesAvailable: req.CopiesAvailable,
		CopiesTotal:     req.CopiesTotal,
	}

	id, err := s.store.Insert(ctx, b)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return BookResponse{}, apperr.BusinessRule("book with ISBN " + req.ISBN + " already exists")
		}
		return BookResponse{}, err
	}

	s.log.Infow("book created", "book_id", id, "isbn", b.ISBN)
	return s.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateBookRequest) (BookResponse, error) {
	if err := validateCopies(req.CopiesAvailable, req.CopiesTotal); err != nil {
		return BookResponse{}, err
	}

	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return BookResponse{}, apperr.NotFound("book not found")
		}
		return BookResponse{}, err
	}

	// The uniqueness check only applies when the ISBN actually changes.
	isbn := strings.TrimSpace(req.ISBN)
	if b.ISBN != isbn {
		if _, err := s.store.GetByISBN(ctx, isbn); err == nil {
			return BookResponse{}, apperr.BusinessRule("book with ISBN " + isbn + " already exists")
		} else if err != sql.ErrNoRows {
			return BookResponse{}, err
		}
	}

	b.Title = strings.TrimSpace(req.Title)
	b.Author = strings.TrimSpace(req.Author)
	b.ISBN = isbn
	b.Category = nullStr(req.Category)
	b.Description = nullStr(req.Description)
	b.CopiesAvailable = req.CopiesAvailable
	b.CopiesTotal = req.CopiesTotal

	if err := s.store.Update(ctx, b); err != nil {
		if err == sql.ErrNoRows {
			return BookResponse{}, apperr.NotFound("book not found")
		}
		return BookResponse{}, err
	}

	s.log.Infow("book updated", "book_id", id)
	return s.GetByID(ctx, id)
}

func (s *Service) GetByID(ctx context.Context, id int64) (BookResponse, error) {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return BookResponse{}, apperr.NotFound("book not found")
		}
		return BookResponse{}, err
	}
	return buildBookResponse(b), nil
}

func (s *Service) GetByISBN(ctx context.Context, isbn string) (BookResponse, error) {
	b, err := s.store.GetByISBN(ctx, isbn)
	if err != nil {
		if err == sql.ErrNoRows {
			return BookResponse{}, apperr.NotFound("book not found")
		}
		return BookResponse{}, err
	}
	return buildBookResponse(b), nil
}

func (s *Service) List(ctx context.Context, f Filter, p web.Page) ([]BookResponse, int64, error) {
	items, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	return buildBookResponses(items), total, nil
}

func (s *Service) ListAvailable(ctx context.Context, p web.Page) ([]BookResponse, int64, error) {
	items, total, err := s.store.ListAvailable(ctx, p)
	if err != nil {
		return nil, 0, err
	}
	return buildBookResponses(items), total, nil
}

func (s *Service) MostBorrowed(ctx context.Context) ([]BookResponse, error) {
	items, err := s.store.MostBorrowed(ctx, topBorrowedLimit)
	if err != nil {
		return nil, err
	}
	return buildBookResponses(items), nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return apperr.NotFound("book not found")
		}
		return err
	}

	hasLoans, err := s.store.HasLoans(ctx, id)
	if err != nil {
		return err
	}
	if hasLoans {
		return apperr.BusinessRule("book has associated loans and cannot be deleted")
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return apperr.NotFound("book not found")
		}
		return err
	}

	s.log.Infow("book deleted", "book_id", id)
	return nil
}

func validateCopies(available, total int) error {
	if total < 0 || available < 0 {
		return apperr.Invalid("copy counts must be >= 0")
	}
	if available > total {
		return apperr.BusinessRule("copies_available cannot exceed copies_total")
	}
	return nil
}

func buildBookResponses(items []Book) []BookResponse {
	out := make([]BookResponse, 0, len(items))
	for i := range items {
		out = append(out, buildBookResponse(&items[i]))
	}
	return out
}

func nullStr(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
