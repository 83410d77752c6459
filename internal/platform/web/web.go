package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"biblios-backend/internal/platform/apperr"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	// DateLayout is the wire format for date-only request parameters.
	DateLayout = "2006-01-02"
)

type Page struct {
	Limit  int
	Offset int
}

// PageFromQuery reads limit/offset query params, clamping to sane bounds.
func PageFromQuery(c *gin.Context) Page {
	p := Page{
		Limit:  parseIntDefault(c.Query("limit"), DefaultLimit),
		Offset: parseIntDefault(c.Query("offset"), 0),
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

// PageResponse is the envelope for paginated list endpoints.
type PageResponse struct {
	Items  any   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

func Paged(items any, total int64, p Page) PageResponse {
	return PageResponse{Items: items, Total: total, Limit: p.Limit, Offset: p.Offset}
}

// ErrorBody mirrors the JSON error contract of the API:
// timestamp, numeric status, error phrase, message, request path.
type ErrorBody struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}

// Fail translates a domain error into the error body and aborts the request.
// Internal failures never leak their message to the client.
func Fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	var e *apperr.Error
	if errors.As(err, &e) {
		msg = e.Message
	}
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, ErrorBody{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   msg,
		Path:      c.Request.URL.Path,
	})
}

// FailInvalid is the shortcut for malformed request payloads and params.
func FailInvalid(c *gin.Context, msg string) {
	Fail(c, apperr.Invalid(msg))
}

// ParseDate parses a YYYY-MM-DD query value. Empty input yields a zero time.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, apperr.Invalid("invalid date, expected YYYY-MM-DD: " + s)
	}
	return t, nil
}

const requestIDHeader = "X-Request-ID"

// RequestID tags every request with an id, reusing the caller's when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}
