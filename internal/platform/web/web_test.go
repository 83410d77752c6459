package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biblios-backend/internal/platform/apperr"
)

func ctxWithQuery(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/books?"+rawQuery, nil)
	return c
}

func TestPageFromQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Page
	}{
		{"defaults", "", Page{Limit: DefaultLimit, Offset: 0}},
		{"explicit", "limit=5&offset=30", Page{Limit: 5, Offset: 30}},
		{"clamped to max", "limit=5000", Page{Limit: MaxLimit, Offset: 0}},
		{"negative values", "limit=-1&offset=-7", Page{Limit: DefaultLimit, Offset: 0}},
		{"garbage falls back", "limit=abc&offset=xyz", Page{Limit: DefaultLimit, Offset: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PageFromQuery(ctxWithQuery(t, tt.query)))
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-06-15")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-15", got.Format(DateLayout))

	got, err = ParseDate("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = ParseDate("15/06/2024")
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidArgument))
}

func TestFailBusinessRule(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/loans", nil)

	Fail(c, apperr.BusinessRule("no copies available"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusBadRequest, body.Status)
	assert.Equal(t, "Bad Request", body.Error)
	assert.Equal(t, "no copies available", body.Message)
	assert.Equal(t, "/api/v1/loans", body.Path)
	assert.False(t, body.Timestamp.IsZero())
}

func TestFailWithholdsInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/books/1", nil)

	Fail(c, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body.Message)
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}
