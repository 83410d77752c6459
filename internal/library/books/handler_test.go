package books

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biblios-backend/internal/platform/web"
)

func newTestRouter(store *fakeBookStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group("/api/v1"), newTestService(store))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateAndGetBookOverHTTP(t *testing.T) {
	r := newTestRouter(newFakeBookStore())

	w := doJSON(t, r, http.MethodPost, "/api/v1/books", `{
		"title": "The Go Programming Language",
		"author": "Donovan and Kernighan",
		"isbn": "9780134190440",
		"copies_available": 3,
		"copies_total": 3
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "/api/v1/books/1", w.Header().Get("Location"))

	var created BookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, int64(1), created.BookID)

	w = doJSON(t, r, http.MethodGet, "/api/v1/books/1", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/books/isbn/9780134190440", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestCreateBookMissingFields(t *testing.T) {
	r := newTestRouter(newFakeBookStore())

	w := doJSON(t, r, http.MethodPost, "/api/v1/books", `{"title": "no author"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body web.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusBadRequest, body.Status)
	assert.Equal(t, "/api/v1/books", body.Path)
}

func TestGetBookNotFound(t *testing.T) {
	r := newTestRouter(newFakeBookStore())

	w := doJSON(t, r, http.MethodGet, "/api/v1/books/42", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetBookBadID(t *testing.T) {
	r := newTestRouter(newFakeBookStore())

	w := doJSON(t, r, http.MethodGet, "/api/v1/books/not-a-number", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListBooksPaginationEnvelope(t *testing.T) {
	store := newFakeBookStore()
	r := newTestRouter(store)

	w := doJSON(t, r, http.MethodPost, "/api/v1/books", `{
		"title": "T", "author": "A", "isbn": "1", "copies_available": 1, "copies_total": 1
	}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/books?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Items  []BookResponse `json:"items"`
		Total  int64          `json:"total"`
		Limit  int            `json:"limit"`
		Offset int            `json:"offset"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 5, page.Limit)
	assert.Len(t, page.Items, 1)
}

func TestDeleteBookOverHTTP(t *testing.T) {
	r := newTestRouter(newFakeBookStore())

	w := doJSON(t, r, http.MethodPost, "/api/v1/books", `{
		"title": "T", "author": "A", "isbn": "1", "copies_available": 1, "copies_total": 1
	}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/v1/books/1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/books/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
