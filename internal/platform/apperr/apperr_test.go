package apperr

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("book not found")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(BusinessRule("no copies available")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(Invalid("bad date")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Internal("boom")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(assert.AnError))
}

func TestIsCodeSeesWrappedErrors(t *testing.T) {
	err := fmt.Errorf("create loan: %w", BusinessRule("patron is not active"))

	assert.True(t, IsCode(err, CodeBusinessRule))
	assert.False(t, IsCode(err, CodeNotFound))
	assert.False(t, IsCode(assert.AnError, CodeBusinessRule))
	assert.False(t, IsCode(nil, CodeBusinessRule))
}
