package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/smallbiznis/ledgerline/internal/customer/domain"
	statementdomain "github.com/smallbiznis/ledgerline/internal/statement/domain"
	"github.com/smallbiznis/ledgerline/internal/statement/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newErrorTestEngine(err error) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandlingMiddleware())
	r.GET("/boom", func(c *gin.Context) {
		AbortWithError(c, err)
	})
	return r
}

func doErrorRequest(t *testing.T, err error) (int, errorResponse) {
	t.Helper()

	r := newErrorTestEngine(err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	r.ServeHTTP(w, req)

	var body errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestErrorMiddlewareMapsValidation(t *testing.T) {
	status, body := doErrorRequest(t, customerdomain.ErrInvalidName)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", body.Error.Type)
}

func TestErrorMiddlewareMapsColumnError(t *testing.T) {
	status, body := doErrorRequest(t, &normalize.ColumnError{
		Missing: []normalize.Field{normalize.FieldDate, normalize.FieldDescription},
	})

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", body.Error.Type)
	require.Len(t, body.Error.Errors, 2)
	assert.Equal(t, "date", body.Error.Errors[0].Field)
	assert.Equal(t, "unresolved_column", body.Error.Errors[0].Code)
}

func TestErrorMiddlewareMapsParseError(t *testing.T) {
	status, body := doErrorRequest(t, &normalize.ParseError{
		Field: normalize.FieldDate,
		Value: "not-a-date",
		Err:   errors.New("no layout matched"),
	})

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "row_error", body.Error.Type)
}

func TestErrorMiddlewareMapsConflict(t *testing.T) {
	status, body := doErrorRequest(t, statementdomain.ErrUploadProcessed)

	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", body.Error.Type)
	assert.Equal(t, "upload already processed", body.Error.Message)
}

func TestErrorMiddlewareMapsNotFound(t *testing.T) {
	status, body := doErrorRequest(t, statementdomain.ErrNotFound)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body.Error.Type)
}

func TestErrorMiddlewareMapsRateLimited(t *testing.T) {
	status, body := doErrorRequest(t, ErrRateLimited)

	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "rate_limited", body.Error.Type)
}

func TestErrorMiddlewareDefaultsToInternal(t *testing.T) {
	status, body := doErrorRequest(t, fmt.Errorf("query failed: %w", errors.New("disk full")))

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal_error", body.Error.Type)
	assert.Equal(t, "internal server error", body.Error.Message)
}
