package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	categorydomain "github.com/smallbiznis/ledgerline/internal/category/domain"
	companydomain "github.com/smallbiznis/ledgerline/internal/company/domain"
	customerdomain "github.com/smallbiznis/ledgerline/internal/customer/domain"
	ledgerdomain "github.com/smallbiznis/ledgerline/internal/ledger/domain"
	revenuedomain "github.com/smallbiznis/ledgerline/internal/revenue/domain"
	statementdomain "github.com/smallbiznis/ledgerline/internal/statement/domain"
	"github.com/smallbiznis/ledgerline/internal/statement/normalize"
	suggestdomain "github.com/smallbiznis/ledgerline/internal/suggest/domain"
	vendordomain "github.com/smallbiznis/ledgerline/internal/vendors/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if colErr := asColumnError(err); colErr != nil {
		fields := make([]ValidationError, 0, len(colErr.Missing))
		for _, field := range colErr.Missing {
			fields = append(fields, ValidationError{
				Field:   string(field),
				Code:    "unresolved_column",
				Message: "no column matched this field",
			})
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  fields,
		}
	}

	if parseErr := asParseError(err); parseErr != nil {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "row_error",
			Message: parseErr.Error(),
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func asColumnError(err error) *normalize.ColumnError {
	var colErr *normalize.ColumnError
	if errors.As(err, &colErr) && colErr != nil {
		return colErr
	}
	return nil
}

func asParseError(err error) *normalize.ParseError {
	var parseErr *normalize.ParseError
	if errors.As(err, &parseErr) && parseErr != nil {
		return parseErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case errors.Is(err, companydomain.ErrInvalidName),
		errors.Is(err, companydomain.ErrInvalidID):
		return true
	case errors.Is(err, customerdomain.ErrInvalidCompany),
		errors.Is(err, customerdomain.ErrInvalidName),
		errors.Is(err, customerdomain.ErrInvalidID):
		return true
	case errors.Is(err, vendordomain.ErrInvalidCompany),
		errors.Is(err, vendordomain.ErrInvalidName):
		return true
	case errors.Is(err, categorydomain.ErrInvalidCompany),
		errors.Is(err, categorydomain.ErrInvalidName):
		return true
	case errors.Is(err, statementdomain.ErrInvalidCompany),
		errors.Is(err, statementdomain.ErrInvalidID),
		errors.Is(err, statementdomain.ErrNoRows),
		errors.Is(err, statementdomain.ErrTooManyRows):
		return true
	case errors.Is(err, revenuedomain.ErrInvalidCompany),
		errors.Is(err, revenuedomain.ErrInvalidID),
		errors.Is(err, revenuedomain.ErrNoRows),
		errors.Is(err, revenuedomain.ErrTooManyRows):
		return true
	case errors.Is(err, ledgerdomain.ErrInvalidCompany),
		errors.Is(err, ledgerdomain.ErrInvalidCustomer),
		errors.Is(err, ledgerdomain.ErrInvalidLineType):
		return true
	case errors.Is(err, suggestdomain.ErrInvalidCompany):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, companydomain.ErrNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, statementdomain.ErrNotFound),
		errors.Is(err, revenuedomain.ErrNotFound),
		errors.Is(err, ledgerdomain.ErrCustomerMissing),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, companydomain.ErrSlugTaken),
		errors.Is(err, statementdomain.ErrUploadProcessed),
		errors.Is(err, revenuedomain.ErrUploadProcessed):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, statementdomain.ErrUploadProcessed),
		errors.Is(err, revenuedomain.ErrUploadProcessed):
		return "upload already processed"
	case errors.Is(err, companydomain.ErrSlugTaken):
		return "slug already taken"
	default:
		return "conflict"
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}

// classifyErrorForLog buckets handler errors for the request log without
// leaking message details.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error", payload.Type
	case status == http.StatusTooManyRequests:
		return "rate_limited", payload.Type
	default:
		return "client_error", payload.Type
	}
}
