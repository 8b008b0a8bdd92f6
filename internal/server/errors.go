package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	clientdomain "github.com/smallbiznis/tradeledger/internal/client/domain"
	debtdomain "github.com/smallbiznis/tradeledger/internal/debt/domain"
	invoicedomain "github.com/smallbiznis/tradeledger/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/tradeledger/internal/ledger/domain"
	supplierdomain "github.com/smallbiznis/tradeledger/internal/supplier/domain"
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
	ErrInternal          = errors.New("internal_error")
	ErrNotFound          = errors.New("not_found")
	ErrInvalidRequest    = errors.New("invalid_request")
	ErrRateLimited       = errors.New("rate_limited")
	ErrInvoiceInProgress = errors.New("invoice_in_progress")
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
		Errors: []ValidationError{{Field: field, Code: code, Message: message}},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var itemErr *invoicedomain.ItemError
	if errors.As(err, &itemErr) {
		code := itemErr.Err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  []ValidationError{{Field: itemErr.Field(), Code: code, Message: validationErrorMessage(code)}},
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  []ValidationError{{Field: validationErrorField(code), Code: code, Message: validationErrorMessage(code)}},
		}
	}

	switch {
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{Type: "rate_limited", Message: "too many requests"}
	case errors.Is(err, ErrInvoiceInProgress):
		return http.StatusConflict, errorPayload{Type: "conflict", Message: "invoice is already being created"}
	case errors.Is(err, invoicedomain.ErrDuplicateInvoiceNumber):
		return http.StatusConflict, errorPayload{Type: "conflict", Message: "invoice number already exists"}
	case errors.Is(err, invoicedomain.ErrClientNotFound), errors.Is(err, clientdomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "client not found"}
	case errors.Is(err, invoicedomain.ErrSupplierNotFound), errors.Is(err, supplierdomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "supplier not found"}
	case errors.Is(err, invoicedomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "invoice not found"}
	case errors.Is(err, ledgerdomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "transaction not found"}
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "not found"}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidRequest,
		clientdomain.ErrInvalidName,
		clientdomain.ErrInvalidMarkup,
		clientdomain.ErrInvalidID,
		supplierdomain.ErrInvalidName,
		supplierdomain.ErrInvalidID,
		invoicedomain.ErrInvalidInvoiceNumber,
		invoicedomain.ErrInvalidDate,
		invoicedomain.ErrInvalidClient,
		invoicedomain.ErrInvalidSupplier,
		invoicedomain.ErrNoItems,
		invoicedomain.ErrInvalidID,
		ledgerdomain.ErrInvalidID,
		debtdomain.ErrInvalidDebtType,
		debtdomain.ErrInvalidID,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	return strings.TrimPrefix(code, "invalid_")
}

var validationMessages = map[string]string{
	"invalid_request":           "invalid request",
	"invalid_name":              "name is required",
	"invalid_markup_percentage": "markup percentage must be zero or greater",
	"invalid_invoice_number":    "invoice number is required",
	"invalid_date":              "date is required",
	"invalid_client_id":         "client is required",
	"invalid_supplier_id":       "supplier is required",
	"invalid_items":             "at least one item is required",
	"invalid_material_name":     "material name is required",
	"invalid_quantity":          "quantity must be greater than zero",
	"invalid_unit_price":        "unit price must be greater than zero",
	"invalid_unit":              "unit is not allowed",
	"invalid_debt_type":         "debt type must be client or supplier",
}

func validationErrorMessage(code string) string {
	if msg, ok := validationMessages[code]; ok {
		return msg
	}
	return "invalid value"
}

// classifyErrorForLog reports the envelope type and code an error maps to.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}
