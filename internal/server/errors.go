package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	fxdomain "github.com/mcofie/itinero-web-sub003/internal/fxrate/domain"
	ledgerdomain "github.com/mcofie/itinero-web-sub003/internal/ledger/domain"
	paymentdomain "github.com/mcofie/itinero-web-sub003/internal/payment/domain"
	"github.com/mcofie/itinero-web-sub003/internal/publicid"
	quotedomain "github.com/mcofie/itinero-web-sub003/internal/quote/domain"
	tripdomain "github.com/mcofie/itinero-web-sub003/internal/trip/domain"
	"github.com/mcofie/itinero-web-sub003/pkg/db/pagination"
)

// apiError is the wire shape of every non-2xx response.
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *apiError) Error() string { return e.Code + ": " + e.Message }

var (
	ErrUnauthorized = &apiError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "authentication required"}
	ErrForbidden    = &apiError{Status: http.StatusForbidden, Code: "forbidden", Message: "access denied"}
	ErrNotFound     = &apiError{Status: http.StatusNotFound, Code: "not_found", Message: "resource not found"}
	ErrRateLimited  = &apiError{Status: http.StatusTooManyRequests, Code: "rate_limited", Message: "too many requests"}
)

func invalidRequestError() *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "malformed request body"}
}

func newValidationError(field, code, message string) *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: code, Field: field, Message: message}
}

// AbortWithError maps domain errors onto HTTP responses. Unrecognized
// errors become a 500 without leaking internals.
func AbortWithError(c *gin.Context, err error) {
	var typed *apiError
	if errors.As(err, &typed) {
		c.AbortWithStatusJSON(typed.Status, gin.H{"error": typed})
		return
	}

	mapped := mapDomainError(err)
	c.AbortWithStatusJSON(mapped.Status, gin.H{"error": mapped})
}

func mapDomainError(err error) *apiError {
	switch {
	case errors.Is(err, quotedomain.ErrNotFound),
		errors.Is(err, tripdomain.ErrNotFound),
		errors.Is(err, fxdomain.ErrSnapshotNotFound):
		return ErrNotFound
	case errors.Is(err, quotedomain.ErrForbidden),
		errors.Is(err, tripdomain.ErrForbidden):
		return ErrForbidden
	case errors.Is(err, quotedomain.ErrInvalidPoints):
		return newValidationError("points", "invalid_points", "points must be a positive integer")
	case errors.Is(err, quotedomain.ErrInvalidCurrency),
		errors.Is(err, fxdomain.ErrInvalidCurrency):
		return newValidationError("currency", "invalid_currency", "unsupported currency code")
	case errors.Is(err, quotedomain.ErrExpired):
		return &apiError{Status: http.StatusConflict, Code: "quote_expired", Message: "quote has expired, request a new one"}
	case errors.Is(err, quotedomain.ErrAlreadyPaid):
		return &apiError{Status: http.StatusConflict, Code: "quote_already_paid", Message: "quote is already settled"}
	case errors.Is(err, fxdomain.ErrUnknownCurrency):
		return newValidationError("currency", "unknown_currency", "currency not present in the rate snapshot")
	case errors.Is(err, ledgerdomain.ErrInvalidReference):
		return newValidationError("reference", "invalid_reference", "reference is required")
	case errors.Is(err, pagination.ErrInvalidPageToken):
		return newValidationError("page_token", "invalid_page_token", "malformed page token")
	case errors.Is(err, publicid.ErrAllocationExhausted):
		return &apiError{Status: http.StatusServiceUnavailable, Code: "allocation_exhausted", Message: "could not allocate a public id, retry shortly"}
	case errors.Is(err, paymentdomain.ErrProviderUnavailable),
		errors.Is(err, fxdomain.ErrProviderUnavailable):
		return &apiError{Status: http.StatusBadGateway, Code: "provider_unavailable", Message: "upstream provider is unavailable, retry shortly"}
	case errors.Is(err, paymentdomain.ErrProviderNotFound):
		return ErrNotFound
	default:
		return &apiError{Status: http.StatusInternalServerError, Code: "internal_error", Message: "internal server error"}
	}
}
