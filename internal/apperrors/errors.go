package apperrors

import (
	"errors"
	"net/http"
)

// Error is a business error with a stable numeric code. Codes are part of the
// API contract and are shared with the other café services.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrProductNotFound           = &Error{Code: 1007, Message: "product not found"}
	ErrProductOutOfStock         = &Error{Code: 1008, Message: "product does not have enough quantity"}
	ErrProductServiceUnavailable = &Error{Code: 1009, Message: "product service is not available"}
	ErrProductResponseInvalid    = &Error{Code: 1009, Message: "product service returned a malformed response"}
	ErrTableNotFound             = &Error{Code: 1010, Message: "table not found"}
	ErrPaymentMethodNotFound     = &Error{Code: 1011, Message: "payment method not found"}
	ErrOrderItemsEmpty           = &Error{Code: 1012, Message: "order must contain at least one product"}
	ErrOrderNotFound             = &Error{Code: 1013, Message: "order not found"}
	ErrOrderStatusInvalid        = &Error{Code: 1014, Message: "order status is invalid"}
	ErrOrderAlreadyClosed        = &Error{Code: 1015, Message: "order has been closed"}
	ErrOrderItemNotFound         = &Error{Code: 1016, Message: "order item not found"}
)

// CodeOf extracts the business code from err, or 9999 for unclassified errors.
func CodeOf(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return 9999
}

// HTTPStatus maps a business error to the HTTP status the gateway expects.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrOrderItemsEmpty),
		errors.Is(err, ErrOrderStatusInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrTableNotFound),
		errors.Is(err, ErrPaymentMethodNotFound),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrOrderItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrProductOutOfStock),
		errors.Is(err, ErrOrderAlreadyClosed):
		return http.StatusConflict
	case errors.Is(err, ErrProductServiceUnavailable),
		errors.Is(err, ErrProductResponseInvalid):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
