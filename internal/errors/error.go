package errors

import (
	"errors"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrEmptyAuth    = errors.New("missing authorization")
	ErrTokenInvalid = errors.New("invalid token")
	ErrUnauthorized = errors.New("unauthorized")

	ErrRequestFailed       = errors.New("request failed")
	ErrInvalidQuantity     = errors.New("quantity must be between 1 and 9999")
	ErrCartItemNotFound    = errors.New("cart item not found")
	ErrLocalCartNotCleared = errors.New("local cart was synced but could not be cleared")

	ErrAddressRequired       = errors.New("select address")
	ErrPaymentMethodRequired = errors.New("select payment method")
	ErrEmptySelection        = errors.New("select at least one product")
	ErrInvalidPaymentMethod  = errors.New("unknown payment method")
	ErrShippingPending       = errors.New("shipping cost is being calculated")
	ErrNoPendingPayment      = errors.New("no hosted payment is pending")
)

func HandleError(err error, span trace.Span) {
	if err == nil {
		return
	}
	span.AddEvent(err.Error())
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
}
