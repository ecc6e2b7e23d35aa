package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	commonErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
)

func statusFromError(err error) int {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs),
		errors.Is(err, commonErrors.ErrInvalidQuantity),
		errors.Is(err, commonErrors.ErrAddressRequired),
		errors.Is(err, commonErrors.ErrPaymentMethodRequired),
		errors.Is(err, commonErrors.ErrEmptySelection),
		errors.Is(err, commonErrors.ErrInvalidPaymentMethod):
		return http.StatusBadRequest
	case errors.Is(err, commonErrors.ErrEmptyAuth),
		errors.Is(err, commonErrors.ErrTokenInvalid),
		errors.Is(err, commonErrors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, commonErrors.ErrCartItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, commonErrors.ErrShippingPending),
		errors.Is(err, commonErrors.ErrNoPendingPayment):
		return http.StatusConflict
	case errors.Is(err, commonErrors.ErrRequestFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeError(c context.Context, w http.ResponseWriter, err error) {
	inHttp.WriteErrorResponse(c, w, statusFromError(err), err)
}

func writeBadRequest(c context.Context, w http.ResponseWriter, err error) {
	inHttp.WriteErrorResponse(c, w, http.StatusBadRequest, err)
}

func writeSuccess(c context.Context, w http.ResponseWriter, message string, data map[string]interface{}) {
	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     inHttp.StatusSuccess,
		"statusCode": http.StatusOK,
		"message":    message,
		"data":       data,
	})
}
