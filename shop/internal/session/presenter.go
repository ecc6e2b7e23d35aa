package session

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/log"
	orderResponse "github.com/Alturino/storefront/order/pkg/response"
)

// LogPresenter records the hosted checkout. The browser gets the payload in the submit response.
type LogPresenter struct{}

func (LogPresenter) Present(c context.Context, payload orderResponse.CheckoutPayload) error {
	zerolog.Ctx(c).Info().
		Str(log.KeyTag, "LogPresenter Present").
		Str("paymentLinkId", payload.PaymentLinkID).
		Str("checkoutUrl", payload.CheckoutURL).
		Int64("orderCode", payload.OrderCode).
		Msg("presenting hosted payment")
	return nil
}
