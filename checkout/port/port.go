package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/cart/pkg/response"
	orderRequest "github.com/Alturino/storefront/order/pkg/request"
	orderResponse "github.com/Alturino/storefront/order/pkg/response"
)

type ShippingCalculator interface {
	CalculateShipping(c context.Context, addressID int64, productIDs []int64) (decimal.Decimal, error)
}

type OrderPlacer interface {
	PlaceOrderCOD(c context.Context, req orderRequest.PlaceOrderCOD) error
	PlaceOrderHostedPayment(
		c context.Context,
		req orderRequest.PlaceOrderHostedPayment,
	) (orderResponse.CheckoutPayload, error)
}

// PaymentPresenter shows the hosted checkout artifact (redirect, QR code, bank details).
type PaymentPresenter interface {
	Present(c context.Context, payload orderResponse.CheckoutPayload) error
}

// Cart is the part of the cart store checkout reads from. Checkout never mutates the cart
// except by asking it to reload.
type Cart interface {
	SelectedProductIDs() []int64
	Totals() response.Totals
	Reload(c context.Context) error
	Subscribe(fn func()) (unsubscribe func())
}
