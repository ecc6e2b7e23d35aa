package response

import (
	"github.com/shopspring/decimal"

	orderResponse "github.com/Alturino/storefront/order/pkg/response"
)

type Shipping struct {
	ShippingCost decimal.Decimal `json:"shippingCost"`
}

// Result is the outcome of a successful submission. Redirect is set for cash on delivery,
// Payload for hosted payment.
type Result struct {
	Status   string                         `json:"status"`
	Redirect string                         `json:"redirect,omitempty"`
	Payload  *orderResponse.CheckoutPayload `json:"payload,omitempty"`
}

type Session struct {
	State              string                         `json:"state"`
	AddressID          int64                          `json:"addressId,omitempty"`
	PaymentMethod      string                         `json:"paymentMethod,omitempty"`
	ShippingCost       *decimal.Decimal               `json:"shippingCost,omitempty"`
	ShippingPending    bool                           `json:"shippingPending"`
	ShippingStale      bool                           `json:"shippingStale"`
	SelectedProductIDs []int64                        `json:"selectedProductIds"`
	SelectedAmount     decimal.Decimal                `json:"selectedAmount"`
	Total              decimal.Decimal                `json:"total"`
	CanSubmit          bool                           `json:"canSubmit"`
	LastError          string                         `json:"lastError,omitempty"`
	Payload            *orderResponse.CheckoutPayload `json:"payload,omitempty"`
}
