package response

import (
	"github.com/shopspring/decimal"
)

// CheckoutPayload is what the payment provider needs to show the buyer: a hosted checkout
// link, a transfer QR code and the bank details behind it.
type CheckoutPayload struct {
	PaymentLinkID string          `json:"paymentLinkId"`
	CheckoutURL   string          `json:"checkoutUrl"`
	QRCode        string          `json:"qrCode"`
	Bin           string          `json:"bin"`
	AccountNumber string          `json:"accountNumber"`
	AccountName   string          `json:"accountName"`
	Description   string          `json:"description"`
	OrderCode     int64           `json:"orderCode"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
}

type HostedPayment struct {
	Checkout CheckoutPayload `json:"checkout"`
}
