package service

type State string

const (
	StateAddressPending         State = "ADDRESS_PENDING"
	StateAddressChosen          State = "ADDRESS_CHOSEN"
	StateShippingComputed       State = "SHIPPING_COMPUTED"
	StatePaymentChosen          State = "PAYMENT_CHOSEN"
	StateSubmitting             State = "SUBMITTING"
	StateOrderPlaced            State = "ORDER_PLACED"
	StatePaymentRedirectPending State = "PAYMENT_REDIRECT_PENDING"
	StateFailed                 State = "FAILED"
)

type PaymentMethod string

const (
	CashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
	HostedPayment  PaymentMethod = "HOSTED_PAYMENT"
)

func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch m := PaymentMethod(s); m {
	case CashOnDelivery, HostedPayment:
		return m, true
	}
	return "", false
}
