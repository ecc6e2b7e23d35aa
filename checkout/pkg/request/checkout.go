package request

type CalculateShipping struct {
	AddressID  int64   `validate:"required,gt=0"             json:"addressId"`
	ProductIDs []int64 `validate:"required,min=1,dive,gt=0" json:"productIds"`
}

type SelectAddress struct {
	AddressID int64 `validate:"required,gt=0" json:"addressId"`
}

type SelectPaymentMethod struct {
	PaymentMethod string `validate:"required,oneof=CASH_ON_DELIVERY HOSTED_PAYMENT" json:"paymentMethod"`
}
