package request

type PlaceOrderCOD struct {
	AddressID  int64   `validate:"required,gt=0"             json:"addressId"`
	ProductIDs []int64 `validate:"required,min=1,dive,gt=0" json:"productIds"`
}

type PlaceOrderHostedPayment struct {
	AddressID  int64   `validate:"required,gt=0"             json:"addressId"`
	ProductIDs []int64 `validate:"required,min=1,dive,gt=0" json:"productIds"`
	ReturnURL  string  `validate:"required,url"              json:"returnUrl"`
	CancelURL  string  `validate:"required,url"              json:"cancelUrl"`
}
