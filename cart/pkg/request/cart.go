package request

// MaxQuantity caps one line of the cart. Keep the lte tags below in sync.
const MaxQuantity = 9999

type AddItem struct {
	ProductID int64 `validate:"required,gt=0"  json:"productId"`
	Quantity  int   `validate:"required,gte=1,lte=9999" json:"quantity"`
}

type UpdateItem struct {
	ProductID int64 `validate:"required,gt=0"  json:"productId"`
	Quantity  int   `validate:"required,gte=1,lte=9999" json:"quantity"`
}

type SyncItem struct {
	ProductID int64 `validate:"required,gt=0"  json:"productId"`
	Quantity  int   `validate:"required,gte=1,lte=9999" json:"quantity"`
}

type SyncItems struct {
	Items []SyncItem `validate:"required,min=1,dive" json:"items"`
}

type Select struct {
	Selected *bool `validate:"required" json:"selected"`
}

// UpdateQuantity is the body of a quantity change. Values below one are accepted and ignored
// by the cart.
type UpdateQuantity struct {
	Quantity int `json:"quantity"`
}
