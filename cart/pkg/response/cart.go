package response

import (
	"github.com/shopspring/decimal"
)

// LineItem is one product in the cart. Name, MainImage and the prices are a snapshot taken
// when the line was added or last reloaded and may lag behind the catalog.
type LineItem struct {
	ProductID       int64           `json:"productId"`
	Name            string          `json:"name"`
	MainImage       string          `json:"mainImage"`
	Quantity        int             `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	DiscountPrice   decimal.Decimal `json:"discountPrice"`
}

type Totals struct {
	TotalItemCount    int             `json:"totalItemCount"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	SelectedItemCount int             `json:"selectedItemCount"`
	SelectedAmount    decimal.Decimal `json:"selectedAmount"`
}

type Cart struct {
	Items              []LineItem `json:"items"`
	SelectedProductIDs []int64    `json:"selectedProductIds"`
	IsLoading          bool       `json:"isLoading"`
	Totals             Totals     `json:"totals"`
}
