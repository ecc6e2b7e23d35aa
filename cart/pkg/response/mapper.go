package response

import (
	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/cart/pkg/request"
	productResponse "github.com/Alturino/storefront/product/pkg/response"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// DiscountPrice returns price * (1 - percent/100) with percent clamped to [0, 100].
func DiscountPrice(price decimal.Decimal, percent decimal.Decimal) decimal.Decimal {
	if percent.IsNegative() {
		percent = decimal.Zero
	}
	if percent.GreaterThan(hundred) {
		percent = hundred
	}
	return price.Mul(one.Sub(percent.Div(hundred)))
}

func NewLineItem(productID int64, p productResponse.Product, quantity int) LineItem {
	return LineItem{
		ProductID:       productID,
		Name:            p.Name,
		MainImage:       p.MainImage,
		Quantity:        quantity,
		Price:           p.Price,
		DiscountPercent: p.DiscountPercent,
		DiscountPrice:   DiscountPrice(p.Price, p.DiscountPercent),
	}
}

func (l LineItem) Subtotal() decimal.Decimal {
	return l.DiscountPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l LineItem) SyncItem() request.SyncItem {
	return request.SyncItem{ProductID: l.ProductID, Quantity: l.Quantity}
}
