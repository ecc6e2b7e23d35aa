package response

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	productResponse "github.com/Alturino/storefront/product/pkg/response"
)

func TestDiscountPrice(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		percent  string
		expected string
	}{
		{name: "no discount", price: "100", percent: "0", expected: "100"},
		{name: "quarter off", price: "200", percent: "25", expected: "150"},
		{name: "fractional percent", price: "99.90", percent: "12.5", expected: "87.4125"},
		{name: "negative percent clamps to zero", price: "50", percent: "-10", expected: "50"},
		{name: "percent over hundred clamps to free", price: "50", percent: "150", expected: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := DiscountPrice(decimal.RequireFromString(tt.price), decimal.RequireFromString(tt.percent))
			assert.True(t, decimal.RequireFromString(tt.expected).Equal(actual), "actual=%s", actual)
		})
	}
}

func TestNewLineItem(t *testing.T) {
	product := productResponse.Product{
		ID:              7,
		Name:            "Linen shirt",
		MainImage:       "https://cdn.example.com/linen.jpg",
		Price:           decimal.NewFromInt(400),
		DiscountPercent: decimal.NewFromInt(10),
	}

	actual := NewLineItem(7, product, 3)

	assert.Equal(t, int64(7), actual.ProductID)
	assert.Equal(t, "Linen shirt", actual.Name)
	assert.Equal(t, 3, actual.Quantity)
	assert.True(t, decimal.NewFromInt(360).Equal(actual.DiscountPrice))
	assert.True(t, decimal.NewFromInt(1080).Equal(actual.Subtotal()))
	assert.Equal(t, int64(7), actual.SyncItem().ProductID)
	assert.Equal(t, 3, actual.SyncItem().Quantity)
}
