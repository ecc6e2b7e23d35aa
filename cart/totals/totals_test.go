package totals

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Alturino/storefront/cart/pkg/response"
)

func lineItem(productID int64, quantity int, discountPrice int64) response.LineItem {
	return response.LineItem{
		ProductID:     productID,
		Quantity:      quantity,
		Price:         decimal.NewFromInt(discountPrice),
		DiscountPrice: decimal.NewFromInt(discountPrice),
	}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name     string
		items    []response.LineItem
		selected map[int64]struct{}
		expected response.Totals
	}{
		{
			name:     "given empty cart should return zero totals",
			items:    nil,
			selected: map[int64]struct{}{},
			expected: response.Totals{TotalAmount: decimal.Zero, SelectedAmount: decimal.Zero},
		},
		{
			name:     "given all items selected should return equal totals",
			items:    []response.LineItem{lineItem(1, 2, 100), lineItem(2, 1, 50)},
			selected: map[int64]struct{}{1: {}, 2: {}},
			expected: response.Totals{
				TotalItemCount:    3,
				TotalAmount:       decimal.NewFromInt(250),
				SelectedItemCount: 3,
				SelectedAmount:    decimal.NewFromInt(250),
			},
		},
		{
			name:     "given only first item selected should restrict selected totals",
			items:    []response.LineItem{lineItem(1, 2, 100), lineItem(2, 1, 50)},
			selected: map[int64]struct{}{1: {}},
			expected: response.Totals{
				TotalItemCount:    3,
				TotalAmount:       decimal.NewFromInt(250),
				SelectedItemCount: 2,
				SelectedAmount:    decimal.NewFromInt(200),
			},
		},
		{
			name:     "given selection of unknown product should ignore it",
			items:    []response.LineItem{lineItem(1, 1, 10)},
			selected: map[int64]struct{}{99: {}},
			expected: response.Totals{
				TotalItemCount:    1,
				TotalAmount:       decimal.NewFromInt(10),
				SelectedItemCount: 0,
				SelectedAmount:    decimal.Zero,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := Compute(tt.items, tt.selected)
			assert.Equal(t, tt.expected.TotalItemCount, actual.TotalItemCount)
			assert.Equal(t, tt.expected.SelectedItemCount, actual.SelectedItemCount)
			assert.True(t, tt.expected.TotalAmount.Equal(actual.TotalAmount), "totalAmount=%s", actual.TotalAmount)
			assert.True(t, tt.expected.SelectedAmount.Equal(actual.SelectedAmount), "selectedAmount=%s", actual.SelectedAmount)
		})
	}
}

func TestPayable(t *testing.T) {
	items := []response.LineItem{lineItem(1, 2, 100), lineItem(2, 1, 50)}
	totals := Compute(items, map[int64]struct{}{1: {}, 2: {}})

	actual := Payable(totals.SelectedAmount, decimal.NewFromInt(20))

	assert.True(t, decimal.NewFromInt(270).Equal(actual), "payable=%s", actual)
}
