package store

import (
	"context"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/cart/local"
	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/response"
	commonErrors "github.com/Alturino/storefront/internal/errors"
	productResponse "github.com/Alturino/storefront/product/pkg/response"
)

type fakeAuth struct {
	authenticated atomic.Bool
}

func (f *fakeAuth) IsAuthenticated(context.Context) bool { return f.authenticated.Load() }

type fakeProducts struct {
	calls atomic.Int32
	fail  bool
}

func product(productID int64) productResponse.Product {
	return productResponse.Product{
		ID:              productID,
		Name:            "product",
		MainImage:       "https://cdn.example.com/p.png",
		Price:           decimal.NewFromInt(productID * 100),
		DiscountPercent: decimal.Zero,
	}
}

func (f *fakeProducts) GetProduct(_ context.Context, productID int64) (productResponse.Product, error) {
	f.calls.Add(1)
	if f.fail {
		return productResponse.Product{}, commonErrors.ErrRequestFailed
	}
	return product(productID), nil
}

type discountProducts struct{}

func (discountProducts) GetProduct(_ context.Context, productID int64) (productResponse.Product, error) {
	return productResponse.Product{
		ID:              productID,
		Name:            "discounted",
		Price:           decimal.NewFromInt(400),
		DiscountPercent: decimal.NewFromInt(10),
	}, nil
}

// fakeRemote mimics the backend cart: adds merge by product id and sync merges a batch.
type fakeRemote struct {
	mu    sync.Mutex
	items []response.LineItem
	calls atomic.Int32
	fail  bool

	// listHook runs after ListItems took its snapshot and receives the call number.
	listHook  func(call int32)
	listCalls atomic.Int32
}

func (f *fakeRemote) snapshot() []response.LineItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.items)
}

func (f *fakeRemote) ListItems(context.Context) ([]response.LineItem, error) {
	call := f.listCalls.Add(1)
	f.calls.Add(1)
	items := f.snapshot()
	if f.listHook != nil {
		f.listHook(call)
	}
	if f.fail {
		return nil, commonErrors.ErrRequestFailed
	}
	return items, nil
}

func (f *fakeRemote) add(productID int64, quantity int) response.LineItem {
	for i := range f.items {
		if f.items[i].ProductID == productID {
			f.items[i].Quantity += quantity
			return f.items[i]
		}
	}
	item := response.NewLineItem(productID, product(productID), quantity)
	f.items = append(f.items, item)
	return item
}

func (f *fakeRemote) AddItem(_ context.Context, productID int64, quantity int) (response.LineItem, error) {
	f.calls.Add(1)
	if f.fail {
		return response.LineItem{}, commonErrors.ErrRequestFailed
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.add(productID, quantity), nil
}

func (f *fakeRemote) UpdateItem(_ context.Context, productID int64, quantity int) (response.LineItem, error) {
	f.calls.Add(1)
	if f.fail {
		return response.LineItem{}, commonErrors.ErrRequestFailed
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ProductID == productID {
			f.items[i].Quantity = quantity
			return f.items[i], nil
		}
	}
	return response.LineItem{}, commonErrors.ErrRequestFailed
}

func (f *fakeRemote) RemoveItem(_ context.Context, productID int64) error {
	f.calls.Add(1)
	if f.fail {
		return commonErrors.ErrRequestFailed
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = slices.DeleteFunc(f.items, func(item response.LineItem) bool {
		return item.ProductID == productID
	})
	return nil
}

func (f *fakeRemote) SyncItems(_ context.Context, items []request.SyncItem) ([]response.LineItem, error) {
	f.calls.Add(1)
	if f.fail {
		return nil, commonErrors.ErrRequestFailed
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range items {
		f.add(item.ProductID, item.Quantity)
	}
	return slices.Clone(f.items), nil
}

type fixture struct {
	store    *Store
	remote   *fakeRemote
	local    *local.MemoryCart
	products *fakeProducts
	auth     *fakeAuth
}

func newFixture(opts ...Option) fixture {
	f := fixture{
		remote:   &fakeRemote{},
		local:    local.NewMemoryCart(),
		products: &fakeProducts{},
		auth:     &fakeAuth{},
	}
	f.store = NewStore(f.remote, f.local, f.products, f.auth, opts...)
	return f
}

func (f fixture) networkCalls() int32 {
	return f.remote.calls.Load() + f.products.calls.Load()
}

func testContext() context.Context {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339Nano}).
		WithContext(context.Background())
}

func ids(items []response.LineItem) []int64 {
	out := make([]int64, 0, len(items))
	for _, item := range items {
		out = append(out, item.ProductID)
	}
	return out
}

func assertInvariants(t *testing.T, cart response.Cart) {
	t.Helper()
	seen := map[int64]struct{}{}
	for _, item := range cart.Items {
		if _, ok := seen[item.ProductID]; ok {
			t.Fatalf("product %d appears twice in cart", item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
		if item.Quantity < 1 || item.Quantity > request.MaxQuantity {
			t.Fatalf("product %d has quantity %d", item.ProductID, item.Quantity)
		}
	}
	for _, id := range cart.SelectedProductIDs {
		if _, ok := seen[id]; !ok {
			t.Fatalf("selected product %d is not in cart", id)
		}
	}
}
