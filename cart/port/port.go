// Package port declares the collaborators the cart engine depends on. Implementations live
// in internal/backend (REST), cart/local (visitor-local storage) and internal/auth.
package port

import (
	"context"

	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/response"
	productResponse "github.com/Alturino/storefront/product/pkg/response"
)

// RemoteCart is the server-side cart of the authenticated user.
type RemoteCart interface {
	ListItems(c context.Context) ([]response.LineItem, error)
	AddItem(c context.Context, productID int64, quantity int) (response.LineItem, error)
	UpdateItem(c context.Context, productID int64, quantity int) (response.LineItem, error)
	RemoveItem(c context.Context, productID int64) error
	// SyncItems merges items into the server cart and returns the resulting cart.
	SyncItems(c context.Context, items []request.SyncItem) ([]response.LineItem, error)
}

type ProductLookup interface {
	GetProduct(c context.Context, productID int64) (productResponse.Product, error)
}

// LocalCart persists the anonymous cart under a single fixed key.
type LocalCart interface {
	Load(c context.Context) ([]response.LineItem, error)
	Save(c context.Context, items []response.LineItem) error
	Clear(c context.Context) error
}

type AuthState interface {
	IsAuthenticated(c context.Context) bool
}
