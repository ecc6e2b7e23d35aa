package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/response"
)

// CartClient is the server-side cart of the authenticated visitor.
type CartClient struct {
	client *Client
}

func NewCartClient(client *Client) *CartClient {
	return &CartClient{client: client}
}

func (cc *CartClient) ListItems(c context.Context) ([]response.LineItem, error) {
	items, err := do[[]response.LineItem](c, cc.client, http.MethodGet, "/cart/items", nil)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []response.LineItem{}
	}
	return items, nil
}

func (cc *CartClient) AddItem(c context.Context, productID int64, quantity int) (response.LineItem, error) {
	return do[response.LineItem](
		c,
		cc.client,
		http.MethodPost,
		"/cart/items",
		request.AddItem{ProductID: productID, Quantity: quantity},
	)
}

func (cc *CartClient) UpdateItem(c context.Context, productID int64, quantity int) (response.LineItem, error) {
	return do[response.LineItem](
		c,
		cc.client,
		http.MethodPut,
		fmt.Sprintf("/cart/items/%d", productID),
		request.UpdateItem{ProductID: productID, Quantity: quantity},
	)
}

func (cc *CartClient) RemoveItem(c context.Context, productID int64) error {
	_, err := do[json.RawMessage](c, cc.client, http.MethodDelete, fmt.Sprintf("/cart/items/%d", productID), nil)
	return err
}

func (cc *CartClient) SyncItems(c context.Context, items []request.SyncItem) ([]response.LineItem, error) {
	merged, err := do[[]response.LineItem](c, cc.client, http.MethodPost, "/cart/sync", request.SyncItems{Items: items})
	if err != nil {
		return nil, err
	}
	if merged == nil {
		merged = []response.LineItem{}
	}
	return merged, nil
}
