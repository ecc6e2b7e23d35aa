package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Alturino/storefront/product/pkg/response"
)

type ProductClient struct {
	client *Client
}

func NewProductClient(client *Client) *ProductClient {
	return &ProductClient{client: client}
}

func (pc *ProductClient) GetProduct(c context.Context, productID int64) (response.Product, error) {
	return do[response.Product](c, pc.client, http.MethodGet, fmt.Sprintf("/products/%d", productID), nil)
}
