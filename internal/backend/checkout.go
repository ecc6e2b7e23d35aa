package backend

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/checkout/pkg/request"
	"github.com/Alturino/storefront/checkout/pkg/response"
	orderRequest "github.com/Alturino/storefront/order/pkg/request"
	orderResponse "github.com/Alturino/storefront/order/pkg/response"
)

type ShippingClient struct {
	client *Client
}

func NewShippingClient(client *Client) *ShippingClient {
	return &ShippingClient{client: client}
}

func (sc *ShippingClient) CalculateShipping(c context.Context, addressID int64, productIDs []int64) (decimal.Decimal, error) {
	shipping, err := do[response.Shipping](
		c,
		sc.client,
		http.MethodPost,
		"/shipping/calculate",
		request.CalculateShipping{AddressID: addressID, ProductIDs: productIDs},
	)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return shipping.ShippingCost, nil
}

type OrderClient struct {
	client *Client
}

func NewOrderClient(client *Client) *OrderClient {
	return &OrderClient{client: client}
}

func (oc *OrderClient) PlaceOrderCOD(c context.Context, req orderRequest.PlaceOrderCOD) error {
	_, err := do[json.RawMessage](c, oc.client, http.MethodPost, "/orders/cod", req)
	return err
}

func (oc *OrderClient) PlaceOrderHostedPayment(
	c context.Context,
	req orderRequest.PlaceOrderHostedPayment,
) (orderResponse.CheckoutPayload, error) {
	hosted, err := do[orderResponse.HostedPayment](c, oc.client, http.MethodPost, "/orders/hosted-payment", req)
	if err != nil {
		return orderResponse.CheckoutPayload{}, err
	}
	return hosted.Checkout, nil
}
