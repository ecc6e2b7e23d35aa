package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/cart/local"
	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/cart/port"
	checkoutRequest "github.com/Alturino/storefront/checkout/pkg/request"
	checkoutResponse "github.com/Alturino/storefront/checkout/pkg/response"
	"github.com/Alturino/storefront/internal/auth"
	"github.com/Alturino/storefront/internal/backend"
	"github.com/Alturino/storefront/internal/config"
	orderRequest "github.com/Alturino/storefront/order/pkg/request"
	orderResponse "github.com/Alturino/storefront/order/pkg/response"
	"github.com/Alturino/storefront/shop/internal/session"
)

var testApplication = config.Application{
	SecretKey: "storefront-test-secret",
	Issuer:    "storefront-backend",
	Audience:  "storefront",
}

var testCheckout = config.Checkout{
	ReturnURL:    "https://shop.example.com/checkout/payment/return",
	CancelURL:    "https://shop.example.com/checkout/payment/cancel",
	OrderListURL: "/orders",
}

func testLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339Nano})
}

func signToken(t *testing.T, secret string) string {
	t.Helper()
	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-42",
		Issuer:    testApplication.Issuer,
		Audience:  jwt.ClaimStrings{testApplication.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

// fakeBackend is an in-memory storefront backend holding one account cart.
type fakeBackend struct {
	t *testing.T

	mu           sync.Mutex
	items        []response.LineItem
	synced       []request.SyncItem
	codOrders    []orderRequest.PlaceOrderCOD
	hostedOrders []orderRequest.PlaceOrderHostedPayment
	shippingFor  [][]int64
}

func (b *fakeBackend) product(id int64) response.LineItem {
	price := decimal.NewFromInt(id * 100)
	return response.LineItem{
		ProductID:       id,
		Name:            "product " + strconv.FormatInt(id, 10),
		Price:           price,
		DiscountPercent: decimal.Zero,
		DiscountPrice:   price,
	}
}

func (b *fakeBackend) add(id int64, quantity int) response.LineItem {
	for i := range b.items {
		if b.items[i].ProductID == id {
			b.items[i].Quantity += quantity
			return b.items[i]
		}
	}
	line := b.product(id)
	line.Quantity = quantity
	b.items = append(b.items, line)
	return line
}

func (b *fakeBackend) remove(ids ...int64) {
	kept := b.items[:0]
	for _, item := range b.items {
		drop := false
		for _, id := range ids {
			drop = drop || item.ProductID == id
		}
		if !drop {
			kept = append(kept, item)
		}
	}
	b.items = kept
}

func (b *fakeBackend) snapshot() []response.LineItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]response.LineItem{}, b.items...)
}

func (b *fakeBackend) write(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	status := "success"
	if statusCode >= 300 {
		status = "failed"
	}
	err := json.NewEncoder(w).Encode(map[string]any{
		"status":     status,
		"statusCode": statusCode,
		"message":    http.StatusText(statusCode),
		"data":       data,
	})
	require.NoError(b.t, err)
}

func (b *fakeBackend) decode(r *http.Request, v any) {
	require.NoError(b.t, json.NewDecoder(r.Body).Decode(v))
}

func (b *fakeBackend) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") == "" {
		b.write(w, http.StatusUnauthorized, nil)
		return false
	}
	return true
}

func (b *fakeBackend) handler() http.Handler {
	router := mux.NewRouter()
	pathID := func(r *http.Request) int64 {
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		require.NoError(b.t, err)
		return id
	}

	router.HandleFunc("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		line := b.product(pathID(r))
		b.write(w, http.StatusOK, map[string]any{
			"id":              line.ProductID,
			"name":            line.Name,
			"price":           line.Price,
			"discountPercent": line.DiscountPercent,
		})
	}).Methods(http.MethodGet)

	router.HandleFunc("/cart/items", func(w http.ResponseWriter, r *http.Request) {
		if b.authorized(w, r) {
			b.write(w, http.StatusOK, b.snapshot())
		}
	}).Methods(http.MethodGet)

	router.HandleFunc("/cart/items", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(w, r) {
			return
		}
		req := request.AddItem{}
		b.decode(r, &req)
		b.mu.Lock()
		line := b.add(req.ProductID, req.Quantity)
		b.mu.Unlock()
		b.write(w, http.StatusOK, line)
	}).Methods(http.MethodPost)

	router.HandleFunc("/cart/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(w, r) {
			return
		}
		req := request.UpdateItem{}
		b.decode(r, &req)
		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.items {
			if b.items[i].ProductID == pathID(r) {
				b.items[i].Quantity = req.Quantity
				b.write(w, http.StatusOK, b.items[i])
				return
			}
		}
		b.write(w, http.StatusNotFound, nil)
	}).Methods(http.MethodPut)

	router.HandleFunc("/cart/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(w, r) {
			return
		}
		b.mu.Lock()
		b.remove(pathID(r))
		b.mu.Unlock()
		b.write(w, http.StatusOK, nil)
	}).Methods(http.MethodDelete)

	router.HandleFunc("/cart/sync", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(w, r) {
			return
		}
		req := request.SyncItems{}
		b.decode(r, &req)
		b.mu.Lock()
		b.synced = append(b.synced, req.Items...)
		for _, item := range req.Items {
			b.add(item.ProductID, item.Quantity)
		}
		b.mu.Unlock()
		b.write(w, http.StatusOK, b.snapshot())
	}).Methods(http.MethodPost)

	router.HandleFunc("/shipping/calculate", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(w, r) {
			return
		}
		req := checkoutRequest.CalculateShipping{}
		b.decode(r, &req)
		b.mu.Lock()
		b.shippingFor = append(b.shippingFor, req.ProductIDs)
		b.mu.Unlock()
		b.write(w, http.StatusOK, checkoutResponse.Shipping{ShippingCost: decimal.NewFromInt(20)})
	}).Methods(http.MethodPost)

	router.HandleFunc("/orders/cod", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(w, r) {
			return
		}
		req := orderRequest.PlaceOrderCOD{}
		b.decode(r, &req)
		b.mu.Lock()
		b.codOrders = append(b.codOrders, req)
		b.remove(req.ProductIDs...)
		b.mu.Unlock()
		b.write(w, http.StatusOK, nil)
	}).Methods(http.MethodPost)

	router.HandleFunc("/orders/hosted-payment", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(w, r) {
			return
		}
		req := orderRequest.PlaceOrderHostedPayment{}
		b.decode(r, &req)
		b.mu.Lock()
		b.hostedOrders = append(b.hostedOrders, req)
		b.remove(req.ProductIDs...)
		b.mu.Unlock()
		b.write(w, http.StatusOK, orderResponse.HostedPayment{Checkout: orderResponse.CheckoutPayload{
			PaymentLinkID: "link-1",
			CheckoutURL:   "https://pay.example.com/link-1",
			OrderCode:     1001,
			Amount:        decimal.NewFromInt(220),
			Currency:      "VND",
		}})
	}).Methods(http.MethodPost)

	return router
}

type shop struct {
	t        *testing.T
	backend  *fakeBackend
	registry *session.Registry
	server   *httptest.Server
	client   *http.Client
}

func newShop(t *testing.T) *shop {
	t.Helper()
	fb := &fakeBackend{t: t}
	backendServer := httptest.NewServer(fb.handler())
	t.Cleanup(backendServer.Close)

	client, err := backend.NewClient(config.Backend{BaseURL: backendServer.URL, Timeout: time.Second})
	require.NoError(t, err)

	validate := validator.New(validator.WithRequiredStructEnabled())
	carts := map[uuid.UUID]*local.MemoryCart{}
	var cartsMu sync.Mutex
	registry := session.NewRegistry(session.Dependencies{
		Verifier: auth.NewVerifier(testApplication),
		Backend:  client,
		LocalCart: func(id uuid.UUID) port.LocalCart {
			cartsMu.Lock()
			defer cartsMu.Unlock()
			if _, ok := carts[id]; !ok {
				carts[id] = local.NewMemoryCart()
			}
			return carts[id]
		},
		Checkout:  testCheckout,
		Validator: validate,
	})

	logger := testLogger()
	router := mux.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
		})
	})
	router.Use(session.Middleware(registry, false))
	AttachCartController(router, validate)
	AttachCheckoutController(router, validate)
	AttachSessionController(router, validate)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	httpClient := &http.Client{
		Jar:     jar,
		Timeout: 5 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &shop{t: t, backend: fb, registry: registry, server: server, client: httpClient}
}

type envelope[T any] struct {
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       T      `json:"data"`
}

type cartData struct {
	Cart response.Cart `json:"cart"`
}

type checkoutData struct {
	Checkout checkoutResponse.Session `json:"checkout"`
}

type resultData struct {
	Result checkoutResponse.Result `json:"result"`
}

type sessionData struct {
	SessionID     string        `json:"sessionId"`
	Authenticated bool          `json:"authenticated"`
	Subject       string        `json:"subject"`
	Cart          response.Cart `json:"cart"`
}

func (s *shop) send(method string, path string, body any) *http.Response {
	s.t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&payload).Encode(body))
	}
	req, err := http.NewRequestWithContext(context.Background(), method, s.server.URL+path, &payload)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	require.NoError(s.t, err)
	s.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func call[T any](s *shop, method string, path string, body any) (int, envelope[T]) {
	s.t.Helper()
	resp := s.send(method, path, body)
	var env envelope[T]
	require.NoError(s.t, json.NewDecoder(resp.Body).Decode(&env), fmt.Sprintf("%s %s", method, path))
	return resp.StatusCode, env
}

func (b *fakeBackend) syncedItems() []request.SyncItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]request.SyncItem{}, b.synced...)
}

func (b *fakeBackend) shippingRequests() [][]int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]int64{}, b.shippingFor...)
}

func (b *fakeBackend) cashOnDeliveryOrders() []orderRequest.PlaceOrderCOD {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]orderRequest.PlaceOrderCOD{}, b.codOrders...)
}

func (b *fakeBackend) hostedPaymentOrders() []orderRequest.PlaceOrderHostedPayment {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]orderRequest.PlaceOrderHostedPayment{}, b.hostedOrders...)
}
