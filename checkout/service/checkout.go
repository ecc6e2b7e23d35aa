// Package service drives a single checkout: address, shipping cost, payment method and order
// placement over the selected part of the cart.
package service

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/cart/totals"
	"github.com/Alturino/storefront/checkout/pkg/request"
	"github.com/Alturino/storefront/checkout/pkg/response"
	"github.com/Alturino/storefront/checkout/port"
	"github.com/Alturino/storefront/internal/config"
	commonErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/metrics"
	"github.com/Alturino/storefront/internal/otel"
	orderRequest "github.com/Alturino/storefront/order/pkg/request"
	orderResponse "github.com/Alturino/storefront/order/pkg/response"
)

type Orchestrator struct {
	cart      port.Cart
	shipping  port.ShippingCalculator
	orders    port.OrderPlacer
	presenter port.PaymentPresenter
	cfg       config.Checkout
	validate  *validator.Validate
	metrics   *metrics.Metrics

	mu            sync.Mutex
	phase         State
	addressID     int64
	paymentMethod PaymentMethod

	shippingCost    *decimal.Decimal
	shippingFor     []int64
	shippingPending int
	shippingStale   bool
	shippingRound   uint64

	lastErr     error
	payload     *orderResponse.CheckoutPayload
	unsubscribe func()
}

type Option func(*Orchestrator)

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

func WithPresenter(p port.PaymentPresenter) Option {
	return func(o *Orchestrator) {
		o.presenter = p
	}
}

func WithValidator(v *validator.Validate) Option {
	return func(o *Orchestrator) {
		o.validate = v
	}
}

func NewOrchestrator(
	cart port.Cart,
	shipping port.ShippingCalculator,
	orders port.OrderPlacer,
	cfg config.Checkout,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		cart:     cart,
		shipping: shipping,
		orders:   orders,
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.validate == nil {
		o.validate = validator.New()
	}
	o.unsubscribe = cart.Subscribe(o.onCartChange)
	return o
}

// Close detaches the orchestrator from the cart.
func (o *Orchestrator) Close() {
	if o.unsubscribe != nil {
		o.unsubscribe()
	}
}

func (o *Orchestrator) onCartChange() {
	ids := o.cart.SelectedProductIDs()
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.shippingCost != nil && !slices.Equal(ids, o.shippingFor) {
		o.shippingStale = true
	}
}

// shippingFresh reports whether the known cost was computed for ids. Callers hold o.mu.
func (o *Orchestrator) shippingFresh(ids []int64) bool {
	return o.shippingCost != nil && !o.shippingStale && slices.Equal(ids, o.shippingFor)
}

// Reset drops the address, payment method, shipping cost and any pending payment. It runs
// whenever the signed in user changes.
func (o *Orchestrator) Reset(c context.Context) error {
	_, span := otel.Tracer.Start(c, "Orchestrator Reset")
	defer span.End()

	o.mu.Lock()
	o.phase = ""
	o.addressID = 0
	o.paymentMethod = ""
	o.shippingCost = nil
	o.shippingFor = nil
	o.shippingStale = false
	o.shippingRound++
	o.lastErr = nil
	o.payload = nil
	o.mu.Unlock()

	zerolog.Ctx(c).Debug().Str(log.KeyTag, "Orchestrator Reset").Msg("reset checkout")
	return nil
}

// state reports the current step. Callers hold o.mu.
func (o *Orchestrator) state() State {
	if o.phase != "" {
		return o.phase
	}
	switch {
	case o.addressID == 0:
		return StateAddressPending
	case o.shippingCost == nil || o.shippingStale:
		return StateAddressChosen
	case o.paymentMethod == "":
		return StateShippingComputed
	default:
		return StatePaymentChosen
	}
}

// SelectAddress records the address and computes shipping for the current selection.
func (o *Orchestrator) SelectAddress(c context.Context, addressID int64) error {
	c, span := otel.Tracer.Start(c, "Orchestrator SelectAddress")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Orchestrator SelectAddress").
		Int64(log.KeyAddressID, addressID).
		Logger()
	c = logger.WithContext(c)

	logger = logger.With().Str(log.KeyProcess, "validating request").Logger()
	logger.Trace().Msg("validating request")
	if err := o.validate.StructCtx(c, request.SelectAddress{AddressID: addressID}); err != nil {
		err = fmt.Errorf("failed validating request with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("validated request")

	o.mu.Lock()
	o.addressID = addressID
	o.shippingCost = nil
	o.shippingFor = nil
	o.shippingStale = false
	o.phase = ""
	o.mu.Unlock()

	if err := o.computeShipping(c); err != nil {
		commonErrors.HandleError(err, span)
		return err
	}
	return nil
}

func (o *Orchestrator) SelectPaymentMethod(c context.Context, method string) error {
	_, span := otel.Tracer.Start(c, "Orchestrator SelectPaymentMethod")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Orchestrator SelectPaymentMethod").
		Str(log.KeyPaymentMethod, method).
		Logger()

	paymentMethod, ok := ParsePaymentMethod(method)
	if !ok {
		err := fmt.Errorf("failed selecting payment method with error=%w", commonErrors.ErrInvalidPaymentMethod)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	o.mu.Lock()
	o.paymentMethod = paymentMethod
	o.phase = ""
	o.mu.Unlock()
	logger.Debug().Msg("selected payment method")
	return nil
}

// RefreshShipping recomputes shipping when the selection changed since the last computation.
func (o *Orchestrator) RefreshShipping(c context.Context) error {
	c, span := otel.Tracer.Start(c, "Orchestrator RefreshShipping")
	defer span.End()

	ids := o.cart.SelectedProductIDs()
	o.mu.Lock()
	addressID := o.addressID
	fresh := o.shippingFresh(ids)
	pending := o.shippingPending > 0
	o.mu.Unlock()

	if addressID == 0 {
		err := fmt.Errorf("failed refreshing shipping with error=%w", commonErrors.ErrAddressRequired)
		commonErrors.HandleError(err, span)
		return err
	}
	if fresh || pending {
		return nil
	}
	if err := o.computeShipping(c); err != nil {
		commonErrors.HandleError(err, span)
		return err
	}
	return nil
}

// computeShipping asks the calculator for the current address and selection. The result is
// applied only if neither changed while the call was outstanding.
func (o *Orchestrator) computeShipping(c context.Context) error {
	ids := o.cart.SelectedProductIDs()

	o.mu.Lock()
	addressID := o.addressID
	o.shippingRound++
	round := o.shippingRound
	o.mu.Unlock()

	logger := zerolog.Ctx(c).
		With().
		Int64(log.KeyAddressID, addressID).
		Ints64(log.KeyProductIDs, ids).
		Str(log.KeyProcess, "calculating shipping").
		Logger()

	if len(ids) == 0 {
		o.mu.Lock()
		o.shippingCost = nil
		o.shippingFor = nil
		o.shippingStale = false
		o.mu.Unlock()
		logger.Debug().Msg("skipping shipping calculation for empty selection")
		return nil
	}

	o.mu.Lock()
	o.shippingPending++
	o.mu.Unlock()

	logger.Trace().Msg("calculating shipping")
	cost, err := o.shipping.CalculateShipping(c, addressID, ids)
	current := o.cart.SelectedProductIDs()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.shippingPending--

	if round != o.shippingRound || addressID != o.addressID || !slices.Equal(ids, current) {
		logger.Debug().Msg("discarding outdated shipping result")
		return nil
	}
	if err != nil {
		err = fmt.Errorf("failed calculating shipping with error=%w", err)
		o.shippingCost = nil
		o.shippingFor = nil
		o.lastErr = err
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	o.shippingCost = &cost
	o.shippingFor = ids
	o.shippingStale = false
	logger.Trace().Str(log.KeyShippingCost, cost.String()).Msg("calculated shipping")
	return nil
}

func (o *Orchestrator) CanSubmit() bool {
	ids := o.cart.SelectedProductIDs()
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.canSubmit(ids)
}

func (o *Orchestrator) canSubmit(ids []int64) bool {
	return o.addressID != 0 &&
		o.paymentMethod != "" &&
		len(ids) > 0 &&
		o.shippingFresh(ids) &&
		o.shippingPending == 0 &&
		o.phase != StateSubmitting
}

// Submit places the order. Validation failures make no network call.
func (o *Orchestrator) Submit(c context.Context) (response.Result, error) {
	c, span := otel.Tracer.Start(c, "Orchestrator Submit")
	defer span.End()

	ids := o.cart.SelectedProductIDs()

	// the submitting phase is claimed in the same critical section as the checks so that
	// concurrent submits cannot both pass
	o.mu.Lock()
	addressID := o.addressID
	paymentMethod := o.paymentMethod
	stale := !o.shippingFresh(ids)
	previous := o.phase
	var err error
	switch {
	case addressID == 0:
		err = commonErrors.ErrAddressRequired
	case paymentMethod == "":
		err = commonErrors.ErrPaymentMethodRequired
	case len(ids) == 0:
		err = commonErrors.ErrEmptySelection
	case o.shippingPending > 0 || o.phase == StateSubmitting:
		err = commonErrors.ErrShippingPending
	}
	if err != nil {
		err = fmt.Errorf("failed validating checkout with error=%w", err)
		o.lastErr = err
	} else {
		o.phase = StateSubmitting
		o.lastErr = nil
	}
	o.mu.Unlock()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Orchestrator Submit").
		Int64(log.KeyAddressID, addressID).
		Str(log.KeyPaymentMethod, string(paymentMethod)).
		Ints64(log.KeyProductIDs, ids).
		Logger()
	c = logger.WithContext(c)

	logger = logger.With().Str(log.KeyProcess, "validating checkout").Logger()
	if err != nil {
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Result{}, err
	}
	logger.Trace().Msg("validated checkout")

	if stale {
		if err = o.computeShipping(c); err != nil {
			o.releaseSubmit(previous)
			commonErrors.HandleError(err, span)
			return response.Result{}, err
		}
	}

	o.mu.Lock()
	if !o.shippingFresh(ids) {
		o.mu.Unlock()
		o.releaseSubmit(previous)
		err = fmt.Errorf("failed validating checkout with error=%w", commonErrors.ErrShippingPending)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Result{}, err
	}
	o.mu.Unlock()

	var result response.Result
	switch paymentMethod {
	case CashOnDelivery:
		result, err = o.placeCOD(c, addressID, ids)
	case HostedPayment:
		result, err = o.placeHostedPayment(c, addressID, ids)
	}
	o.metrics.CheckoutSubmission(string(paymentMethod), err)

	o.mu.Lock()
	if err != nil {
		o.phase = StateFailed
		o.lastErr = err
	} else {
		o.phase = State(result.Status)
		o.payload = result.Payload
	}
	o.mu.Unlock()

	if err != nil {
		commonErrors.HandleError(err, span)
		return response.Result{}, err
	}

	o.reloadCart(c)
	return result, nil
}

// releaseSubmit gives up a claimed submission that never reached the order service.
func (o *Orchestrator) releaseSubmit(previous State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.phase == StateSubmitting {
		o.phase = previous
	}
}

func (o *Orchestrator) placeCOD(c context.Context, addressID int64, ids []int64) (response.Result, error) {
	req := orderRequest.PlaceOrderCOD{AddressID: addressID, ProductIDs: ids}
	logger := zerolog.Ctx(c).With().Str(log.KeyProcess, "placing cash on delivery order").Logger()

	if err := o.validate.StructCtx(c, req); err != nil {
		err = fmt.Errorf("failed validating order with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return response.Result{}, err
	}

	logger.Info().Msg("placing cash on delivery order")
	if err := o.orders.PlaceOrderCOD(c, req); err != nil {
		err = fmt.Errorf("failed placing cash on delivery order with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return response.Result{}, err
	}
	logger.Info().Msg("placed cash on delivery order")

	return response.Result{Status: string(StateOrderPlaced), Redirect: o.cfg.OrderListURL}, nil
}

func (o *Orchestrator) placeHostedPayment(c context.Context, addressID int64, ids []int64) (response.Result, error) {
	req := orderRequest.PlaceOrderHostedPayment{
		AddressID:  addressID,
		ProductIDs: ids,
		ReturnURL:  o.cfg.ReturnURL,
		CancelURL:  o.cfg.CancelURL,
	}
	logger := zerolog.Ctx(c).With().Str(log.KeyProcess, "placing hosted payment order").Logger()

	if err := o.validate.StructCtx(c, req); err != nil {
		err = fmt.Errorf("failed validating order with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return response.Result{}, err
	}

	logger.Info().Msg("placing hosted payment order")
	payload, err := o.orders.PlaceOrderHostedPayment(c, req)
	if err != nil {
		err = fmt.Errorf("failed placing hosted payment order with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return response.Result{}, err
	}
	logger.Info().Int64("orderCode", payload.OrderCode).Msg("placed hosted payment order")

	if o.presenter != nil {
		if err := o.presenter.Present(c, payload); err != nil {
			logger.Warn().Err(err).Msg("failed presenting hosted payment")
		}
	}

	return response.Result{Status: string(StatePaymentRedirectPending), Payload: &payload}, nil
}

func (o *Orchestrator) reloadCart(c context.Context) {
	logger := zerolog.Ctx(c).With().Str(log.KeyProcess, "reloading cart after order").Logger()
	logger.Trace().Msg("reloading cart after order")
	if err := o.cart.Reload(c); err != nil {
		logger.Warn().Err(err).Msg("failed reloading cart after order")
		return
	}
	logger.Trace().Msg("reloaded cart after order")
}

// CompletePayment finishes a hosted payment once the gateway sends the visitor back.
func (o *Orchestrator) CompletePayment(c context.Context) (response.Result, error) {
	c, span := otel.Tracer.Start(c, "Orchestrator CompletePayment")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "Orchestrator CompletePayment").Logger()
	c = logger.WithContext(c)

	o.mu.Lock()
	if o.phase != StatePaymentRedirectPending {
		o.mu.Unlock()
		err := fmt.Errorf("failed completing payment with error=%w", commonErrors.ErrNoPendingPayment)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Result{}, err
	}
	o.phase = StateOrderPlaced
	o.payload = nil
	o.mu.Unlock()

	o.reloadCart(c)
	logger.Info().Msg("completed hosted payment")
	return response.Result{Status: string(StateOrderPlaced), Redirect: o.cfg.OrderListURL}, nil
}

// CancelPayment returns to the payment step keeping address, method and selection.
func (o *Orchestrator) CancelPayment(c context.Context) error {
	_, span := otel.Tracer.Start(c, "Orchestrator CancelPayment")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "Orchestrator CancelPayment").Logger()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.phase != StatePaymentRedirectPending {
		err := fmt.Errorf("failed cancelling payment with error=%w", commonErrors.ErrNoPendingPayment)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	o.phase = ""
	o.payload = nil
	logger.Info().Msg("cancelled hosted payment")
	return nil
}

// Total is the selected amount plus the shipping cost, counted only while it was computed for
// the current selection.
func (o *Orchestrator) Total() decimal.Decimal {
	ids := o.cart.SelectedProductIDs()
	selected := o.cart.Totals().SelectedAmount
	o.mu.Lock()
	defer o.mu.Unlock()
	shipping := decimal.Zero
	if o.shippingFresh(ids) {
		shipping = *o.shippingCost
	}
	return totals.Payable(selected, shipping)
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state()
}

func (o *Orchestrator) Snapshot() response.Session {
	ids := o.cart.SelectedProductIDs()
	cartTotals := o.cart.Totals()

	o.mu.Lock()
	defer o.mu.Unlock()
	session := response.Session{
		State:              string(o.state()),
		AddressID:          o.addressID,
		PaymentMethod:      string(o.paymentMethod),
		ShippingPending:    o.shippingPending > 0,
		ShippingStale:      o.shippingCost != nil && !o.shippingFresh(ids),
		SelectedProductIDs: ids,
		SelectedAmount:     cartTotals.SelectedAmount,
		Total:              cartTotals.SelectedAmount,
		CanSubmit:          o.canSubmit(ids),
		Payload:            o.payload,
	}
	if o.shippingFresh(ids) {
		cost := *o.shippingCost
		session.ShippingCost = &cost
		session.Total = totals.Payable(cartTotals.SelectedAmount, cost)
	}
	if o.lastErr != nil {
		session.LastError = o.lastErr.Error()
	}
	return session
}
