package controller

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/checkout/pkg/request"
	commonErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/middleware"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/shop/internal/session"
)

type CheckoutController struct {
	validate *validator.Validate
}

func AttachCheckoutController(router *mux.Router, validate *validator.Validate) {
	controller := CheckoutController{validate: validate}

	checkoutRouter := router.PathPrefix("/checkout").Subrouter()
	checkoutRouter.Use(middleware.Auth(session.IsAuthenticated))
	checkoutRouter.HandleFunc("", controller.GetCheckout).Methods(http.MethodGet)
	checkoutRouter.HandleFunc("/address", controller.SelectAddress).Methods(http.MethodPut)
	checkoutRouter.HandleFunc("/payment-method", controller.SelectPaymentMethod).Methods(http.MethodPut)
	checkoutRouter.HandleFunc("/shipping/refresh", controller.RefreshShipping).Methods(http.MethodPost)
	checkoutRouter.HandleFunc("/submit", controller.Submit).Methods(http.MethodPost)
	checkoutRouter.HandleFunc("/payment/return", controller.CompletePayment).Methods(http.MethodGet)
	checkoutRouter.HandleFunc("/payment/cancel", controller.CancelPayment).Methods(http.MethodGet)
}

func (ctrl CheckoutController) GetCheckout(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController GetCheckout")
	defer span.End()

	visitor, _ := session.VisitorFromContext(c)
	writeSuccess(c, w, "successfully found checkout", map[string]interface{}{"checkout": visitor.Checkout.Snapshot()})
}

func (ctrl CheckoutController) SelectAddress(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController SelectAddress")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CheckoutController SelectAddress").Logger()
	visitor, _ := session.VisitorFromContext(c)

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	reqBody := request.SelectAddress{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeBadRequest(c, w, err)
		return
	}
	logger.Trace().Msg("decoded request body")

	logger = logger.With().Str(log.KeyProcess, "validating request body").Logger()
	logger.Trace().Msg("validating request body")
	if err := ctrl.validate.StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeBadRequest(c, w, err)
		return
	}
	logger.Trace().Msg("validated request body")

	logger = logger.With().Int64(log.KeyAddressID, reqBody.AddressID).Str(log.KeyProcess, "selecting address").Logger()
	logger.Info().Msg("selecting address")
	c = logger.WithContext(c)
	if err := visitor.Checkout.SelectAddress(c, reqBody.AddressID); err != nil {
		err = fmt.Errorf("failed selecting address with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	logger.Info().Msg("selected address")

	writeSuccess(c, w, "successfully selected address", map[string]interface{}{"checkout": visitor.Checkout.Snapshot()})
}

func (ctrl CheckoutController) SelectPaymentMethod(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController SelectPaymentMethod")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CheckoutController SelectPaymentMethod").Logger()
	visitor, _ := session.VisitorFromContext(c)

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	reqBody := request.SelectPaymentMethod{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeBadRequest(c, w, err)
		return
	}
	logger.Trace().Msg("decoded request body")

	logger = logger.With().Str(log.KeyProcess, "validating request body").Logger()
	logger.Trace().Msg("validating request body")
	if err := ctrl.validate.StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeBadRequest(c, w, err)
		return
	}
	logger.Trace().Msg("validated request body")

	logger = logger.With().Str(log.KeyPaymentMethod, reqBody.PaymentMethod).Str(log.KeyProcess, "selecting payment method").Logger()
	logger.Info().Msg("selecting payment method")
	c = logger.WithContext(c)
	if err := visitor.Checkout.SelectPaymentMethod(c, reqBody.PaymentMethod); err != nil {
		err = fmt.Errorf("failed selecting payment method with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	logger.Info().Msg("selected payment method")

	writeSuccess(c, w, "successfully selected payment method", map[string]interface{}{"checkout": visitor.Checkout.Snapshot()})
}

func (ctrl CheckoutController) RefreshShipping(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController RefreshShipping")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutController RefreshShipping").
		Str(log.KeyProcess, "refreshing shipping").
		Logger()
	visitor, _ := session.VisitorFromContext(c)

	logger.Trace().Msg("refreshing shipping")
	c = logger.WithContext(c)
	if err := visitor.Checkout.RefreshShipping(c); err != nil {
		err = fmt.Errorf("failed refreshing shipping with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	logger.Trace().Msg("refreshed shipping")

	writeSuccess(c, w, "successfully refreshed shipping", map[string]interface{}{"checkout": visitor.Checkout.Snapshot()})
}

func (ctrl CheckoutController) Submit(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController Submit")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutController Submit").
		Str(log.KeyProcess, "submitting checkout").
		Logger()
	visitor, _ := session.VisitorFromContext(c)

	logger.Info().Msg("submitting checkout")
	c = logger.WithContext(c)
	result, err := visitor.Checkout.Submit(c)
	if err != nil {
		err = fmt.Errorf("failed submitting checkout with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	logger.Info().Str(log.KeyCheckoutState, result.Status).Msg("submitted checkout")

	writeSuccess(c, w, "successfully submitted checkout", map[string]interface{}{"result": result})
}

// CompletePayment is the hosted payment return url. It sends the browser to the order list.
func (ctrl CheckoutController) CompletePayment(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController CompletePayment")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutController CompletePayment").
		Str(log.KeyProcess, "completing payment").
		Logger()
	visitor, _ := session.VisitorFromContext(c)

	logger.Info().Msg("completing payment")
	c = logger.WithContext(c)
	result, err := visitor.Checkout.CompletePayment(c)
	if err != nil {
		err = fmt.Errorf("failed completing payment with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	logger.Info().Msg("completed payment")

	http.Redirect(w, r, result.Redirect, http.StatusSeeOther)
}

func (ctrl CheckoutController) CancelPayment(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController CancelPayment")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutController CancelPayment").
		Str(log.KeyProcess, "cancelling payment").
		Logger()
	visitor, _ := session.VisitorFromContext(c)

	logger.Info().Msg("cancelling payment")
	c = logger.WithContext(c)
	if err := visitor.Checkout.CancelPayment(c); err != nil {
		err = fmt.Errorf("failed cancelling payment with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	logger.Info().Msg("cancelled payment")

	writeSuccess(c, w, "successfully cancelled payment", map[string]interface{}{"checkout": visitor.Checkout.Snapshot()})
}
