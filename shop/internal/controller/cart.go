package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/cart/pkg/request"
	commonErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/shop/internal/session"
)

type CartController struct {
	validate *validator.Validate
}

func AttachCartController(router *mux.Router, validate *validator.Validate) {
	controller := CartController{validate: validate}

	cartRouter := router.PathPrefix("/cart").Subrouter()
	cartRouter.HandleFunc("", controller.GetCart).Methods(http.MethodGet)
	cartRouter.HandleFunc("", controller.ClearCart).Methods(http.MethodDelete)
	cartRouter.HandleFunc("/selection", controller.SelectAll).Methods(http.MethodPut)
	cartRouter.HandleFunc("/items", controller.AddItem).Methods(http.MethodPost)
	cartRouter.HandleFunc("/items/{productId}", controller.UpdateQuantity).Methods(http.MethodPut)
	cartRouter.HandleFunc("/items/{productId}", controller.RemoveItem).Methods(http.MethodDelete)
	cartRouter.HandleFunc("/items/{productId}/selection", controller.SelectItem).Methods(http.MethodPut)
}

func productIDFromPath(r *http.Request) (int64, error) {
	productID, err := strconv.ParseInt(mux.Vars(r)["productId"], 10, 64)
	if err != nil || productID <= 0 {
		return 0, fmt.Errorf("invalid productId=%s", mux.Vars(r)["productId"])
	}
	return productID, nil
}

func (ctrl CartController) GetCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController GetCart")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController GetCart").Logger()
	visitor, _ := session.VisitorFromContext(c)

	logger = logger.With().Str(log.KeyProcess, "reloading cart").Logger()
	logger.Trace().Msg("reloading cart")
	c = logger.WithContext(c)
	if err := visitor.Cart.Reload(c); err != nil && !errors.Is(err, commonErrors.ErrLocalCartNotCleared) {
		err = fmt.Errorf("failed reloading cart with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	logger.Trace().Msg("reloaded cart")

	writeSuccess(c, w, "successfully found cart", map[string]interface{}{"cart": visitor.Cart.State()})
}

func (ctrl CartController) AddItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController AddItem")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController AddItem").Logger()
	visitor, _ := session.VisitorFromContext(c)

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	reqBody := request.AddItem{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeBadRequest(c, w, err)
		return
	}
	logger.Trace().Msg("decoded request body")

	logger = logger.With().
		Int64(log.KeyProductID, reqBody.ProductID).
		Int(log.KeyQuantity, reqBody.Quantity).
		Str(log.KeyProcess, "adding item to cart").
		Logger()
	logger.Info().Msg("adding item to cart")
	c = logger.WithContext(c)
	if err := visitor.Cart.Add(c, reqBody.ProductID, reqBody.Quantity); err != nil {
		err = fmt.Errorf("failed adding item to cart with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	logger.Info().Msg("added item to cart")

	writeSuccess(c, w, "successfully added item to cart", map[string]interface{}{"cart": visitor.Cart.State()})
}

func (ctrl CartController) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController UpdateQuantity")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController UpdateQuantity").Logger()
	visitor, _ := session.VisitorFromContext(c)

	productID, err := productIDFromPath(r)
	if err != nil {
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeBadRequest(c, w, err)
		return
	}

	logger = logger.With().Int64(log.KeyProductID, productID).Str(log.KeyProcess, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	reqBody := request.UpdateQuantity{}
	if err = json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeBadRequest(c, w, err)
		return
	}
	logger.Trace().Msg("decoded request body")

	logger = logger.With().Int(log.KeyQuantity, reqBody.Quantity).Str(log.KeyProcess, "updating cart item").Logger()
	logger.Info().Msg("updating cart item")
	c = logger.WithContext(c)
	if err = visitor.Cart.UpdateQuantity(c, productID, reqBody.Quantity); err != nil {
		err = fmt.Errorf("failed updating cart item with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	logger.Info().Msg("updated cart item")

	writeSuccess(c, w, "successfully updated cart item", map[string]interface{}{"cart": visitor.Cart.State()})
}

func (ctrl CartController) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController RemoveItem")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController RemoveItem").Logger()
	visitor, _ := session.VisitorFromContext(c)

	productID, err := productIDFromPath(r)
	if err != nil {
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeBadRequest(c, w, err)
		return
	}

	logger = logger.With().Int64(log.KeyProductID, productID).Str(log.KeyProcess, "removing cart item").Logger()
	logger.Info().Msg("removing cart item")
	c = logger.WithContext(c)
	if err = visitor.Cart.Remove(c, productID); err != nil {
		err = fmt.Errorf("failed removing cart item with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	logger.Info().Msg("removed cart item")

	writeSuccess(c, w, "successfully removed cart item", map[string]interface{}{"cart": visitor.Cart.State()})
}

func (ctrl CartController) SelectItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController SelectItem")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController SelectItem").Logger()
	visitor, _ := session.VisitorFromContext(c)

	productID, err := productIDFromPath(r)
	if err != nil {
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeBadRequest(c, w, err)
		return
	}

	reqBody, err := ctrl.decodeSelect(r)
	if err != nil {
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeBadRequest(c, w, err)
		return
	}

	visitor.Cart.Select(productID, *reqBody.Selected)
	logger.Debug().Int64(log.KeyProductID, productID).Bool("selected", *reqBody.Selected).Msg("selected cart item")

	writeSuccess(c, w, "successfully selected cart item", map[string]interface{}{"cart": visitor.Cart.State()})
}

func (ctrl CartController) SelectAll(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController SelectAll")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController SelectAll").Logger()
	visitor, _ := session.VisitorFromContext(c)

	reqBody, err := ctrl.decodeSelect(r)
	if err != nil {
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeBadRequest(c, w, err)
		return
	}

	visitor.Cart.SelectAll(*reqBody.Selected)
	logger.Debug().Bool("selected", *reqBody.Selected).Msg("selected all cart items")

	writeSuccess(c, w, "successfully selected cart items", map[string]interface{}{"cart": visitor.Cart.State()})
}

func (ctrl CartController) decodeSelect(r *http.Request) (request.Select, error) {
	reqBody := request.Select{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		return request.Select{}, fmt.Errorf("failed decoding request body with error=%w", err)
	}
	if err := ctrl.validate.StructCtx(r.Context(), reqBody); err != nil {
		return request.Select{}, fmt.Errorf("failed validating request body with error=%w", err)
	}
	return reqBody, nil
}

func (ctrl CartController) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController ClearCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController ClearCart").
		Str(log.KeyProcess, "clearing cart").
		Logger()
	visitor, _ := session.VisitorFromContext(c)

	logger.Info().Msg("clearing cart")
	c = logger.WithContext(c)
	if err := visitor.Cart.Clear(c); err != nil {
		err = fmt.Errorf("failed clearing cart with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	logger.Info().Msg("cleared cart")

	writeSuccess(c, w, "successfully cleared cart", map[string]interface{}{"cart": visitor.Cart.State()})
}
