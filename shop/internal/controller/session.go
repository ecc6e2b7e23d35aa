package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	commonErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/shop/internal/session"
	"github.com/Alturino/storefront/shop/pkg/request"
)

type SessionController struct {
	validate *validator.Validate
}

func AttachSessionController(router *mux.Router, validate *validator.Validate) {
	controller := SessionController{validate: validate}

	sessionRouter := router.PathPrefix("/session").Subrouter()
	sessionRouter.HandleFunc("", controller.GetSession).Methods(http.MethodGet)
	sessionRouter.HandleFunc("", controller.SignIn).Methods(http.MethodPost)
	sessionRouter.HandleFunc("", controller.SignOut).Methods(http.MethodDelete)
}

func (ctrl SessionController) GetSession(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "SessionController GetSession")
	defer span.End()

	visitor, _ := session.VisitorFromContext(c)
	writeSuccess(c, w, "successfully found session", map[string]interface{}{
		"sessionId":     visitor.ID.String(),
		"authenticated": visitor.Auth.IsAuthenticated(c),
		"subject":       visitor.Auth.Subject(),
	})
}

// SignIn accepts a backend issued token. Signing in merges the anonymous cart into the
// account cart.
func (ctrl SessionController) SignIn(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "SessionController SignIn")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "SessionController SignIn").Logger()
	visitor, _ := session.VisitorFromContext(c)

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	reqBody := request.SignIn{}
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

	logger = logger.With().Str(log.KeyProcess, "signing in").Logger()
	logger.Info().Msg("signing in")
	c = logger.WithContext(c)
	if err := visitor.Auth.SignIn(c, reqBody.Token); err != nil {
		err = fmt.Errorf("failed signing in with error=%w", err)
		commonErrors.HandleError(err, span)
		if !visitor.Auth.IsAuthenticated(c) {
			logger.Error().Err(err).Msg(err.Error())
			writeError(c, w, err)
			return
		}
		if !errors.Is(err, commonErrors.ErrLocalCartNotCleared) {
			logger.Warn().Err(err).Msg("signed in but cart reload failed")
		}
	}
	logger.Info().Msg("signed in")

	writeSuccess(c, w, "successfully signed in", map[string]interface{}{
		"authenticated": true,
		"cart":          visitor.Cart.State(),
	})
}

func (ctrl SessionController) SignOut(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "SessionController SignOut")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "SessionController SignOut").
		Str(log.KeyProcess, "signing out").
		Logger()
	visitor, _ := session.VisitorFromContext(c)

	logger.Info().Msg("signing out")
	c = logger.WithContext(c)
	if err := visitor.Auth.SignOut(c); err != nil {
		commonErrors.HandleError(err, span)
		logger.Warn().Err(err).Msg("signed out but cart reload failed")
	}
	logger.Info().Msg("signed out")

	writeSuccess(c, w, "successfully signed out", map[string]interface{}{
		"authenticated": false,
		"cart":          visitor.Cart.State(),
	})
}
