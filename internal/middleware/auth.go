package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	commonErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
)

// Auth rejects requests whose visitor is not signed in.
func Auth(authenticated func(c context.Context) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := zerolog.Ctx(r.Context()).With().Str(log.KeyTag, "middleware Auth").Logger()
			c := logger.WithContext(r.Context())

			if !authenticated(c) {
				err := fmt.Errorf("failed authenticating visitor with error=%w", commonErrors.ErrUnauthorized)
				logger.Error().Err(err).Msg(err.Error())
				inHttp.WriteErrorResponse(c, w, http.StatusUnauthorized, commonErrors.ErrUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
