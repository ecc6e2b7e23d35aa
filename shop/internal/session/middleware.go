package session

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/log"
)

const CookieName = "storefront_session"

type visitorKey struct{}

func AttachVisitorToContext(c context.Context, v *Visitor) context.Context {
	return context.WithValue(c, visitorKey{}, v)
}

func VisitorFromContext(c context.Context) (*Visitor, bool) {
	v, ok := c.Value(visitorKey{}).(*Visitor)
	return v, ok
}

// IsAuthenticated reports whether the visitor in c is signed in.
func IsAuthenticated(c context.Context) bool {
	v, ok := VisitorFromContext(c)
	return ok && v.Auth.IsAuthenticated(c)
}

// Middleware resolves the visitor from the session cookie and hands out a new cookie when needed.
func Middleware(registry *Registry, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var rawID string
			if cookie, err := r.Cookie(CookieName); err == nil {
				rawID = cookie.Value
			}

			visitor, created := registry.Resolve(r.Context(), rawID)
			if created {
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    visitor.ID.String(),
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			logger := zerolog.Ctx(r.Context()).With().Str(log.KeySessionID, visitor.ID.String()).Logger()
			c := logger.WithContext(r.Context())
			c = AttachVisitorToContext(c, visitor)
			next.ServeHTTP(w, r.WithContext(c))
		})
	}
}
