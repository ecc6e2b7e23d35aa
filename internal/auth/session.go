package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	commonErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

// Session is the authentication signal of one visitor. Listeners run after every sign in,
// sign out or token expiry, outside the session lock.
type Session struct {
	verifier *Verifier
	now      func() time.Time

	mu        sync.RWMutex
	token     string
	claims    *jwt.RegisteredClaims
	listeners []func(context.Context) error
}

func NewSession(verifier *Verifier) *Session {
	return &Session{verifier: verifier, now: time.Now}
}

func (s *Session) OnChange(fn func(context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Session) SignIn(c context.Context, token string) error {
	c, span := otel.Tracer.Start(c, "Session SignIn")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Session SignIn").
		Logger()
	c = logger.WithContext(c)

	logger = logger.With().Str(log.KeyProcess, "verifying token").Logger()
	logger.Trace().Msg("verifying token")
	claims, err := s.verifier.VerifyToken(c, token)
	if err != nil {
		err = fmt.Errorf("failed verifying token with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Str("subject", claims.Subject).Msg("verified token")

	s.mu.Lock()
	s.token = token
	s.claims = claims
	s.mu.Unlock()

	if err = s.notify(c); err != nil {
		commonErrors.HandleError(err, span)
		return err
	}
	logger.Info().Msg("signed in")
	return nil
}

func (s *Session) SignOut(c context.Context) error {
	c, span := otel.Tracer.Start(c, "Session SignOut")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "Session SignOut").Logger()
	c = logger.WithContext(c)

	s.mu.Lock()
	wasSignedIn := s.token != ""
	s.token = ""
	s.claims = nil
	s.mu.Unlock()

	if !wasSignedIn {
		return nil
	}
	if err := s.notify(c); err != nil {
		commonErrors.HandleError(err, span)
		return err
	}
	logger.Info().Msg("signed out")
	return nil
}

func (s *Session) IsAuthenticated(c context.Context) bool {
	_, ok := s.current(c)
	return ok
}

func (s *Session) Token(c context.Context) (string, bool) {
	return s.current(c)
}

// current returns the token while it is unexpired. The first caller to find it expired signs
// the session out.
func (s *Session) current(c context.Context) (string, bool) {
	s.mu.RLock()
	token, ok := s.token, s.valid()
	s.mu.RUnlock()
	if ok {
		return token, true
	}
	if token != "" {
		s.expire(c, token)
	}
	return "", false
}

func (s *Session) expire(c context.Context, token string) {
	c, span := otel.Tracer.Start(c, "Session expire")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "Session expire").Logger()
	c = logger.WithContext(c)

	s.mu.Lock()
	cleared := s.token == token && !s.valid()
	if cleared {
		s.token = ""
		s.claims = nil
	}
	s.mu.Unlock()
	if !cleared {
		return
	}

	logger.Info().Msg("session token expired, signing out")
	if err := s.notify(c); err != nil {
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
	}
}

func (s *Session) Subject() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.valid() {
		return ""
	}
	return s.claims.Subject
}

// valid reports a present, unexpired token. Callers hold s.mu.
func (s *Session) valid() bool {
	if s.token == "" || s.claims == nil {
		return false
	}
	return s.claims.ExpiresAt == nil || s.now().Before(s.claims.ExpiresAt.Time)
}

func (s *Session) notify(c context.Context) error {
	s.mu.RLock()
	listeners := make([]func(context.Context) error, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	var errs []error
	for _, fn := range listeners {
		if err := fn(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
