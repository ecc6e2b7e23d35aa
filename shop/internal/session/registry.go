// Package session keeps one cart, checkout and auth signal per storefront visitor, keyed by
// the storefront_session cookie.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/cart/port"
	"github.com/Alturino/storefront/cart/store"
	"github.com/Alturino/storefront/checkout/service"
	"github.com/Alturino/storefront/internal/auth"
	"github.com/Alturino/storefront/internal/backend"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/metrics"
)

type Visitor struct {
	ID       uuid.UUID
	Auth     *auth.Session
	Cart     *store.Store
	Checkout *service.Orchestrator

	mu       sync.Mutex
	lastSeen time.Time
}

func (v *Visitor) touch(now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lastSeen = now
}

func (v *Visitor) idleSince(now time.Time) time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return now.Sub(v.lastSeen)
}

// LocalCartFactory opens the visitor-local cart storage of one session.
type LocalCartFactory func(sessionID uuid.UUID) port.LocalCart

type Dependencies struct {
	Verifier         *auth.Verifier
	Backend          *backend.Client
	LocalCart        LocalCartFactory
	Checkout         config.Checkout
	Metrics          *metrics.Metrics
	Validator        *validator.Validate
	LatestReloadWins bool
}

type Registry struct {
	deps Dependencies
	now  func() time.Time

	mu       sync.Mutex
	visitors map[uuid.UUID]*Visitor
}

func NewRegistry(deps Dependencies) *Registry {
	if deps.Validator == nil {
		deps.Validator = validator.New(validator.WithRequiredStructEnabled())
	}
	return &Registry{deps: deps, now: time.Now, visitors: map[uuid.UUID]*Visitor{}}
}

// Resolve returns the visitor for rawID, creating a fresh one when rawID is unknown or
// malformed. created reports whether the caller must hand out a new cookie.
func (r *Registry) Resolve(c context.Context, rawID string) (visitor *Visitor, created bool) {
	now := r.now()
	if id, err := uuid.Parse(rawID); err == nil {
		r.mu.Lock()
		v, ok := r.visitors[id]
		r.mu.Unlock()
		if ok {
			v.touch(now)
			return v, false
		}
		// unknown but well formed ids keep their local cart
		return r.create(c, id, now), rawID != id.String()
	}
	return r.create(c, uuid.New(), now), true
}

func (r *Registry) create(c context.Context, id uuid.UUID, now time.Time) *Visitor {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.visitors[id]; ok {
		return v
	}

	v := r.newVisitor(id)
	v.lastSeen = now
	r.visitors[id] = v

	zerolog.Ctx(c).Debug().
		Str(log.KeyTag, "Registry create").
		Str(log.KeySessionID, id.String()).
		Msg("created visitor session")
	return v
}

func (r *Registry) newVisitor(id uuid.UUID) *Visitor {
	authSession := auth.NewSession(r.deps.Verifier)
	client := r.deps.Backend.WithToken(authSession, func(c context.Context) {
		logger := zerolog.Ctx(c).With().Str(log.KeySessionID, id.String()).Logger()
		logger.Warn().Msg("backend rejected session token, signing out")
		if err := authSession.SignOut(c); err != nil {
			logger.Error().Err(err).Msg(err.Error())
		}
	})

	storeOpts := []store.Option{store.WithMetrics(r.deps.Metrics), store.WithValidator(r.deps.Validator)}
	if r.deps.LatestReloadWins {
		storeOpts = append(storeOpts, store.WithLatestReloadWins())
	}
	cart := store.NewStore(
		backend.NewCartClient(client),
		r.deps.LocalCart(id),
		backend.NewProductClient(client),
		authSession,
		storeOpts...,
	)
	authSession.OnChange(cart.Reload)

	checkout := service.NewOrchestrator(
		cart,
		backend.NewShippingClient(client),
		backend.NewOrderClient(client),
		r.deps.Checkout,
		service.WithMetrics(r.deps.Metrics),
		service.WithValidator(r.deps.Validator),
		service.WithPresenter(LogPresenter{}),
	)
	authSession.OnChange(checkout.Reset)

	return &Visitor{ID: id, Auth: authSession, Cart: cart, Checkout: checkout}
}

// Sweep drops visitors idle for longer than ttl. Their local carts stay in storage.
func (r *Registry) Sweep(c context.Context, ttl time.Duration) int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, v := range r.visitors {
		if v.idleSince(now) > ttl {
			v.Checkout.Close()
			delete(r.visitors, id)
			removed++
		}
	}
	if removed > 0 {
		zerolog.Ctx(c).Debug().Str(log.KeyTag, "Registry Sweep").Int("removed", removed).Msg("swept idle visitors")
	}
	return removed
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.visitors)
}
