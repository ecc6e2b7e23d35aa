// Package store holds the in-memory cart of one storefront session. It picks local or remote
// persistence from the authentication signal and reloads from the authoritative source after
// every mutation.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/cart/port"
	"github.com/Alturino/storefront/cart/synchronizer"
	"github.com/Alturino/storefront/cart/totals"
	commonErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/metrics"
	"github.com/Alturino/storefront/internal/otel"
)

const (
	modeLocal  = "local"
	modeRemote = "remote"
)

type Store struct {
	remote   port.RemoteCart
	local    port.LocalCart
	products port.ProductLookup
	auth     port.AuthState
	sync     *synchronizer.Synchronizer

	validate         *validator.Validate
	metrics          *metrics.Metrics
	latestReloadWins bool

	mu         sync.Mutex
	items      []response.LineItem
	selected   map[int64]struct{}
	inflight   int
	generation uint64

	listenerMu   sync.Mutex
	listeners    map[int]func()
	nextListener int
}

func NewStore(
	remote port.RemoteCart,
	local port.LocalCart,
	products port.ProductLookup,
	auth port.AuthState,
	opts ...Option,
) *Store {
	s := &Store{
		remote:    remote,
		local:     local,
		products:  products,
		auth:      auth,
		sync:      synchronizer.NewSynchronizer(remote, local),
		items:     []response.LineItem{},
		selected:  map[int64]struct{}{},
		listeners: map[int]func(){},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validate == nil {
		s.validate = validator.New()
	}
	return s
}

func (s *Store) mode(c context.Context) string {
	if s.auth.IsAuthenticated(c) {
		return modeRemote
	}
	return modeLocal
}

// begin marks an operation in flight and returns its generation.
func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight++
	s.generation++
	return s.generation
}

func (s *Store) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
}

// commit replaces the items wholesale and applies the selection hook. Results of cancelled
// contexts and, with WithLatestReloadWins, of superseded operations are dropped.
func (s *Store) commit(c context.Context, generation uint64, items []response.LineItem) error {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store commit").
		Uint64(log.KeyGeneration, generation).
		Int(log.KeyCartItemsCount, len(items)).
		Logger()

	if err := c.Err(); err != nil {
		err = fmt.Errorf("failed committing cart with error=%w", err)
		logger.Debug().Err(err).Msg("discarding cart result of cancelled operation")
		return err
	}

	s.mu.Lock()
	if s.latestReloadWins && generation != s.generation {
		current := s.generation
		s.mu.Unlock()
		logger.Debug().Uint64("currentGeneration", current).Msg("discarding superseded cart result")
		return nil
	}
	previous := len(s.items)
	if items == nil {
		items = []response.LineItem{}
	}
	s.items = items
	s.applySelectionHook(previous)
	s.mu.Unlock()

	logger.Trace().Msg("committed cart")
	s.notify()
	return nil
}

// applySelectionHook selects every item when the item count changed and otherwise prunes
// the selection to ids still present. Callers hold s.mu.
func (s *Store) applySelectionHook(previous int) {
	if previous != len(s.items) {
		s.selected = make(map[int64]struct{}, len(s.items))
		for _, item := range s.items {
			s.selected[item.ProductID] = struct{}{}
		}
		return
	}
	present := make(map[int64]struct{}, len(s.items))
	for _, item := range s.items {
		present[item.ProductID] = struct{}{}
	}
	for id := range s.selected {
		if _, ok := present[id]; !ok {
			delete(s.selected, id)
		}
	}
}

// Reload replaces the cart with the authoritative copy. Authenticated sessions merge a
// pending local cart through the synchronizer first.
func (s *Store) Reload(c context.Context) error {
	c, span := otel.Tracer.Start(c, "Store Reload")
	defer span.End()

	mode := s.mode(c)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store Reload").
		Bool(log.KeyAuthenticated, mode == modeRemote).
		Logger()
	c = logger.WithContext(c)

	generation := s.begin()
	defer s.end()

	err := s.reload(c, generation, mode)
	s.metrics.CartOperation("reload", mode, err)
	if err != nil {
		commonErrors.HandleError(err, span)
		return err
	}
	return nil
}

func (s *Store) reload(c context.Context, generation uint64, mode string) error {
	logger := zerolog.Ctx(c).With().Uint64(log.KeyGeneration, generation).Logger()

	var (
		items []response.LineItem
		err   error
	)
	if mode == modeRemote {
		logger = logger.With().Str(log.KeyProcess, "syncing cart").Logger()
		logger.Trace().Msg("syncing cart")
		items, err = s.sync.Sync(c)
		if err != nil && !errors.Is(err, commonErrors.ErrLocalCartNotCleared) {
			err = fmt.Errorf("failed syncing cart with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return err
		}
		logger.Trace().Msg("synced cart")
	} else {
		logger = logger.With().Str(log.KeyProcess, "loading local cart").Logger()
		logger.Trace().Msg("loading local cart")
		items, err = s.local.Load(c)
		if err != nil {
			err = fmt.Errorf("failed loading local cart with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return err
		}
		logger.Trace().Msg("loaded local cart")
	}

	if commitErr := s.commit(c, generation, items); commitErr != nil {
		return commitErr
	}
	if err != nil {
		logger.Warn().Err(err).Msg("merged cart committed but local cart was not cleared")
	}
	return err
}

// mutateThenReload runs a remote mutation and, on success, reloads the cart. A failed
// mutation leaves the state untouched.
func (s *Store) mutateThenReload(c context.Context, mutate func(context.Context) error) error {
	generation := s.begin()
	defer s.end()

	if err := mutate(c); err != nil {
		return err
	}
	return s.reload(c, s.nextGeneration(generation), modeRemote)
}

// nextGeneration claims a fresh generation for the reload phase so a reload started while
// the mutation was running does not outrank it.
func (s *Store) nextGeneration(generation uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == generation {
		return generation
	}
	s.generation++
	return s.generation
}

func (s *Store) Add(c context.Context, productID int64, quantity int) error {
	c, span := otel.Tracer.Start(c, "Store Add")
	defer span.End()

	mode := s.mode(c)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store Add").
		Int64(log.KeyProductID, productID).
		Int(log.KeyQuantity, quantity).
		Bool(log.KeyAuthenticated, mode == modeRemote).
		Logger()
	c = logger.WithContext(c)

	logger = logger.With().Str(log.KeyProcess, "validating request").Logger()
	logger.Trace().Msg("validating request")
	if quantity < 1 || quantity > request.MaxQuantity {
		err := fmt.Errorf("failed validating request with error=%w", commonErrors.ErrInvalidQuantity)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		s.metrics.CartOperation("add", mode, err)
		return err
	}
	if err := s.validate.StructCtx(c, request.AddItem{ProductID: productID, Quantity: quantity}); err != nil {
		err = fmt.Errorf("failed validating request with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		s.metrics.CartOperation("add", mode, err)
		return err
	}
	logger.Trace().Msg("validated request")

	var err error
	if mode == modeRemote {
		err = s.mutateThenReload(c, func(c context.Context) error {
			logger = logger.With().Str(log.KeyProcess, "adding item to remote cart").Logger()
			logger.Info().Msg("adding item to remote cart")
			if _, err := s.remote.AddItem(c, productID, quantity); err != nil {
				err = fmt.Errorf("failed adding item to remote cart with error=%w", err)
				logger.Error().Err(err).Msg(err.Error())
				return err
			}
			logger.Info().Msg("added item to remote cart")
			return nil
		})
	} else {
		err = s.mutateLocal(c, func(c context.Context, items []response.LineItem) ([]response.LineItem, error) {
			if i := indexOf(items, productID); i >= 0 {
				if items[i].Quantity > request.MaxQuantity-quantity {
					return nil, fmt.Errorf(
						"failed adding item to local cart with error=%w: quantity=%d plus %d exceeds %d",
						commonErrors.ErrInvalidQuantity,
						items[i].Quantity,
						quantity,
						request.MaxQuantity,
					)
				}
				items[i].Quantity += quantity
				return items, nil
			}

			logger = logger.With().Str(log.KeyProcess, "finding product").Logger()
			logger.Trace().Msg("finding product")
			product, err := s.products.GetProduct(c, productID)
			if err != nil {
				err = fmt.Errorf("failed finding product with error=%w", err)
				logger.Error().Err(err).Msg(err.Error())
				return nil, err
			}
			logger.Trace().Msg("found product")

			return append(items, response.NewLineItem(productID, product, quantity)), nil
		})
	}
	s.metrics.CartOperation("add", mode, err)
	if err != nil {
		commonErrors.HandleError(err, span)
		return err
	}
	return nil
}

// UpdateQuantity sets the quantity of productID. Quantities below one are ignored.
func (s *Store) UpdateQuantity(c context.Context, productID int64, quantity int) error {
	c, span := otel.Tracer.Start(c, "Store UpdateQuantity")
	defer span.End()

	mode := s.mode(c)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store UpdateQuantity").
		Int64(log.KeyProductID, productID).
		Int(log.KeyQuantity, quantity).
		Bool(log.KeyAuthenticated, mode == modeRemote).
		Logger()
	c = logger.WithContext(c)

	if quantity < 1 {
		logger.Debug().Msg("ignoring quantity update below one")
		s.metrics.CartNoop("update", mode)
		return nil
	}
	if quantity > request.MaxQuantity {
		err := fmt.Errorf("failed validating request with error=%w", commonErrors.ErrInvalidQuantity)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		s.metrics.CartOperation("update", mode, err)
		return err
	}
	if err := s.validate.StructCtx(c, request.UpdateItem{ProductID: productID, Quantity: quantity}); err != nil {
		err = fmt.Errorf("failed validating request with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		s.metrics.CartOperation("update", mode, err)
		return err
	}

	var err error
	if mode == modeRemote {
		err = s.mutateThenReload(c, func(c context.Context) error {
			logger = logger.With().Str(log.KeyProcess, "updating remote cart item").Logger()
			logger.Info().Msg("updating remote cart item")
			if _, err := s.remote.UpdateItem(c, productID, quantity); err != nil {
				err = fmt.Errorf("failed updating remote cart item with error=%w", err)
				logger.Error().Err(err).Msg(err.Error())
				return err
			}
			logger.Info().Msg("updated remote cart item")
			return nil
		})
	} else {
		err = s.mutateLocal(c, func(_ context.Context, items []response.LineItem) ([]response.LineItem, error) {
			i := indexOf(items, productID)
			if i < 0 {
				return nil, fmt.Errorf("failed updating local cart item with error=%w", commonErrors.ErrCartItemNotFound)
			}
			items[i].Quantity = quantity
			return items, nil
		})
	}
	s.metrics.CartOperation("update", mode, err)
	if err != nil {
		commonErrors.HandleError(err, span)
		return err
	}
	return nil
}

// Remove deselects productID right away and then removes it. The selection is restored
// when removal fails.
func (s *Store) Remove(c context.Context, productID int64) error {
	c, span := otel.Tracer.Start(c, "Store Remove")
	defer span.End()

	mode := s.mode(c)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store Remove").
		Int64(log.KeyProductID, productID).
		Bool(log.KeyAuthenticated, mode == modeRemote).
		Logger()
	c = logger.WithContext(c)

	s.mu.Lock()
	_, wasSelected := s.selected[productID]
	delete(s.selected, productID)
	s.mu.Unlock()
	if wasSelected {
		s.notify()
	}

	var err error
	if mode == modeRemote {
		err = s.mutateThenReload(c, func(c context.Context) error {
			logger = logger.With().Str(log.KeyProcess, "removing remote cart item").Logger()
			logger.Info().Msg("removing remote cart item")
			if err := s.remote.RemoveItem(c, productID); err != nil {
				err = fmt.Errorf("failed removing remote cart item with error=%w", err)
				logger.Error().Err(err).Msg(err.Error())
				return err
			}
			logger.Info().Msg("removed remote cart item")
			return nil
		})
	} else {
		err = s.mutateLocal(c, func(_ context.Context, items []response.LineItem) ([]response.LineItem, error) {
			return slices.DeleteFunc(items, func(item response.LineItem) bool {
				return item.ProductID == productID
			}), nil
		})
	}
	s.metrics.CartOperation("remove", mode, err)
	if err != nil {
		if wasSelected {
			s.mu.Lock()
			if indexOf(s.items, productID) >= 0 {
				s.selected[productID] = struct{}{}
			}
			s.mu.Unlock()
			s.notify()
		}
		commonErrors.HandleError(err, span)
		return err
	}
	return nil
}

// Clear empties the cart. Remote lines are removed concurrently and awaited together.
func (s *Store) Clear(c context.Context) error {
	c, span := otel.Tracer.Start(c, "Store Clear")
	defer span.End()

	mode := s.mode(c)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store Clear").
		Bool(log.KeyAuthenticated, mode == modeRemote).
		Logger()
	c = logger.WithContext(c)

	var err error
	if mode == modeRemote {
		ids := s.productIDs()
		err = s.mutateThenReload(c, func(c context.Context) error {
			logger = logger.With().
				Str(log.KeyProcess, "removing remote cart items").
				Ints64(log.KeyProductIDs, ids).
				Logger()
			logger.Info().Msg("removing remote cart items")
			g, gc := errgroup.WithContext(c)
			for _, id := range ids {
				g.Go(func() error {
					return s.remote.RemoveItem(gc, id)
				})
			}
			if err := g.Wait(); err != nil {
				err = fmt.Errorf("failed removing remote cart items with error=%w", err)
				logger.Error().Err(err).Msg(err.Error())
				return err
			}
			logger.Info().Msg("removed remote cart items")
			return nil
		})
	} else {
		generation := s.begin()
		err = func() error {
			defer s.end()
			logger = logger.With().Str(log.KeyProcess, "clearing local cart").Logger()
			logger.Info().Msg("clearing local cart")
			if err := s.local.Clear(c); err != nil {
				err = fmt.Errorf("failed clearing local cart with error=%w", err)
				logger.Error().Err(err).Msg(err.Error())
				return err
			}
			logger.Info().Msg("cleared local cart")
			return s.commit(c, generation, []response.LineItem{})
		}()
	}
	s.metrics.CartOperation("clear", mode, err)
	if err != nil {
		commonErrors.HandleError(err, span)
		return err
	}

	s.mu.Lock()
	clear(s.selected)
	s.mu.Unlock()
	s.notify()
	return nil
}

// mutateLocal applies fn to the stored local cart, persists the result and commits it.
func (s *Store) mutateLocal(
	c context.Context,
	fn func(context.Context, []response.LineItem) ([]response.LineItem, error),
) error {
	generation := s.begin()
	defer s.end()

	logger := zerolog.Ctx(c).With().Uint64(log.KeyGeneration, generation).Logger()

	logger = logger.With().Str(log.KeyProcess, "loading local cart").Logger()
	logger.Trace().Msg("loading local cart")
	items, err := s.local.Load(c)
	if err != nil {
		err = fmt.Errorf("failed loading local cart with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("loaded local cart")

	items, err = fn(c, items)
	if err != nil {
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	if err = c.Err(); err != nil {
		err = fmt.Errorf("failed saving local cart with error=%w", err)
		logger.Debug().Err(err).Msg("discarding local cart change of cancelled operation")
		return err
	}

	logger = logger.With().Str(log.KeyProcess, "saving local cart").Int(log.KeyCartItemsCount, len(items)).Logger()
	logger.Trace().Msg("saving local cart")
	if err = s.local.Save(c, items); err != nil {
		err = fmt.Errorf("failed saving local cart with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("saved local cart")

	return s.commit(c, generation, items)
}

func (s *Store) Select(productID int64, selected bool) {
	s.mu.Lock()
	if indexOf(s.items, productID) < 0 {
		s.mu.Unlock()
		return
	}
	if selected {
		s.selected[productID] = struct{}{}
	} else {
		delete(s.selected, productID)
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Store) SelectAll(selected bool) {
	s.mu.Lock()
	clear(s.selected)
	if selected {
		for _, item := range s.items {
			s.selected[item.ProductID] = struct{}{}
		}
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Store) Totals() response.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totals.Compute(s.items, s.selected)
}

func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// SelectedProductIDs returns the selected ids in cart order.
func (s *Store) SelectedProductIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedIDs()
}

func (s *Store) selectedIDs() []int64 {
	ids := make([]int64, 0, len(s.selected))
	for _, item := range s.items {
		if _, ok := s.selected[item.ProductID]; ok {
			ids = append(ids, item.ProductID)
		}
	}
	return ids
}

func (s *Store) productIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.items))
	for _, item := range s.items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// State returns a copy safe to hand to callers.
func (s *Store) State() response.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return response.Cart{
		Items:              slices.Clone(s.items),
		SelectedProductIDs: s.selectedIDs(),
		IsLoading:          s.inflight > 0,
		Totals:             totals.Compute(s.items, s.selected),
	}
}

// Subscribe registers fn to run after every committed change. Listeners run outside the
// store lock and may read the store.
func (s *Store) Subscribe(fn func()) func() {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	return func() {
		s.listenerMu.Lock()
		defer s.listenerMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) notify() {
	s.listenerMu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenerMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func indexOf(items []response.LineItem, productID int64) int {
	return slices.IndexFunc(items, func(item response.LineItem) bool {
		return item.ProductID == productID
	})
}
