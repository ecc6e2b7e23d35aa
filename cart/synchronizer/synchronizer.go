// Package synchronizer merges the anonymous local cart into the authenticated server cart.
package synchronizer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/cart/port"
	commonErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

type Synchronizer struct {
	remote port.RemoteCart
	local  port.LocalCart
}

func NewSynchronizer(remote port.RemoteCart, local port.LocalCart) *Synchronizer {
	return &Synchronizer{remote: remote, local: local}
}

// Sync returns the authoritative cart of the authenticated user. A non-empty local cart is
// pushed in one batch and erased afterwards. When erasing fails the merged cart is returned
// together with ErrLocalCartNotCleared, since the server already holds the merge.
func (s *Synchronizer) Sync(c context.Context) ([]response.LineItem, error) {
	c, span := otel.Tracer.Start(c, "Synchronizer Sync")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Synchronizer Sync").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "loading local cart").Logger()
	logger.Trace().Msg("loading local cart")
	localItems, err := s.local.Load(c)
	if err != nil {
		err = fmt.Errorf("failed loading local cart with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger = logger.With().Int(log.KeyCartItemsCount, len(localItems)).Logger()
	logger.Trace().Msg("loaded local cart")

	if len(localItems) == 0 {
		logger = logger.With().Str(log.KeyProcess, "listing remote cart").Logger()
		logger.Trace().Msg("listing remote cart")
		items, err := s.remote.ListItems(c)
		if err != nil {
			err = fmt.Errorf("failed listing remote cart with error=%w", err)
			commonErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return nil, err
		}
		logger.Trace().Int(log.KeyCartItemsCount, len(items)).Msg("listed remote cart")
		return items, nil
	}

	batch := Fold(localItems)
	logger = logger.With().
		Str(log.KeyProcess, "syncing local cart to remote").
		Any(log.KeyCartItems, batch).
		Logger()
	logger.Info().Msg("syncing local cart to remote")
	merged, err := s.remote.SyncItems(c, batch)
	if err != nil {
		err = fmt.Errorf("failed syncing local cart to remote with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Int(log.KeyCartItemsCount, len(merged)).Msg("synced local cart to remote")

	logger = logger.With().Str(log.KeyProcess, "clearing local cart").Logger()
	logger.Trace().Msg("clearing local cart")
	if err = s.local.Clear(c); err != nil {
		err = fmt.Errorf("%w: %w", commonErrors.ErrLocalCartNotCleared, err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return merged, err
	}
	logger.Trace().Msg("cleared local cart")

	return merged, nil
}

// Fold converts local lines to sync items, summing quantities of repeated product ids while
// keeping first-seen order.
func Fold(items []response.LineItem) []request.SyncItem {
	index := make(map[int64]int, len(items))
	batch := make([]request.SyncItem, 0, len(items))
	for _, item := range items {
		if i, ok := index[item.ProductID]; ok {
			batch[i].Quantity = min(batch[i].Quantity+item.Quantity, request.MaxQuantity)
			continue
		}
		index[item.ProductID] = len(batch)
		batch = append(batch, item.SyncItem())
	}
	return batch
}
