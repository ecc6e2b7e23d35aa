package local

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/cart/pkg/response"
	commonErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

const (
	queryLoadLocalCart = `SELECT items FROM local_carts
WHERE session_id = $1 AND key = $2 AND ($3::float8 <= 0 OR updated_at > NOW() - make_interval(secs => $3::float8))`
	querySaveLocalCart = `INSERT INTO local_carts (session_id, key, items, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (session_id, key) DO UPDATE SET items = EXCLUDED.items, updated_at = NOW()`
	queryClearLocalCart  = `DELETE FROM local_carts WHERE session_id = $1 AND key = $2`
	queryPurgeLocalCarts = `DELETE FROM local_carts WHERE updated_at <= NOW() - make_interval(secs => $1::float8)`
)

// PostgresCart keeps the local cart in the local_carts table. A row not saved within ttl loads
// as an empty cart; ttl <= 0 keeps rows forever.
type PostgresCart struct {
	pool      *pgxpool.Pool
	sessionID uuid.UUID
	ttl       time.Duration
}

func NewPostgresCart(pool *pgxpool.Pool, sessionID uuid.UUID, ttl time.Duration) *PostgresCart {
	return &PostgresCart{pool: pool, sessionID: sessionID, ttl: ttl}
}

func (p *PostgresCart) Load(c context.Context) ([]response.LineItem, error) {
	c, span := otel.Tracer.Start(c, "PostgresCart Load")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PostgresCart Load").
		Str(log.KeySessionID, p.sessionID.String()).
		Str(log.KeyProcess, "finding local cart in database").
		Logger()

	logger.Trace().Msg("finding local cart in database")
	var data []byte
	err := p.pool.QueryRow(c, queryLoadLocalCart, p.sessionID, Key, p.ttl.Seconds()).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		logger.Trace().Msg("local cart not found in database")
		return []response.LineItem{}, nil
	}
	if err != nil {
		err = fmt.Errorf("failed finding local cart in database with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Msg("found local cart in database")

	items, err := decode(data)
	if err != nil {
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	return items, nil
}

func (p *PostgresCart) Save(c context.Context, items []response.LineItem) error {
	c, span := otel.Tracer.Start(c, "PostgresCart Save")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PostgresCart Save").
		Str(log.KeySessionID, p.sessionID.String()).
		Int(log.KeyCartItemsCount, len(items)).
		Logger()

	data, err := encode(items)
	if err != nil {
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	logger = logger.With().Str(log.KeyProcess, "upserting local cart").Logger()
	logger.Trace().Msg("upserting local cart")
	if _, err = p.pool.Exec(c, querySaveLocalCart, p.sessionID, Key, data); err != nil {
		err = fmt.Errorf("failed upserting local cart with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("upserted local cart")

	return nil
}

func (p *PostgresCart) Clear(c context.Context) error {
	c, span := otel.Tracer.Start(c, "PostgresCart Clear")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PostgresCart Clear").
		Str(log.KeySessionID, p.sessionID.String()).
		Str(log.KeyProcess, "deleting local cart").
		Logger()

	logger.Trace().Msg("deleting local cart")
	if _, err := p.pool.Exec(c, queryClearLocalCart, p.sessionID, Key); err != nil {
		err = fmt.Errorf("failed deleting local cart with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("deleted local cart")

	return nil
}

// PurgeExpiredCarts deletes every local cart not saved within ttl and returns how many were
// removed.
func PurgeExpiredCarts(c context.Context, pool *pgxpool.Pool, ttl time.Duration) (int64, error) {
	c, span := otel.Tracer.Start(c, "PurgeExpiredCarts")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PurgeExpiredCarts").
		Str(log.KeyProcess, "deleting expired local carts").
		Logger()

	if ttl <= 0 {
		return 0, nil
	}

	logger.Trace().Msg("deleting expired local carts")
	tag, err := pool.Exec(c, queryPurgeLocalCarts, ttl.Seconds())
	if err != nil {
		err = fmt.Errorf("failed deleting expired local carts with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return 0, err
	}
	logger.Debug().Int64("deleted", tag.RowsAffected()).Msg("deleted expired local carts")

	return tag.RowsAffected(), nil
}
