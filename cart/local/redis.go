package local

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/cart/pkg/response"
	commonErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

const keyLocalCart = "storefront:local:%s:%s"

type RedisCart struct {
	cache    *redis.Client
	cacheKey string
	ttl      time.Duration
}

func NewRedisCart(cache *redis.Client, sessionID uuid.UUID, ttl time.Duration) *RedisCart {
	return &RedisCart{
		cache:    cache,
		cacheKey: fmt.Sprintf(keyLocalCart, sessionID.String(), Key),
		ttl:      ttl,
	}
}

func (r *RedisCart) Load(c context.Context) ([]response.LineItem, error) {
	c, span := otel.Tracer.Start(c, "RedisCart Load")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "RedisCart Load").
		Str(log.KeyCacheKey, r.cacheKey).
		Str(log.KeyProcess, "finding local cart in cache").
		Logger()

	logger.Trace().Msg("finding local cart in cache")
	data, err := r.cache.Get(c, r.cacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		logger.Trace().Msg("local cart not found in cache")
		return []response.LineItem{}, nil
	}
	if err != nil {
		err = fmt.Errorf("failed finding local cart in cache with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Msg("found local cart in cache")

	items, err := decode(data)
	if err != nil {
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	return items, nil
}

func (r *RedisCart) Save(c context.Context, items []response.LineItem) error {
	c, span := otel.Tracer.Start(c, "RedisCart Save")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "RedisCart Save").
		Str(log.KeyCacheKey, r.cacheKey).
		Int(log.KeyCartItemsCount, len(items)).
		Logger()

	data, err := encode(items)
	if err != nil {
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	logger = logger.With().Str(log.KeyProcess, "inserting local cart to cache").Logger()
	logger.Trace().Msg("inserting local cart to cache")
	if err = r.cache.Set(c, r.cacheKey, data, r.ttl).Err(); err != nil {
		err = fmt.Errorf("failed inserting local cart to cache with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("inserted local cart to cache")

	return nil
}

func (r *RedisCart) Clear(c context.Context) error {
	c, span := otel.Tracer.Start(c, "RedisCart Clear")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "RedisCart Clear").
		Str(log.KeyCacheKey, r.cacheKey).
		Str(log.KeyProcess, "deleting local cart from cache").
		Logger()

	logger.Trace().Msg("deleting local cart from cache")
	if err := r.cache.Del(c, r.cacheKey).Err(); err != nil {
		err = fmt.Errorf("failed deleting local cart from cache with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("deleted local cart from cache")

	return nil
}
