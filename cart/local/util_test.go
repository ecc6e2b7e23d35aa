package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	testRedis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/internal/infra"
)

func testContext() context.Context {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339Nano}).
		WithContext(context.Background())
}

func sampleItems() []response.LineItem {
	return []response.LineItem{
		{
			ProductID:       1,
			Name:            "Linen shirt",
			MainImage:       "https://cdn.example.com/1.png",
			Quantity:        2,
			Price:           decimal.NewFromInt(100),
			DiscountPercent: decimal.Zero,
			DiscountPrice:   decimal.NewFromInt(100),
		},
		{
			ProductID:       2,
			Name:            "Canvas tote",
			MainImage:       "https://cdn.example.com/2.png",
			Quantity:        1,
			Price:           decimal.NewFromInt(50),
			DiscountPercent: decimal.NewFromInt(10),
			DiscountPrice:   decimal.NewFromInt(45),
		},
	}
}

func assertItemsEqual(t *testing.T, expected, actual []response.LineItem) {
	t.Helper()
	if !assert.Len(t, actual, len(expected), "items length should be equal to expected") {
		return
	}
	for i := range expected {
		assert.Equal(t, expected[i].ProductID, actual[i].ProductID)
		assert.Equal(t, expected[i].Name, actual[i].Name)
		assert.Equal(t, expected[i].MainImage, actual[i].MainImage)
		assert.Equal(t, expected[i].Quantity, actual[i].Quantity)
		assert.True(t, expected[i].Price.Equal(actual[i].Price), "price should be equal")
		assert.True(t, expected[i].DiscountPercent.Equal(actual[i].DiscountPercent), "discount percent should be equal")
		assert.True(t, expected[i].DiscountPrice.Equal(actual[i].DiscountPrice), "discount price should be equal")
	}
}

func setupRedis(t *testing.T, c context.Context) (*redis.Client, *testRedis.RedisContainer) {
	redisContainer, err := testRedis.Run(
		c,
		"redis:7.4.2-alpine3.21",
		testRedis.WithLogLevel(testRedis.LogLevelVerbose),
	)
	if err != nil {
		t.Fatalf("failed running redis container with error: %s", err)
	}

	redisConnStr, err := redisContainer.ConnectionString(c)
	if err != nil {
		t.Fatalf("failed getting redis connection string with error: %s", err)
	}

	redisOpt, err := redis.ParseURL(redisConnStr)
	if err != nil {
		t.Fatalf("failed parsing redis connection string with error: %s", err)
	}

	redisClient := redis.NewClient(redisOpt)
	if err = redisClient.Ping(c).Err(); err != nil {
		t.Fatalf("failed ping redis client with error: %s", err)
	}
	return redisClient, redisContainer
}

func teardownRedis(t *testing.T, client *redis.Client, container *testRedis.RedisContainer) {
	client.Close()
	if err := testcontainers.TerminateContainer(container); err != nil {
		t.Fatalf("failed to terminate container: %s", err)
	}
}

func setupPostgres(t *testing.T, c context.Context) (*pgxpool.Pool, *postgres.PostgresContainer) {
	pgContainer, err := postgres.Run(
		c,
		"postgres:16.6-alpine3.21",
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.WithDatabase("postgres"),
		postgres.BasicWaitStrategies(),
		postgres.WithInitScripts(
			filepath.Join("..", "..", "migrations", "20261018000000_create_table_local_carts.up.sql"),
		),
	)
	if err != nil {
		t.Fatalf("failed running postgres container with error: %s", err)
	}

	pgConnStr, err := pgContainer.ConnectionString(c)
	if err != nil {
		t.Fatalf("failed getting postgres connection string with error: %s", err)
	}

	pgConfig, err := pgxpool.ParseConfig(pgConnStr)
	if err != nil {
		t.Fatalf("failed parsing pgconfig with error: %s", err)
	}
	pgConfig.AfterConnect = infra.RegisterTypes

	pool, err := pgxpool.NewWithConfig(c, pgConfig)
	if err != nil {
		t.Fatalf("failed creating postgres pool with error: %s", err)
	}

	if err = pool.Ping(c); err != nil {
		t.Fatalf("failed ping postgres pool with error: %s", err)
	}
	return pool, pgContainer
}

func teardownPostgres(t *testing.T, pool *pgxpool.Pool, container *postgres.PostgresContainer) {
	pool.Close()
	if err := testcontainers.TerminateContainer(container); err != nil {
		t.Fatalf("failed to terminate container: %s", err)
	}
}
