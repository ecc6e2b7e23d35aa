package cmd

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/internal/auth"
	"github.com/Alturino/storefront/internal/backend"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/shop/internal/session"
)

func testContext() context.Context {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339Nano}).
		WithContext(context.Background())
}

func TestSweep(t *testing.T) {
	tests := []struct {
		name            string
		idleTimeout     time.Duration
		expectedVisitor int
	}{
		{
			name:            "given visitor idle past the timeout should drop it",
			idleTimeout:     time.Millisecond,
			expectedVisitor: 0,
		},
		{
			name:            "given visitor idle within the timeout should keep it",
			idleTimeout:     time.Hour,
			expectedVisitor: 1,
		},
		{
			name:            "given disabled timeout should keep every visitor",
			idleTimeout:     0,
			expectedVisitor: 1,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := testContext()
			client, err := backend.NewClient(config.Backend{BaseURL: "http://backend.invalid", Timeout: time.Second})
			require.NoError(t, err)
			visitors := session.NewRegistry(session.Dependencies{
				Verifier:  auth.NewVerifier(config.Application{SecretKey: "secret", Issuer: "issuer", Audience: "audience"}),
				Backend:   client,
				LocalCart: memoryCarts(),
			})
			visitors.Resolve(c, "")
			time.Sleep(10 * time.Millisecond)
			purged := 0

			sweep(c, visitors, test.idleTimeout, func(context.Context) { purged++ })

			assert.Equal(t, test.expectedVisitor, visitors.Len())
			assert.Equal(t, 1, purged)
		})
	}
}

func TestNewLocalStorage(t *testing.T) {
	c := testContext()
	storage, err := newLocalStorage(c, &config.Config{LocalStore: config.LocalStore{Driver: config.LocalStoreMemory}})
	require.NoError(t, err)
	defer storage.close()
	assert.NotNil(t, storage.carts)
	assert.NotNil(t, storage.purge)

	_, err = newLocalStorage(c, &config.Config{LocalStore: config.LocalStore{Driver: "unknown"}})
	assert.Error(t, err)
}
