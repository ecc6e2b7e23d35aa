package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	setDefaults()

	idleTimeout := viper.GetDuration("session.idle_timeout")
	assert.Equal(t, 30*time.Minute, idleTimeout)
	assert.Less(t, idleTimeout, viper.GetDuration("local_store.ttl"), "visitors should be dropped long before their local cart expires")
	assert.Equal(t, LocalStoreRedis, viper.GetString("local_store.driver"))
}
