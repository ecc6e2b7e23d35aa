package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/Alturino/storefront/internal/log"
)

type Application struct {
	Env       string `mapstructure:"env"        json:"env"`
	Host      string `mapstructure:"host"       json:"host"`
	SecretKey string `mapstructure:"secret_key" json:"-"`
	Issuer    string `mapstructure:"issuer"     json:"issuer"`
	Audience  string `mapstructure:"audience"   json:"audience"`
	Port      int    `mapstructure:"port"       json:"port"`
}

type Backend struct {
	BaseURL string        `mapstructure:"base_url" json:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"  json:"timeout"`
}

type Checkout struct {
	ReturnURL    string `mapstructure:"return_url"     json:"return_url"`
	CancelURL    string `mapstructure:"cancel_url"     json:"cancel_url"`
	OrderListURL string `mapstructure:"order_list_url" json:"order_list_url"`
}

type Cart struct {
	LatestReloadWins bool `mapstructure:"latest_reload_wins" json:"latest_reload_wins"`
}

// Session bounds how long an idle visitor keeps its in-memory cart and checkout. The local
// cart itself lives for LocalStore.TTL.
type Session struct {
	IdleTimeout time.Duration `mapstructure:"idle_timeout" json:"idle_timeout"`
}

type LocalStore struct {
	Driver string        `mapstructure:"driver" json:"driver"`
	TTL    time.Duration `mapstructure:"ttl"    json:"ttl"`
}

type Database struct {
	Name           string `mapstructure:"name"            json:"name"`
	Host           string `mapstructure:"host"            json:"host"`
	MigrationPath  string `mapstructure:"migration_path"  json:"migration_path"`
	Password       string `mapstructure:"password"        json:"-"`
	Username       string `mapstructure:"username"        json:"username"`
	MaxConnections int32  `mapstructure:"max_connections" json:"max_connections"`
	MinConnections int32  `mapstructure:"min_connections" json:"min_connections"`
	Port           uint16 `mapstructure:"port"            json:"port"`
}

type Cache struct {
	Host     string `mapstructure:"host"     json:"host"`
	Password string `mapstructure:"password" json:"-"`
	Database int    `mapstructure:"database" json:"database"`
	Port     uint16 `mapstructure:"port"     json:"port"`
}

type Otel struct {
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port"`
}

type Config struct {
	Application `mapstructure:"application" json:"application"`
	Backend     `mapstructure:"backend"     json:"backend"`
	Checkout    `mapstructure:"checkout"    json:"checkout"`
	Cart        `mapstructure:"cart"        json:"cart"`
	Session     `mapstructure:"session"     json:"session"`
	LocalStore  `mapstructure:"local_store" json:"local_store"`
	Database    `mapstructure:"db"          json:"db"`
	Cache       `mapstructure:"cache"       json:"cache"`
	Otel        `mapstructure:"otel"        json:"otel"`
}

const (
	LocalStoreMemory   = "memory"
	LocalStoreRedis    = "redis"
	LocalStorePostgres = "postgres"
)

var (
	once   sync.Once
	config *Config
)

func setDefaults() {
	viper.SetDefault("application.env", "production")
	viper.SetDefault("application.host", "0.0.0.0")
	viper.SetDefault("application.port", 8080)
	viper.SetDefault("backend.timeout", 15*time.Second)
	viper.SetDefault("checkout.order_list_url", "/orders")
	viper.SetDefault("session.idle_timeout", 30*time.Minute)
	viper.SetDefault("local_store.driver", LocalStoreRedis)
	viper.SetDefault("local_store.ttl", 30*24*time.Hour)
	viper.SetDefault("db.migration_path", "file://migrations")
	viper.SetDefault("db.max_connections", 10)
	viper.SetDefault("db.min_connections", 2)
	viper.SetDefault("otel.host", "otel-collector")
	viper.SetDefault("otel.port", 4317)
}

func InitConfig(c context.Context, filename string) *Config {
	once.Do(func() {
		cfg := Config{}
		logger := zerolog.Ctx(c).
			With().
			Str(log.KeyTag, "main InitConfig").
			Str(log.KeyProcess, "init config").
			Str("filename", filename).
			Logger()

		viper.SetConfigName(filename)
		viper.AddConfigPath("./env")
		viper.SetConfigType("yaml")
		viper.AutomaticEnv()
		setDefaults()

		logger = logger.With().Str(log.KeyProcess, "reading config").Logger()
		logger.Info().Msg("reading config")
		err := viper.ReadInConfig()
		if err != nil {
			err = fmt.Errorf("error when reading config with error=%w", err)
			logger.Fatal().Err(err).Msg(err.Error())
		}
		logger.Info().Msg("read config")

		logger = logger.With().Str(log.KeyProcess, "unmarshaling config").Logger()
		logger.Info().Msg("unmarshaling config")
		err = viper.Unmarshal(&cfg)
		if err != nil {
			err = fmt.Errorf("error unmarshaling config with error=%w", err)
			logger.Fatal().Err(err).Msg(err.Error())
		}
		config = &cfg
		logger = logger.With().Any(log.KeyConfig, cfg).Logger()
		logger.Info().Msg("unmarshaled config")
	})
	return config
}
