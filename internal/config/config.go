// Package config loads process configuration and the bundled collection list.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables bound to configuration keys.
const EnvPrefix = "STOREFRONT"

type Config struct {
	HTTP        HTTPConfig        `mapstructure:"http"`
	Chain       ChainConfig       `mapstructure:"chain"`
	Aggregator  AggregatorConfig  `mapstructure:"aggregator"`
	Checkout    CheckoutConfig    `mapstructure:"checkout"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Session     SessionConfig     `mapstructure:"session"`
	Collections CollectionsConfig `mapstructure:"collections"`
	Log         LogConfig         `mapstructure:"log"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

type ChainConfig struct {
	RestURL       string        `mapstructure:"rest_url" validate:"required,url"`
	ChainID       string        `mapstructure:"chain_id" validate:"required"`
	AddressPrefix string        `mapstructure:"address_prefix" validate:"required,alpha,lowercase"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxRetries    int           `mapstructure:"max_retries" validate:"gte=0"`
}

type AggregatorConfig struct {
	// Concurrency caps in-flight enrichments; 0 is unbounded.
	Concurrency int `mapstructure:"concurrency" validate:"gte=0"`
}

type CheckoutConfig struct {
	APIBase       string        `mapstructure:"api_base" validate:"required,url"`
	APIKey        string        `mapstructure:"api_key"`
	AppIdentifier string        `mapstructure:"app_identifier" validate:"required"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	DefaultPrice  string        `mapstructure:"default_price" validate:"required,price"`
	Currency      string        `mapstructure:"currency" validate:"required,lowercase"`
	PaymentMethod string        `mapstructure:"payment_method" validate:"oneof=fiat crypto"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type StorageConfig struct {
	Backend       string `mapstructure:"backend" validate:"oneof=memory postgres"`
	PostgresDSN   string `mapstructure:"postgres_dsn" validate:"required_if=Backend postgres"`
	ClickhouseDSN string `mapstructure:"clickhouse_dsn"`
}

type SessionConfig struct {
	Backend   string        `mapstructure:"backend" validate:"oneof=memory redis"`
	RedisAddr string        `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	RedisDB   int           `mapstructure:"redis_db" validate:"gte=0"`
	TTL       time.Duration `mapstructure:"ttl" validate:"gte=0"`

	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"gte=0"`
}

type CollectionsConfig struct {
	// Path overrides the bundled collections artifact when set.
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")

	v.SetDefault("chain.rest_url", "https://api.xion-testnet-2.burnt.com")
	v.SetDefault("chain.chain_id", "xion-testnet-2")
	v.SetDefault("chain.address_prefix", "xion")
	v.SetDefault("chain.timeout", 30*time.Second)
	v.SetDefault("chain.max_retries", 3)

	v.SetDefault("aggregator.concurrency", 0)

	v.SetDefault("checkout.api_base", "https://staging.crossmint.com/api")
	v.SetDefault("checkout.api_key", "")
	v.SetDefault("checkout.webhook_secret", "")
	v.SetDefault("checkout.app_identifier", "com.storefront.app")
	v.SetDefault("checkout.default_price", "0.001")
	v.SetDefault("checkout.currency", "usd")
	v.SetDefault("checkout.payment_method", "fiat")
	v.SetDefault("checkout.timeout", 30*time.Second)

	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.clickhouse_dsn", "")

	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.redis_addr", "")
	v.SetDefault("session.redis_db", 0)
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.sweep_interval", time.Minute)

	v.SetDefault("collections.path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// BindEnv makes every key readable from STOREFRONT_<SECTION>_<KEY>
// environment variables and registers defaults.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
}

// Load unmarshals and validates configuration from v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Price returns the configured default price.
func (c CheckoutConfig) Price() decimal.Decimal {
	return decimal.RequireFromString(c.DefaultPrice)
}

// DisplayPrice formats the default price for display, e.g. $0.001.
func (c CheckoutConfig) DisplayPrice() string {
	if c.Currency == "usd" {
		return "$" + c.Price().String()
	}
	return c.Price().String() + " " + c.Currency
}

func (c *Config) validate() error {
	validate := validator.New()
	if err := validate.RegisterValidation("price", validatePrice); err != nil {
		return fmt.Errorf("register price validation: %w", err)
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// validatePrice accepts positive decimal strings.
func validatePrice(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	return err == nil && d.IsPositive()
}
