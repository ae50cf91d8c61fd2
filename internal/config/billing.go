package config

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BillingConfig is the hot-reloadable billing policy.
type BillingConfig struct {
	DefaultCurrency     string        `mapstructure:"defaultCurrency"`
	InvoiceNumberPrefix string        `mapstructure:"invoiceNumberPrefix"`
	CommandTimeout      time.Duration `mapstructure:"commandTimeout"`
	RetryAttempts       int           `mapstructure:"retryAttempts"`
	RetryBackoff        time.Duration `mapstructure:"retryBackoff"`
}

// DefaultBillingConfig returns the policy used when no billing.yml exists.
func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		DefaultCurrency:     "USD",
		InvoiceNumberPrefix: "INV-",
		CommandTimeout:      30 * time.Second,
		RetryAttempts:       3,
		RetryBackoff:        100 * time.Millisecond,
	}
}

// BillingConfigHolder serves the current policy and follows file changes.
type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

// NewBillingConfigHolder reads billing.yml (when present) and watches it for
// changes. Missing or invalid files fall back to defaults.
func NewBillingConfigHolder(log *zap.Logger) (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/rideledger/config")
	v.AddConfigPath("/etc/rideledger")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RIDELEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &BillingConfigHolder{}
	holder.current.Store(DefaultBillingConfig())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		return holder, nil
	}

	holder.store(v, log)
	v.OnConfigChange(func(_ fsnotify.Event) {
		holder.store(v, log)
	})
	v.WatchConfig()

	return holder, nil
}

func (h *BillingConfigHolder) store(v *viper.Viper, log *zap.Logger) {
	cfg := DefaultBillingConfig()
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		if log != nil {
			log.Warn("invalid billing policy file, keeping current", zap.Error(err))
		}
		return
	}
	cfg = normalizeBilling(cfg)
	h.current.Store(cfg)
	if log != nil {
		log.Info("billing policy loaded",
			zap.String("default_currency", cfg.DefaultCurrency),
			zap.String("invoice_number_prefix", cfg.InvoiceNumberPrefix),
		)
	}
}

// Current returns the active billing policy.
func (h *BillingConfigHolder) Current() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func normalizeBilling(cfg BillingConfig) BillingConfig {
	defaults := DefaultBillingConfig()
	cfg.DefaultCurrency = strings.ToUpper(strings.TrimSpace(cfg.DefaultCurrency))
	if len(cfg.DefaultCurrency) != 3 {
		cfg.DefaultCurrency = defaults.DefaultCurrency
	}
	if strings.TrimSpace(cfg.InvoiceNumberPrefix) == "" {
		cfg.InvoiceNumberPrefix = defaults.InvoiceNumberPrefix
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = defaults.CommandTimeout
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = defaults.RetryAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaults.RetryBackoff
	}
	return cfg
}
