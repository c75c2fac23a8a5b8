package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BillingConfig tunes the hourly invoicing allocator.
type BillingConfig struct {
	// Epsilon is the tolerance used when comparing a line amount to the remaining target.
	Epsilon float64 `mapstructure:"epsilon"`
	// HourPrecision is the number of decimals invoiced hours are rounded to on a split.
	HourPrecision int32 `mapstructure:"hourPrecision"`
	// SplitNoteTemplate is appended to the invoiced half of a split entry; %s is the invoice reference.
	SplitNoteTemplate   string `mapstructure:"splitNoteTemplate"`
	InvoiceNumberPrefix string `mapstructure:"invoiceNumberPrefix"`
	Currency            string `mapstructure:"currency"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		Epsilon:             1e-6,
		HourPrecision:       2,
		SplitNoteTemplate:   "Invoiced portion (%s)",
		InvoiceNumberPrefix: "",
		Currency:            "EUR",
	}
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

// NewStaticBillingConfig returns a holder that never reloads.
func NewStaticBillingConfig(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewBillingConfigHolder(log *zap.Logger) (*BillingConfigHolder, error) {
	log = log.Named("config.billing")
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/brikx")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BRIKX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.epsilon", defaults.Epsilon)
	v.SetDefault("billing.hourPrecision", defaults.HourPrecision)
	v.SetDefault("billing.splitNoteTemplate", defaults.SplitNoteTemplate)
	v.SetDefault("billing.invoiceNumberPrefix", defaults.InvoiceNumberPrefix)
	v.SetDefault("billing.currency", defaults.Currency)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := decodeBilling(v)
	if err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticBillingConfig(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeBilling(v)
		if err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// decodeBilling reads every billing key so file values, env overrides and
// defaults are merged per field.
func decodeBilling(v *viper.Viper) (BillingConfig, error) {
	var file struct {
		Billing BillingConfig `mapstructure:"billing"`
	}
	if err := v.Unmarshal(&file); err != nil {
		return BillingConfig{}, err
	}
	return file.Billing, nil
}

func (h *BillingConfigHolder) Get() BillingConfig {
	if h == nil {
		return DefaultBillingConfig()
	}
	return h.current.Load().(BillingConfig)
}

func validateBillingConfig(cfg BillingConfig) error {
	if cfg.Epsilon < 0 {
		return errors.New("billing.epsilon cannot be negative")
	}
	if cfg.HourPrecision < 0 || cfg.HourPrecision > 6 {
		return errors.New("billing.hourPrecision must be between 0 and 6")
	}
	if strings.TrimSpace(cfg.Currency) == "" {
		return errors.New("billing.currency cannot be empty")
	}
	return nil
}
