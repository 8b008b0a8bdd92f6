package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BillingConfig holds the debt terms applied when an invoice is created.
type BillingConfig struct {
	ClientDueDays   int      `mapstructure:"clientDueDays"`
	SupplierDueDays int      `mapstructure:"supplierDueDays"`
	Units           []string `mapstructure:"units"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		ClientDueDays:   0,
		SupplierDueDays: 0,
		Units:           []string{"pcs", "kg", "m", "l"},
	}
}

// AllowsUnit reports whether unit is one of the configured units.
func (c BillingConfig) AllowsUnit(unit string) bool {
	unit = strings.TrimSpace(unit)
	for _, u := range c.Units {
		if u == unit {
			return true
		}
	}
	return false
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder(log *zap.Logger) (*BillingConfigHolder, error) {
	return newBillingConfigHolder(log, "/etc/tradeledger", ".")
}

func newBillingConfigHolder(log *zap.Logger, paths ...string) (*BillingConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("billing.config")

	v := viper.New()
	v.SetConfigName("billing")
	v.SetConfigType("yml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("TRADELEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.clientDueDays", defaults.ClientDueDays)
	v.SetDefault("billing.supplierDueDays", defaults.SupplierDueDays)
	v.SetDefault("billing.units", defaults.Units)

	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		found = false
	}

	cfg, err := unmarshalBilling(v)
	if err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)

	if found {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := unmarshalBilling(v)
			if err != nil {
				log.Warn("billing config reload ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("billing config reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

// NewStaticBillingConfigHolder returns a holder that never reloads.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func unmarshalBilling(v *viper.Viper) (BillingConfig, error) {
	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return BillingConfig{}, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return BillingConfig{}, err
	}
	return cfg, nil
}

func validateBillingConfig(cfg BillingConfig) error {
	if cfg.ClientDueDays < 0 {
		return errors.New("billing.clientDueDays cannot be negative")
	}
	if cfg.SupplierDueDays < 0 {
		return errors.New("billing.supplierDueDays cannot be negative")
	}
	if len(cfg.Units) == 0 {
		return errors.New("billing.units cannot be empty")
	}
	return nil
}
