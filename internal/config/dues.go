package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DuesConfig holds the hot-reloadable settings of the dues engine.
type DuesConfig struct {
	MarketName         string        `mapstructure:"marketName"`
	UpcomingWindowDays int           `mapstructure:"upcomingWindowDays"`
	Currency           string        `mapstructure:"currency"`
	CurrencyScale      int32         `mapstructure:"currencyScale"`
	PaymentMethods     []string      `mapstructure:"paymentMethods"`
	LockTTL            time.Duration `mapstructure:"lockTTL"`
}

func DefaultDuesConfig() DuesConfig {
	return DuesConfig{
		MarketName:         "Mercado",
		UpcomingWindowDays: 7,
		Currency:           "PEN",
		CurrencyScale:      2,
		PaymentMethods:     []string{"cash", "bank_transfer", "mobile_wallet", "card"},
		LockTTL:            10 * time.Second,
	}
}

type DuesConfigHolder struct {
	current atomic.Value // holds DuesConfig
}

// NewStaticDuesConfigHolder returns a holder that never reloads.
func NewStaticDuesConfigHolder(cfg DuesConfig) *DuesConfigHolder {
	holder := &DuesConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewDuesConfigHolder(log *zap.Logger) (*DuesConfigHolder, error) {
	return loadDuesConfig(log, "/etc/mercado", ".")
}

func loadDuesConfig(log *zap.Logger, paths ...string) (*DuesConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("dues-config")

	v := viper.New()
	v.SetConfigName("dues")
	v.SetConfigType("yml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("MERCADO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultDuesConfig()
	v.SetDefault("dues.marketName", defaults.MarketName)
	v.SetDefault("dues.upcomingWindowDays", defaults.UpcomingWindowDays)
	v.SetDefault("dues.currency", defaults.Currency)
	v.SetDefault("dues.currencyScale", defaults.CurrencyScale)
	v.SetDefault("dues.paymentMethods", defaults.PaymentMethods)
	v.SetDefault("dues.lockTTL", defaults.LockTTL)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := decodeDuesConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticDuesConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeDuesConfig(v)
		if err != nil {
			log.Warn("reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *DuesConfigHolder) Get() DuesConfig {
	if h == nil {
		return DefaultDuesConfig()
	}
	cfg, ok := h.current.Load().(DuesConfig)
	if !ok {
		return DefaultDuesConfig()
	}
	return cfg
}

func decodeDuesConfig(v *viper.Viper) (DuesConfig, error) {
	// Unmarshal walks AllSettings so defaults fill keys missing from the file.
	var root struct {
		Dues DuesConfig `mapstructure:"dues"`
	}
	if err := v.Unmarshal(&root); err != nil {
		return DuesConfig{}, err
	}
	cfg := root.Dues
	for i, m := range cfg.PaymentMethods {
		cfg.PaymentMethods[i] = strings.ToLower(strings.TrimSpace(m))
	}
	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if err := validateDuesConfig(cfg); err != nil {
		return DuesConfig{}, err
	}
	return cfg, nil
}

func validateDuesConfig(cfg DuesConfig) error {
	if cfg.UpcomingWindowDays < 0 {
		return fmt.Errorf("dues.upcomingWindowDays must be >= 0, got %d", cfg.UpcomingWindowDays)
	}
	if cfg.CurrencyScale < 0 || cfg.CurrencyScale > 4 {
		return fmt.Errorf("dues.currencyScale must be between 0 and 4, got %d", cfg.CurrencyScale)
	}
	if len(cfg.PaymentMethods) == 0 {
		return errors.New("dues.paymentMethods cannot be empty")
	}
	if cfg.LockTTL <= 0 {
		return errors.New("dues.lockTTL must be positive")
	}
	return nil
}
