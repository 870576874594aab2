// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pals-portal/internal/domain/model"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port          int           `yaml:"port"`
	PublicBaseURL string        `yaml:"public_base_url"` // used to build the gateway callback url
	Timeout       time.Duration `yaml:"timeout"`
	SecureCookies bool          `yaml:"secure_cookies"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type MetricsConfig struct {
	Port int `yaml:"port"`
}

type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Tenant  string        `yaml:"tenant"`
	Timeout time.Duration `yaml:"timeout"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // geography cache ttl
}

type WizardConfig struct {
	StateTTL     time.Duration `yaml:"state_ttl"`
	OTPSendLimit int           `yaml:"otp_send_limit"`
	OTPWindow    time.Duration `yaml:"otp_window"`
}

type PaymentConfig struct {
	// Modes maps a service type to "inline" or "popup".
	Modes map[string]string `yaml:"modes"`
	// SuccessPredicates maps a service type to status|flag|url.
	SuccessPredicates map[string]string `yaml:"success_predicates"`
	PendingTTL        time.Duration     `yaml:"pending_ttl"`
	PopupInterval     time.Duration     `yaml:"popup_interval"`
	PopupTimeout      time.Duration     `yaml:"popup_timeout"`
	// MaxPopupWatches caps the popup windows watched at once, apart from the worker pool.
	MaxPopupWatches int           `yaml:"max_popup_watches"`
	SuccessDelay    time.Duration `yaml:"success_redirect_delay"`
}

type LookupConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"` // tenant branding and states warm-up
}

type WorkerConfig struct {
	Workers int `yaml:"workers"`
}

type SecurityConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	EncryptionKey string        `yaml:"encryption_key"` // 32 bytes
	SessionTTL    time.Duration `yaml:"session_ttl"`
}

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Backend  BackendConfig  `yaml:"backend"`
	Redis    RedisConfig    `yaml:"redis"`
	Wizard   WizardConfig   `yaml:"wizard"`
	Payment  PaymentConfig  `yaml:"payment"`
	Worker   WorkerConfig   `yaml:"worker"`
	Lookup   LookupConfig   `yaml:"lookup"`
	Security SecurityConfig `yaml:"security"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the yaml file at path, fills defaults and checks the
// fields the portal cannot start without.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Backend.BaseURL == "" {
		return nil, errors.New("backend.base_url is required")
	}
	if cfg.Backend.Tenant == "" {
		return nil, errors.New("backend.tenant is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Security.JWTSecret == "" {
		return nil, errors.New("security.jwt_secret is required")
	}
	if len(cfg.Security.EncryptionKey) != 32 {
		return nil, errors.New("security.encryption_key must be 32 bytes")
	}
	for svc, mode := range cfg.Payment.Modes {
		if _, err := model.ParseServiceType(svc); err != nil {
			return nil, fmt.Errorf("payment.modes: unknown service %q", svc)
		}
		if _, ok := model.ParsePaymentMode(mode); !ok {
			return nil, fmt.Errorf("payment.modes.%s: unknown mode %q", svc, mode)
		}
	}
	for svc := range cfg.Payment.SuccessPredicates {
		if _, err := model.ParseServiceType(svc); err != nil {
			return nil, fmt.Errorf("payment.success_predicates: unknown service %q", svc)
		}
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.Timeout <= 0 {
		cfg.HTTP.Timeout = 30 * time.Second
	}
	cfg.HTTP.PublicBaseURL = strings.TrimRight(cfg.HTTP.PublicBaseURL, "/")
	if cfg.HTTP.PublicBaseURL == "" {
		cfg.HTTP.PublicBaseURL = fmt.Sprintf("http://localhost:%d", cfg.HTTP.Port)
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
	if cfg.Backend.Timeout <= 0 {
		cfg.Backend.Timeout = 15 * time.Second
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Wizard.StateTTL <= 0 {
		cfg.Wizard.StateTTL = 15 * time.Minute
	}
	if cfg.Wizard.OTPSendLimit <= 0 {
		cfg.Wizard.OTPSendLimit = 3
	}
	if cfg.Wizard.OTPWindow <= 0 {
		cfg.Wizard.OTPWindow = 10 * time.Minute
	}
	if cfg.Payment.Modes == nil {
		cfg.Payment.Modes = map[string]string{string(model.ServiceMigration): string(model.PaymentModePopup)}
	}
	if cfg.Payment.PendingTTL <= 0 {
		cfg.Payment.PendingTTL = 2 * time.Hour
	}
	if cfg.Payment.PopupInterval <= 0 {
		cfg.Payment.PopupInterval = time.Second
	}
	if cfg.Payment.PopupTimeout <= 0 {
		cfg.Payment.PopupTimeout = 10 * time.Minute
	}
	if cfg.Payment.MaxPopupWatches <= 0 {
		cfg.Payment.MaxPopupWatches = 256
	}
	if cfg.Payment.SuccessDelay <= 0 {
		cfg.Payment.SuccessDelay = 5 * time.Second
	}
	if cfg.Lookup.RefreshInterval <= 0 {
		cfg.Lookup.RefreshInterval = 30 * time.Minute
	}
	if cfg.Worker.Workers <= 0 {
		cfg.Worker.Workers = 4
	}
	if cfg.Security.SessionTTL <= 0 {
		cfg.Security.SessionTTL = 8 * time.Hour
	}
}

// PaymentModes resolves the configured handoff policy for every service;
// services not listed use the inline redirect.
func (c *Config) PaymentModes() map[model.ServiceType]model.PaymentMode {
	out := map[model.ServiceType]model.PaymentMode{
		model.ServiceRegistration: model.PaymentModeInline,
		model.ServiceMigration:    model.PaymentModeInline,
		model.ServiceTransfer:     model.PaymentModeInline,
		model.ServiceRenewal:      model.PaymentModeInline,
	}
	for svc, mode := range c.Payment.Modes {
		s, err := model.ParseServiceType(svc)
		if err != nil {
			continue
		}
		if m, ok := model.ParsePaymentMode(mode); ok {
			out[s] = m
		}
	}
	return out
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
