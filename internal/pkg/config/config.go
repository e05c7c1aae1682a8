package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override; "__" separates levels,
// e.g. WARMANO_ODOO__CALL_TIMEOUT=20s.
const EnvPrefix = "WARMANO_"

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Odoo    OdooConfig    `koanf:"odoo"`
	Booking BookingConfig `koanf:"booking"`
	Storage StorageConfig `koanf:"storage"`
	Logging LoggingConfig `koanf:"logging"`
	Tracing TracingConfig `koanf:"tracing"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
	// AdminAPIKey protects the diagnostics and journal routes. Empty
	// disables them.
	AdminAPIKey string          `koanf:"admin_api_key"`
	RateLimit   RateLimitConfig `koanf:"rate_limit"`
	// RequestTimeout bounds every HTTP request.
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// RateLimitConfig limits public POST routes per client IP.
type RateLimitConfig struct {
	Enabled           bool    `koanf:"enabled"`
	RequestsPerMinute float64 `koanf:"requests_per_minute"`
	Burst             int     `koanf:"burst"`
}

type OdooConfig struct {
	URL         string        `koanf:"url"`
	DB          string        `koanf:"db"`
	Username    string        `koanf:"username"`
	APIKey      string        `koanf:"api_key"`
	CallTimeout time.Duration `koanf:"call_timeout"`
	// SessionTTL of zero authenticates before every call.
	SessionTTL time.Duration `koanf:"session_ttl"`
}

type BookingConfig struct {
	AppointmentURL   string        `koanf:"appointment_url"`
	TemplateName     string        `koanf:"template_name"`
	Deadline         time.Duration `koanf:"deadline"`
	CountryID        int64         `koanf:"country_id"`
	PortalGroupID    int64         `koanf:"portal_group_id"`
	FallbackRoleID   int64         `koanf:"fallback_role_id"`
	ReferralSourceID int64         `koanf:"referral_source_id"`
	// BatchRoleReads reads all sign items of a template in one call instead
	// of one call per item.
	BatchRoleReads bool `koanf:"batch_role_reads"`
}

type StorageConfig struct {
	Driver string `koanf:"driver"` // memory, sqlite
	DSN    string `koanf:"dsn"`
}

type LoggingConfig struct {
	Level string `koanf:"level"` // debug, info, warn, error
}

type TracingConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

var defaults = map[string]any{
	"server.port":                           8080,
	"server.request_timeout":                "90s",
	"server.rate_limit.enabled":             true,
	"server.rate_limit.requests_per_minute": 10.0,
	"server.rate_limit.burst":               5,
	"odoo.call_timeout":                     "15s",
	"odoo.session_ttl":                      "10m",
	"booking.appointment_url":               "https://warmano.odoo.com/book/warmano-wartungstermin",
	"booking.template_name":                 "WARMANO Wartungsvertrag.pdf",
	"booking.deadline":                      "60s",
	"booking.country_id":                    57,
	"booking.portal_group_id":               10,
	"booking.fallback_role_id":              7,
	"booking.referral_source_id":            1,
	"storage.driver":                        "memory",
	"logging.level":                         "info",
	"tracing.service_name":                  "warmano-gateway",
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads config.yaml from the working directory, if present.
func Load() (*Config, error) {
	return LoadFile("config.yaml")
}

// LoadFile reads path (a missing file is fine), applies WARMANO_ environment
// overrides and defaults, and expands ${VAR} references in secrets.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Odoo.URL = strings.TrimRight(substituteEnvVars(cfg.Odoo.URL), "/")
	cfg.Odoo.DB = substituteEnvVars(cfg.Odoo.DB)
	cfg.Odoo.Username = substituteEnvVars(cfg.Odoo.Username)
	cfg.Odoo.APIKey = substituteEnvVars(cfg.Odoo.APIKey)
	cfg.Server.AdminAPIKey = substituteEnvVars(cfg.Server.AdminAPIKey)
	cfg.Storage.DSN = substituteEnvVars(cfg.Storage.DSN)

	return &cfg, nil
}

// Validate reports the first setting the gateway cannot start without.
func (c *Config) Validate() error {
	switch {
	case c.Odoo.URL == "":
		return errors.New("odoo.url is required")
	case c.Odoo.DB == "":
		return errors.New("odoo.db is required")
	case c.Odoo.Username == "":
		return errors.New("odoo.username is required")
	case c.Odoo.APIKey == "":
		return errors.New("odoo.api_key is required")
	case c.Server.Port <= 0:
		return fmt.Errorf("server.port %d is invalid", c.Server.Port)
	case c.Odoo.SessionTTL < 0:
		return errors.New("odoo.session_ttl must not be negative")
	}
	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	return nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
