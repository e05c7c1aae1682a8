package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %v, want 8080", cfg.Server.Port)
	}
	if cfg.Odoo.CallTimeout != 15*time.Second {
		t.Errorf("Odoo.CallTimeout = %v, want 15s", cfg.Odoo.CallTimeout)
	}
	if cfg.Odoo.SessionTTL != 10*time.Minute {
		t.Errorf("Odoo.SessionTTL = %v, want 10m", cfg.Odoo.SessionTTL)
	}
	if cfg.Booking.Deadline != time.Minute {
		t.Errorf("Booking.Deadline = %v, want 1m", cfg.Booking.Deadline)
	}
	if cfg.Booking.TemplateName != "WARMANO Wartungsvertrag.pdf" {
		t.Errorf("Booking.TemplateName = %v", cfg.Booking.TemplateName)
	}
	if cfg.Booking.CountryID != 57 || cfg.Booking.PortalGroupID != 10 || cfg.Booking.FallbackRoleID != 7 || cfg.Booking.ReferralSourceID != 1 {
		t.Errorf("Booking ids = %+v", cfg.Booking)
	}
	if !cfg.Server.RateLimit.Enabled || cfg.Server.RateLimit.RequestsPerMinute != 10 || cfg.Server.RateLimit.Burst != 5 {
		t.Errorf("Server.RateLimit = %+v", cfg.Server.RateLimit)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("Storage.Driver = %v, want memory", cfg.Storage.Driver)
	}
}

func TestLoadFile_FileAndSubstitution(t *testing.T) {
	t.Setenv("TEST_ODOO_KEY", "secret-key")
	path := writeConfig(t, `
odoo:
  url: https://warmano.odoo.com/
  db: warmano
  username: api@warmano.de
  api_key: ${TEST_ODOO_KEY}
  session_ttl: 0s
booking:
  batch_role_reads: true
server:
  rate_limit:
    enabled: false
storage:
  driver: sqlite
  dsn: journal.db
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Odoo.URL != "https://warmano.odoo.com" {
		t.Errorf("Odoo.URL = %v, want trailing slash trimmed", cfg.Odoo.URL)
	}
	if cfg.Odoo.APIKey != "secret-key" {
		t.Errorf("Odoo.APIKey = %v, want substituted value", cfg.Odoo.APIKey)
	}
	if cfg.Odoo.SessionTTL != 0 {
		t.Errorf("Odoo.SessionTTL = %v, want 0", cfg.Odoo.SessionTTL)
	}
	if !cfg.Booking.BatchRoleReads {
		t.Error("Booking.BatchRoleReads = false, want true")
	}
	if cfg.Server.RateLimit.Enabled {
		t.Error("Server.RateLimit.Enabled = true, want false from file")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadFile_EnvOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 7000\nodoo:\n  call_timeout: 5s\n")
	t.Setenv("WARMANO_SERVER__PORT", "9000")
	t.Setenv("WARMANO_ODOO__CALL_TIMEOUT", "20s")
	t.Setenv("WARMANO_LOGGING__LEVEL", "debug")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %v, want 9000", cfg.Server.Port)
	}
	if cfg.Odoo.CallTimeout != 20*time.Second {
		t.Errorf("Odoo.CallTimeout = %v, want 20s", cfg.Odoo.CallTimeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %v, want debug", cfg.Logging.Level)
	}
}

func TestLoadFile_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed\n")
	if _, err := LoadFile(path); err == nil {
		t.Fatal("LoadFile() expected error")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 8080},
			Odoo:    OdooConfig{URL: "https://x", DB: "db", Username: "u", APIKey: "k"},
			Storage: StorageConfig{Driver: "memory"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing url", func(c *Config) { c.Odoo.URL = "" }, "odoo.url"},
		{"missing api key", func(c *Config) { c.Odoo.APIKey = "" }, "odoo.api_key"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"negative ttl", func(c *Config) { c.Odoo.SessionTTL = -time.Second }, "session_ttl"},
		{"sqlite without dsn", func(c *Config) { c.Storage.Driver = "sqlite" }, "storage.dsn"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "postgres" }, "postgres"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "test-value")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple substitution", "${TEST_VAR}", "test-value"},
		{"substitution in string", "prefix-${TEST_VAR}-suffix", "prefix-test-value-suffix"},
		{"no substitution", "plain-string", "plain-string"},
		{"undefined var", "${UNDEFINED_VAR_WARMANO}", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := substituteEnvVars(tt.input)
			if got != tt.want {
				t.Errorf("substituteEnvVars() = %v, want %v", got, tt.want)
			}
		})
	}
}
