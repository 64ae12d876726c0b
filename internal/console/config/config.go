// Package config loads the vaultconsole service configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"github.com/joho/godotenv"
)

// ConfigFormatVersion is the current version of the configuration file format.
const ConfigFormatVersion = "0.1.0"

// formatConstraint accepts any 0.1.x configuration file.
var formatConstraint = mustConstraint("~" + ConfigFormatVersion)

func mustConstraint(c string) *semver.Constraints {
	cs, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return cs
}

// Environment overrides, also read from the env file.
const (
	EnvBackendToken = "VAULT_BACKEND_TOKEN"
	EnvQueryDSN     = "VAULT_QUERY_DSN"
)

// BackendConfig holds the metadata backend connection settings
type BackendConfig struct {
	URL                string `toml:"url"`                  // Backend base URL
	Token              string `toml:"token"`                // Bearer token, usually set via VAULT_BACKEND_TOKEN
	FilePrefix         string `toml:"file_prefix"`          // Path prefix of the file management endpoints
	Timeout            string `toml:"timeout"`              // Per-request timeout
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"` // Skip TLS verification
}

// StoreConfig holds collection store settings
type StoreConfig struct {
	SnapshotPath    string `toml:"snapshot_path"`    // Snapshot file, empty disables snapshots
	RefreshInterval string `toml:"refresh_interval"` // Background refresh period, empty disables it
	WarmAttempts    uint   `toml:"warm_attempts"`    // Startup load attempts
}

// FormsConfig holds form session settings
type FormsConfig struct {
	IdleTimeout string `toml:"idle_timeout"` // Idle sessions older than this are closed
}

// QueryConfig holds the warehouse query panel settings
type QueryConfig struct {
	DSN              string `toml:"dsn"`               // Warehouse DSN, usually set via VAULT_QUERY_DSN
	StatementTimeout string `toml:"statement_timeout"` // Statement timeout
	RowLimit         int    `toml:"row_limit"`         // Maximum rows returned
}

// ConfigParam holds all configuration parameters for vaultconsole
type ConfigParam struct {
	// Configuration version
	FormatVersion string `toml:"format_version"` // Version of this configuration file format

	// Server configuration
	ServerHostName string   `toml:"server_hostname"` // Hostname to listen on
	ServerPort     string   `toml:"server_port"`     // Port to listen on
	HandleCORS     bool     `toml:"handle_cors"`     // Whether to handle CORS
	CORSOrigins    []string `toml:"cors_origins"`    // Allowed origins when handling CORS
	RequestTimeout string   `toml:"request_timeout"` // Per-request handler timeout
	LogLevel       string   `toml:"log_level"`       // zerolog level name
	UserEmail      string   `toml:"user_email"`      // Operator identity for project scoping

	Backend BackendConfig `toml:"backend"`
	Store   StoreConfig   `toml:"store"`
	Forms   FormsConfig   `toml:"forms"`
	Query   QueryConfig   `toml:"query"`
}

var cfg *ConfigParam

// Config returns the loaded configuration.
func Config() *ConfigParam {
	return cfg
}

// ListenAddr returns host:port for the HTTP server.
func (c *ConfigParam) ListenAddr() string {
	return c.ServerHostName + ":" + c.ServerPort
}

// GetServerURL and GetToken let the configuration drive the backend HTTP client.
func (c *ConfigParam) GetServerURL() string { return c.Backend.URL }

// GetToken returns the bearer token sent to the backend.
func (c *ConfigParam) GetToken() string { return c.Backend.Token }

// BackendTimeout returns the backend request timeout.
func (c *ConfigParam) BackendTimeout() time.Duration { return mustDuration(c.Backend.Timeout) }

// HandlerTimeout returns the per-request handler timeout.
func (c *ConfigParam) HandlerTimeout() time.Duration { return mustDuration(c.RequestTimeout) }

// RefreshInterval returns the background refresh period, zero when disabled.
func (c *ConfigParam) RefreshInterval() time.Duration { return mustDuration(c.Store.RefreshInterval) }

// FormIdleTimeout returns the idle form session timeout.
func (c *ConfigParam) FormIdleTimeout() time.Duration { return mustDuration(c.Forms.IdleTimeout) }

// StatementTimeout returns the query panel statement timeout.
func (c *ConfigParam) StatementTimeout() time.Duration { return mustDuration(c.Query.StatementTimeout) }

// mustDuration is only used on values ValidateConfig has accepted.
func mustDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// ValidateConfig checks required values and fills defaults.
func ValidateConfig(cfg *ConfigParam) error {
	v, err := semver.NewVersion(cfg.FormatVersion)
	if err != nil || !formatConstraint.Check(v) {
		return fmt.Errorf("unsupported config file format version: %s", cfg.FormatVersion)
	}

	if cfg.ServerPort == "" {
		return fmt.Errorf("server_port is required")
	}
	if cfg.ServerHostName == "" {
		cfg.ServerHostName = "127.0.0.1"
	}
	if cfg.HandleCORS && len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if cfg.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	if !strings.HasPrefix(cfg.Backend.URL, "http://") && !strings.HasPrefix(cfg.Backend.URL, "https://") {
		return fmt.Errorf("backend.url must be an http or https URL: %s", cfg.Backend.URL)
	}
	if cfg.Backend.FilePrefix == "" {
		cfg.Backend.FilePrefix = "api/file-management"
	}
	if cfg.Store.WarmAttempts == 0 {
		cfg.Store.WarmAttempts = 3
	}
	if cfg.Query.RowLimit < 0 {
		return fmt.Errorf("query.row_limit must not be negative")
	}

	durations := []struct {
		name string
		val  *string
		def  string
	}{
		{"request_timeout", &cfg.RequestTimeout, "30s"},
		{"backend.timeout", &cfg.Backend.Timeout, "15s"},
		{"store.refresh_interval", &cfg.Store.RefreshInterval, ""},
		{"forms.idle_timeout", &cfg.Forms.IdleTimeout, "2h"},
		{"query.statement_timeout", &cfg.Query.StatementTimeout, "5s"},
	}
	for _, d := range durations {
		if *d.val == "" {
			*d.val = d.def
			continue
		}
		if _, err := time.ParseDuration(*d.val); err != nil {
			return fmt.Errorf("invalid %s: %v", d.name, err)
		}
	}
	return nil
}

// applyEnv overrides secrets from the environment. envFile is loaded first
// when it exists; variables already set in the process win.
func applyEnv(cfg *ConfigParam, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("error reading env file: %v", err)
		}
	}
	if v := os.Getenv(EnvBackendToken); v != "" {
		cfg.Backend.Token = v
	}
	if v := os.Getenv(EnvQueryDSN); v != "" {
		cfg.Query.DSN = v
	}
	return nil
}

// Parse decodes and validates a configuration document.
func Parse(content string, envFile string) (*ConfigParam, error) {
	c := &ConfigParam{}
	if _, err := toml.Decode(content, c); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}
	if err := applyEnv(c, envFile); err != nil {
		return nil, err
	}
	if err := ValidateConfig(c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}
	return c, nil
}

// LoadConfig loads configuration from a file and makes it the current configuration.
func LoadConfig(filename, envFile string) error {
	if filename == "" {
		return fmt.Errorf("config filename is required")
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}
	c, err := Parse(string(content), envFile)
	if err != nil {
		return err
	}
	cfg = c
	return nil
}
