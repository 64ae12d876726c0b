package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default name of the config file
const DefaultConfigFile = "config.yaml"

// configVersion is the format version written by this release.
const configVersion = "0.1.0"

// defaultRequestTimeout applies when the config file sets none.
const defaultRequestTimeout = 30 * time.Second

// Config represents the configuration for vaultctl.
// It contains backend connection details and authentication information.
type Config struct {
	// Version of the configuration file format
	Version string `yaml:"version"`
	// ServerURL is the URL and port of the metadata backend
	ServerURL string `yaml:"server_url"`
	// FilePrefix overrides the path of the file management endpoints
	FilePrefix string `yaml:"file_prefix,omitempty"`
	// Timeout bounds each backend request, e.g. "30s"
	Timeout string `yaml:"timeout,omitempty"`
	// Token is the bearer token sent to the backend
	Token string `yaml:"token"`
	// TokenExpiry is when the token expires, empty for opaque tokens
	TokenExpiry string `yaml:"token_expiry"`
	// User is the email or subject named by the token
	User string `yaml:"user,omitempty"`
	// QueryDSN is the warehouse connection used by the query command
	QueryDSN string `yaml:"query_dsn,omitempty"`
}

var config *Config

// GetDefaultConfigPath returns the default path for the config file
// It uses the OS-specific config directory (e.g., ~/.config/vaultctl on Linux)
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "vaultctl", DefaultConfigFile), nil
}

// readConfig parses file without installing it as the active configuration.
func readConfig(file string) (*Config, error) {
	yamlStr, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	var c Config
	if err = yaml.Unmarshal(yamlStr, &c); err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}
	if c.Timeout != "" {
		if _, err := time.ParseDuration(c.Timeout); err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
		}
	}
	return &c, nil
}

// LoadConfig loads the configuration from the specified file
// If no file is specified, it uses the default config location
func LoadConfig(file string) error {
	if file == "" {
		var err error
		file, err = GetDefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get default config path: %w", err)
		}
	}

	c, err := readConfig(file)
	if err != nil {
		return err
	}

	// Validate required fields
	if c.ServerURL == "" {
		return errors.New("server:port is required")
	}

	// Validate server port format
	if !strings.Contains(c.ServerURL, ":") {
		return errors.New("server:port must include port number")
	}

	// Morph the server URL before storing
	c.ServerURL = MorphServer(c.ServerURL)

	config = c
	return nil
}

// GetConfig returns the current configuration
func GetConfig() *Config {
	return config
}

// WriteConfig writes the current configuration to the specified file
func (cfg *Config) WriteConfig(file string) error {
	if file == "" {
		return errors.New("file path cannot be empty")
	}

	err := os.MkdirAll(filepath.Dir(file), os.ModePerm)
	if err != nil {
		return fmt.Errorf("unable to create config directory: %w", err)
	}

	yamlStr, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("unable to generate configuration: %w", err)
	}

	err = os.WriteFile(file, yamlStr, os.FileMode(0600))
	if err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}

	return nil
}

// MorphServer ensures the server URL is properly formatted
// Adds https:// prefix if missing and removes trailing slashes
func MorphServer(server string) string {
	if server == "" {
		return server
	}

	// Remove any trailing slashes
	server = strings.TrimRight(server, "/")

	// Add https:// if no protocol is specified
	if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
		server = "https://" + server
	}

	return server
}

// GetServerURL returns the properly formatted server URL
func (cfg *Config) GetServerURL() string {
	return MorphServer(cfg.ServerURL)
}

// GetToken returns the bearer token from the configuration
func (cfg *Config) GetToken() string {
	return cfg.Token
}

// GetTokenExpiry returns the token expiry time from the configuration
func (cfg *Config) GetTokenExpiry() time.Time {
	if cfg.TokenExpiry == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, cfg.TokenExpiry)
	if err != nil {
		return time.Time{}
	}
	return t
}

// RequestTimeout is the configured per-request timeout.
func (cfg *Config) RequestTimeout() time.Duration {
	if d, err := time.ParseDuration(cfg.Timeout); err == nil && d > 0 {
		return d
	}
	return defaultRequestTimeout
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long:  `Manage CLI configuration settings like the backend address and authentication.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		serverFlag, _ := cmd.Flags().GetString("server")
		if serverFlag != "" {
			prefix, _ := cmd.Flags().GetString("file-prefix")
			return setServerConfig(serverFlag, prefix)
		}

		if cfg, err := readConfig(configFile); err == nil {
			if jsonOutput {
				printJSON(map[string]string{
					"server":       cfg.GetServerURL(),
					"user":         cfg.User,
					"token_expiry": cfg.TokenExpiry,
					"config_file":  configFile,
				})
				return nil
			}
			cfg.Print()
			return nil
		}

		// If no specific flag is provided and no config exists, show help
		cmd.Help()
		return nil
	},
}

// Print prints the current configuration in a human-readable format
func (cfg *Config) Print() {
	fmt.Printf("Server: %s\n", cfg.GetServerURL())
	if cfg.User != "" {
		fmt.Printf("User: %s\n", cfg.User)
	}
	if cfg.TokenExpiry != "" {
		fmt.Printf("Token expires at: %s\n", cfg.TokenExpiry)
	}
}

// configClearCmd represents the config clear command
var configClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the stored token",
	Long: `Clear the stored token. This removes the bearer token, its expiry
time and the user it belongs to. The backend address is kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := LoadConfig(configFile); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				fmt.Println("vaultctl config file not found. Configure vaultctl with \"vaultctl config --server <host:port>\" first.")
				return ErrAlreadyHandled
			}
			return fmt.Errorf("unable to load config file: %w", err)
		}
		cfg := GetConfig()
		cfg.Token = ""
		cfg.TokenExpiry = ""
		cfg.User = ""

		if err := cfg.WriteConfig(configFile); err != nil {
			return fmt.Errorf("failed to save config: %v", err)
		}

		if jsonOutput {
			printJSON(map[string]int{"result": 1})
		} else {
			fmt.Println("Token cleared. Log in again with \"vaultctl login --token <token>\"")
		}

		return nil
	},
}

func init() {
	configCmd.Flags().String("server", "", "Set the backend URL and port (e.g., example.com:8080)")
	configCmd.Flags().String("file-prefix", "", "Path prefix of the file management endpoints")

	configCmd.AddCommand(configClearCmd)
	rootCmd.AddCommand(configCmd)
}

// setServerConfig writes a fresh configuration pointing at server. Any stored
// token is dropped since it belongs to the previous backend.
func setServerConfig(server, filePrefix string) error {
	configPath := configFile
	if configPath == "" {
		var err error
		configPath, err = GetDefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get default config path: %w", err)
		}
	}

	if !strings.Contains(server, ":") {
		return errors.New("server must include port number (e.g., example.com:8080)")
	}

	cfg := &Config{
		Version:    configVersion,
		ServerURL:  MorphServer(server),
		FilePrefix: filePrefix,
	}
	if prev, err := readConfig(configPath); err == nil {
		cfg.QueryDSN = prev.QueryDSN
		cfg.Timeout = prev.Timeout
		if filePrefix == "" {
			cfg.FilePrefix = prev.FilePrefix
		}
	}

	if err := cfg.WriteConfig(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if jsonOutput {
		printJSON(map[string]string{
			"server":      cfg.ServerURL,
			"config_file": configPath,
		})
	} else {
		fmt.Printf("Server configured: %s\n", cfg.ServerURL)
		fmt.Printf("Config file: %s\n", configPath)
	}

	return nil
}
