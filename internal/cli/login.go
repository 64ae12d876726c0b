package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tansive/vaultconsole/internal/common/httpclient"
	"github.com/tansive/vaultconsole/internal/metadata"
)

// envToken is read when --token is not given.
const envToken = "VAULT_BACKEND_TOKEN"

// newLoginCmd creates and returns a new login command
func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a bearer token for the metadata backend",
		Long: `Store a bearer token for the metadata backend in your configuration file.
The token is checked against the backend by loading the project list unless
--no-verify is given. JWT tokens have their expiry and user recorded.

Example:
  vaultctl login --token eyJhbGciOi...
  VAULT_BACKEND_TOKEN=eyJhbGciOi... vaultctl login`,
		RunE: runLogin,
	}

	cmd.Flags().String("token", "", "Bearer token (defaults to $"+envToken+")")
	cmd.Flags().Bool("no-verify", false, "Store the token without contacting the backend")
	return cmd
}

// runLogin handles the login command execution
func runLogin(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("no configuration loaded")
	}

	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = os.Getenv(envToken)
	}
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return fmt.Errorf("no token provided. Use --token or set %s", envToken)
	}

	expiry, hasExpiry := httpclient.TokenExpiry(token)
	if hasExpiry && !time.Now().Before(expiry) {
		return fmt.Errorf("token expired at %s", expiry.Format(time.RFC3339))
	}

	cfg.Token = token
	cfg.User = httpclient.TokenSubject(token)
	cfg.TokenExpiry = ""
	if hasExpiry {
		cfg.TokenExpiry = expiry.UTC().Format(time.RFC3339)
	}

	if noVerify, _ := cmd.Flags().GetBool("no-verify"); !noVerify {
		backend, err := newBackend()
		if err != nil {
			return err
		}
		if _, err := backend.List(cmd.Context(), metadata.KindProject); err != nil {
			return fmt.Errorf("backend refused the token: %w", err)
		}
	}

	if err := cfg.WriteConfig(configFile); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	if jsonOutput {
		kv := map[string]any{
			"status":     "success",
			"message":    "Login successful",
			"user":       cfg.User,
			"expires_at": cfg.TokenExpiry,
		}
		printJSON(kv)
		return nil
	}
	okLabel.Println("✓ Login successful")
	if cfg.User != "" {
		fmt.Printf("User: %s\n", cfg.User)
	}
	if hasExpiry {
		fmt.Printf("Token expires at: %s\n", cfg.TokenExpiry)
	}
	return nil
}
