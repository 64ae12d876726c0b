package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tansive/vaultconsole/internal/common/apperrors"
	"github.com/tansive/vaultconsole/internal/common/httpclient"
	"github.com/tansive/vaultconsole/internal/common/logtrace"
	"github.com/tansive/vaultconsole/internal/vaultapi"
)

var (
	// Global flags
	jsonOutput bool
	configFile string
	logLevel   string
)

var ErrAlreadyHandled = errors.New("already handled")

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)
var warnLabel = color.New(color.FgYellow)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vaultctl [command] [flags]",
	Short: "vaultctl - A command line interface for the data vault metadata backend",
	Long: `vaultctl is a command line interface for the data vault metadata backend.
It lists and exports metadata collections, validates and submits component
records from YAML manifests, moves project files and runs read-only queries
against the warehouse.

Examples:
  # Point vaultctl at the backend and store a token
  vaultctl config --server vault.example.com:8443
  vaultctl login --token "$VAULT_BACKEND_TOKEN"

  # List hubs of project p1 created in March
  vaultctl list dh --filter projectshortname=p1 --from 2024-03-01 --to 2024-03-31

  # Validate and create components
  vaultctl validate -f hubs.yaml
  vaultctl create -f hubs.yaml`,
	PersistentPreRun: preRunHandlePersistents,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	// Set up persistent flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "", "", "Path to configuration file to override default")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "", "warn", "Log level for diagnostic output on stderr")

	// Add commands
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newLoginCmd())
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true // Prevent Cobra from printing the error
	rootCmd.SilenceUsage = true  // Prevent Cobra from printing usage on error

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if errors.Is(err, ErrAlreadyHandled) {
			os.Exit(1)
		}
		if jsonOutput {
			kv := map[string]string{
				"error": errorText(err),
			}
			printJSON(kv)
		} else {
			errorLabel.Fprintf(os.Stderr, "Error: %v\n", errorText(err))
		}
		os.Exit(1)
	}
}

// errorText expands the causes of application errors that carry them.
func errorText(err error) string {
	var appErr apperrors.Error
	if errors.As(err, &appErr) {
		return appErr.ErrorAll()
	}
	return err.Error()
}

// preRunHandlePersistents handles persistent flags and configuration loading before command execution
func preRunHandlePersistents(cmd *cobra.Command, args []string) {
	logtrace.InitLogger(logLevel)
	zerolog.DefaultContextLogger = &log.Logger

	// if a config file is provided, load config from config file
	if configFile == "" {
		var err error
		configFile, err = GetDefaultConfigPath()
		if err != nil {
			errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if skipsConfig(cmd) {
		return
	}
	if err := LoadConfig(configFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Println("vaultctl config file not found. Configure vaultctl with \"vaultctl config --server <host:port>\" first.")
			os.Exit(1)
		}
		fmt.Printf("%s\n", err.Error())
		os.Exit(1)
	}
}

// skipsConfig reports whether cmd runs without a loaded configuration. The
// query command only needs a DSN, which may come from its flag or the
// environment.
func skipsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "config", "version", "query":
			return true
		}
	}
	return false
}

// newBackend builds the metadata backend client from the loaded configuration.
func newBackend() (*vaultapi.Client, error) {
	cfg := GetConfig()
	if cfg == nil {
		return nil, fmt.Errorf("no configuration loaded")
	}
	client := httpclient.NewClient(cfg, httpclient.ClientOptions{Timeout: cfg.RequestTimeout()})
	var opts []vaultapi.Option
	if cfg.FilePrefix != "" {
		opts = append(opts, vaultapi.WithFilePrefix(cfg.FilePrefix))
	}
	return vaultapi.New(client, opts...), nil
}

// newVersionCmd creates and returns a new version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of vaultctl",
		Run: func(cmd *cobra.Command, args []string) {
			// Get the config file path
			configPath, err := GetDefaultConfigPath()
			if err != nil {
				configPath = "unknown"
			}

			if jsonOutput {
				kv := map[string]string{
					"version":     getCLIVersion(),
					"config_file": configPath,
				}
				printJSON(kv)
			} else {
				cmd.Printf("vaultctl %s\n", getCLIVersion())
				cmd.Printf("Config file: %s\n", configPath)
			}
		},
	}
}

// printJSON prints the given value as indented JSON to stdout
func printJSON(data any) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(jsonData))
}

// getCLIVersion returns the current CLI version
func getCLIVersion() string {
	return "v0.1.0"
}
