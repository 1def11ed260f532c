package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"placeharvest/pkg/config"
	"placeharvest/pkg/credentials"
	"placeharvest/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage placeharvest configuration.

Configuration is loaded from, highest priority first:
  - Command line flags
  - Environment variables (PLACEHARVEST_*)
  - .env files
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the defaults",
	Run:   runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Run:   runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Run:   runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	path := configFile
	if path == "" {
		path = ".placeharvest.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		ui.PrintError("Configuration file already exists", path)
		os.Exit(1)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Store an outreach API key with 'placeharvest auth set-key'")
	fmt.Println("2. Run 'placeharvest config validate'")
	fmt.Println("3. Start with 'placeharvest run <seed-url>'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)

	display := *cfg
	if display.Outreach.APIKey != "" {
		display.Outreach.APIKey = credentials.Mask(display.Outreach.APIKey)
	}
	display.Progress.DSN = maskDSN(display.Progress.DSN)
	display.Sink.DSN = maskDSN(display.Sink.DSN)

	data, err := yaml.Marshal(&display)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}
	fmt.Print(string(data))
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)

	var warnings []string
	if cfg.Run.SeedURL == "" {
		warnings = append(warnings, "no default seed URL; pass one to 'placeharvest run'")
	}
	if cfg.Outreach.Enabled && cfg.Outreach.APIKey == "" {
		warnings = append(warnings, "outreach enabled without a configured API key; the stored key or template copy is used")
	}
	if cfg.Sink.Type != "postgres" && cfg.Sink.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Sink.Path), 0755); err != nil {
			warnings = append(warnings, fmt.Sprintf("cannot create sink directory: %v", err))
		}
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")
	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Quota: %d\n", cfg.Run.Quota)
	fmt.Printf("  Progress backend: %s\n", cfg.Progress.Backend)
	fmt.Printf("  Sink: %s\n", cfg.Sink.Type)
	fmt.Printf("  Panel opens: %d/minute\n", cfg.RateLimit.ActionsPerMinute)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}

func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
