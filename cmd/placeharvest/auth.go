package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"placeharvest/pkg/credentials"
	"placeharvest/pkg/ui"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the outreach API key",
	Long: `Manage API keys used for outreach copy generation.

Keys are stored using, in order of preference:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read only)`,
}

var setKeyCmd = &cobra.Command{
	Use:     "set-key [name]",
	Short:   "Store an API key",
	Example: "  placeharvest auth set-key openai",
	Args:    cobra.MaximumNArgs(1),
	Run:     runSetKey,
}

var statusCmd = &cobra.Command{
	Use:   "status [name]",
	Short: "Show where an API key is stored",
	Args:  cobra.MaximumNArgs(1),
	Run:   runAuthStatus,
}

var clearCmd = &cobra.Command{
	Use:   "clear [name]",
	Short: "Remove a stored API key",
	Args:  cobra.MaximumNArgs(1),
	Run:   runAuthClear,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(setKeyCmd)
	authCmd.AddCommand(statusCmd)
	authCmd.AddCommand(clearCmd)
}

func keyName(args []string) string {
	if len(args) > 0 {
		return strings.ToLower(strings.TrimSpace(args[0]))
	}
	return "openai"
}

func newManager() *credentials.Manager {
	manager, err := credentials.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}
	return manager
}

func runSetKey(cmd *cobra.Command, args []string) {
	name := keyName(args)
	manager := newManager()

	fmt.Printf("%s API key (input is hidden): ", name)
	value, err := readPassword()
	fmt.Println()
	if err != nil {
		ui.PrintError("Failed to read key", err.Error())
		os.Exit(1)
	}

	kind, err := manager.Set(name, value)
	if err != nil {
		ui.PrintError("Failed to store key", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess(fmt.Sprintf("Key stored in %s", kind))
}

func runAuthStatus(cmd *cobra.Command, args []string) {
	name := keyName(args)
	manager := newManager()

	ui.PrintInfo("Stores", strings.Join(manager.Kinds(), ", "))

	value, kind, err := manager.Get(name)
	if errors.Is(err, credentials.ErrNotFound) {
		ui.PrintWarning("No key stored for " + name)
		return
	}
	if err != nil {
		ui.PrintError("Failed to read key", err.Error())
		os.Exit(1)
	}
	ui.PrintInfo(name, fmt.Sprintf("%s (%s)", credentials.Mask(value), kind))
}

func runAuthClear(cmd *cobra.Command, args []string) {
	name := keyName(args)
	err := newManager().Delete(name)
	if errors.Is(err, credentials.ErrNotFound) {
		ui.PrintWarning("No key stored for " + name)
		return
	}
	if err != nil {
		ui.PrintError("Failed to remove key", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Key removed for " + name)
}

func readPassword() (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		var line string
		_, err := fmt.Scanln(&line)
		return strings.TrimSpace(line), err
	}
	b, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
