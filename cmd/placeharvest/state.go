package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"placeharvest/pkg/logger"
	"placeharvest/pkg/progress"
	"placeharvest/pkg/ui"
)

var (
	stateSeed string
	listSeen  bool
	assumeYes bool
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or change saved progress",
	Long: `Inspect or change the saved progress: the resume cursor and the set of
places already written. Progress is kept per seed URL unless progress.key is set.`,
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the cursor and seen count",
	Run:   runStateShow,
}

var stateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Move the cursor back to the top of the listing",
	Long:  `Move the cursor back to 0. Places already written stay in the seen set and are not written again.`,
	Run:   runStateReset,
}

var stateForgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Clear the cursor and the seen set",
	Long:  `Clear all saved progress. The next run may write places that were written before.`,
	Run:   runStateForget,
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(stateResetCmd)
	stateCmd.AddCommand(stateForgetCmd)

	stateCmd.PersistentFlags().StringVar(&stateSeed, "seed", "", "seed URL whose progress to use (default from config)")
	stateShowCmd.Flags().BoolVar(&listSeen, "list", false, "print every seen identity")
	stateForgetCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
}

func openStore(ctx context.Context) *progress.Store {
	flags := map[string]interface{}{}
	if stateSeed != "" {
		flags["seed-url"] = stateSeed
	}
	cfg := loadConfig(flags)
	log := logger.GetLogger()

	backend, err := progress.OpenBackend(ctx, cfg.Progress, log)
	if err != nil {
		ui.PrintError("Failed to open progress store", err.Error())
		os.Exit(1)
	}
	store := progress.NewStore(backend, progress.KeyFor(cfg.Progress.Key, cfg.Run.SeedURL), log)
	if _, err := store.Load(ctx); err != nil {
		store.Close()
		ui.PrintError("Failed to load progress", err.Error())
		os.Exit(1)
	}
	return store
}

func runStateShow(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	store := openStore(ctx)
	defer store.Close()

	state := store.Snapshot()
	ui.PrintInfo("Cursor", fmt.Sprint(state.Cursor))
	ui.PrintInfo("Seen", fmt.Sprint(len(state.Seen)))
	if listSeen {
		for _, id := range state.SeenList() {
			fmt.Println(id)
		}
	}
}

func runStateReset(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	store := openStore(ctx)
	defer store.Close()

	if err := store.Reset(ctx); err != nil {
		ui.PrintError("Failed to reset cursor", err.Error())
		return
	}
	ui.PrintSuccess("Cursor reset to 0")
}

func runStateForget(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	store := openStore(ctx)
	defer store.Close()

	if !assumeYes {
		fmt.Printf("Forget %d seen places? (y/N): ", len(store.Snapshot().Seen))
		input, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	if err := store.Forget(ctx); err != nil {
		ui.PrintError("Failed to clear progress", err.Error())
		return
	}
	ui.PrintSuccess("Progress cleared")
}
