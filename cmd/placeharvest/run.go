package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"placeharvest/pkg/browser"
	"placeharvest/pkg/config"
	"placeharvest/pkg/credentials"
	"placeharvest/pkg/harvest"
	"placeharvest/pkg/logger"
	"placeharvest/pkg/outreach"
	"placeharvest/pkg/progress"
	"placeharvest/pkg/sink"
	"placeharvest/pkg/ui"
)

var (
	quota       int
	runTimeout  time.Duration
	headless    bool
	proxy       string
	resetBefore bool
	sinkType    string
	sinkPath    string
	useOutreach bool
	notify      bool
	jsonOutput  bool
)

var runCmd = &cobra.Command{
	Use:   "run <seed-url>",
	Short: "Harvest up to --quota new places from a search result listing",
	Long: `Open the seed URL, grow the result listing until it holds enough entries
and process entries from the saved cursor until the quota of new records is
written or the listing runs out.

When a run finds nothing new past the cursor, the cursor is reset so the
next run rescans the listing from the top. Places already written are
always skipped.`,
	Example: `  # Harvest 25 new dentists
  placeharvest run "https://www.google.com/maps/search/dentists+in+leeds" --quota 25

  # Write CSV and skip the outreach API
  placeharvest run "https://www.google.com/maps/search/plumbers" --sink csv --sink-path plumbers.csv --outreach=false`,
	Args: cobra.ExactArgs(1),
	Run:  runHarvest,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVarP(&quota, "quota", "n", 0, "number of new records to write (default from config)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "abort the run after this long")
	runCmd.Flags().BoolVar(&headless, "headless", true, "run the browser headless")
	runCmd.Flags().StringVar(&proxy, "proxy", "", "proxy server for the browser")
	runCmd.Flags().BoolVar(&resetBefore, "reset", false, "reset the cursor before running (seen places are kept)")
	runCmd.Flags().StringVar(&sinkType, "sink", "", "record sink: jsonl, csv or postgres")
	runCmd.Flags().StringVarP(&sinkPath, "sink-path", "o", "", "output file for jsonl and csv sinks")
	runCmd.Flags().BoolVar(&useOutreach, "outreach", true, "generate outreach copy through the API")
	runCmd.Flags().BoolVar(&notify, "notify", false, "send a desktop notification when the run ends")
	runCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the run summary as JSON")
}

func runHarvest(cmd *cobra.Command, args []string) {
	flags := map[string]interface{}{"seed-url": args[0]}
	if cmd.Flags().Changed("quota") {
		flags["quota"] = quota
	}
	if cmd.Flags().Changed("timeout") {
		flags["timeout"] = runTimeout
	}
	if cmd.Flags().Changed("headless") {
		flags["headless"] = headless
	}
	if proxy != "" {
		flags["proxy"] = proxy
	}
	if sinkType != "" {
		flags["sink"] = sinkType
	}
	if sinkPath != "" {
		flags["sink-path"] = sinkPath
	}
	if cmd.Flags().Changed("outreach") {
		flags["outreach"] = useOutreach
	}

	cfg := loadConfig(flags)
	if cfg.Run.Quota <= 0 {
		ui.PrintError("Quota must be positive")
		os.Exit(1)
	}

	if !quiet {
		ui.PrintInfo("Seed", cfg.Run.SeedURL)
		ui.PrintInfo("Quota", fmt.Sprint(cfg.Run.Quota))
	}

	sum, err := harvestOnce(cfg)
	if err != nil {
		logger.WithError(err).Error("Run setup failed")
		ui.PrintError("Run setup failed", err.Error())
		os.Exit(1)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(sum)
	} else {
		fmt.Println(ui.RenderSummary(sum))
	}

	if notify {
		n := ui.NewNotifier()
		title, msg := ui.NotificationText(sum)
		if sum.Fatal {
			n.SendError(title, msg)
		} else {
			n.SendSuccess(title, msg)
		}
	}

	if sum.Fatal {
		os.Exit(1)
	}
}

// harvestOnce wires the collaborators and performs one run. Setup errors are
// returned; failures during the run are reported through the summary.
func harvestOnce(cfg *config.Config) (harvest.RunSummary, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Run.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Run.Timeout)
		defer cancel()
	}

	log := logger.GetLogger()

	backend, err := progress.OpenBackend(ctx, cfg.Progress, log)
	if err != nil {
		return harvest.RunSummary{}, fmt.Errorf("failed to open progress store: %w", err)
	}
	store := progress.NewStore(backend, progress.KeyFor(cfg.Progress.Key, cfg.Run.SeedURL), log)
	defer store.Close()

	if resetBefore {
		if _, err := store.Load(ctx); err != nil {
			return harvest.RunSummary{}, err
		}
		if err := store.Reset(ctx); err != nil {
			return harvest.RunSummary{}, err
		}
	}

	out, err := sink.Open(ctx, cfg.Sink, log)
	if err != nil {
		return harvest.RunSummary{}, err
	}
	defer out.Close()

	gen, err := newGenerator(cfg, log)
	if err != nil {
		return harvest.RunSummary{}, err
	}

	session := browser.NewSession(cfg.Browser, log)
	defer session.Close()

	engine, err := harvest.NewEngine(cfg, harvest.Deps{
		Driver:    session,
		Store:     store,
		Sink:      out,
		Generator: gen,
		Logger:    log,
	})
	if err != nil {
		return harvest.RunSummary{}, err
	}

	return engine.RunOnce(ctx, cfg.Run.SeedURL, cfg.Run.Quota), nil
}

// newGenerator returns the outreach client, or nil when outreach is disabled
// or no API key is available. A nil generator means template copy only.
func newGenerator(cfg *config.Config, log logger.Logger) (harvest.Generator, error) {
	if !cfg.Outreach.Enabled {
		return nil, nil
	}

	if cfg.Outreach.APIKey == "" {
		if manager, err := credentials.NewManager(); err == nil {
			key, kind, err := manager.Get("openai")
			switch {
			case err == nil:
				cfg.Outreach.APIKey = key
				log.WithField("store", kind).Debug("Using stored API key")
			case !errors.Is(err, credentials.ErrNotFound):
				log.WithError(err).Warn("Failed to read stored API key")
			}
		}
	}
	if cfg.Outreach.APIKey == "" {
		log.Warn("No outreach API key configured, using template copy")
		return nil, nil
	}

	client, err := outreach.NewClient(cfg.Outreach, cfg.Retry, log)
	if err != nil {
		return nil, err
	}
	return client, nil
}
