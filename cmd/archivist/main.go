package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"archivist/internal/app"
	"archivist/internal/archivist"
	"archivist/internal/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	configPath string
	catalogDir string
	verbose    bool
)

// loadConfig reads the config file (built-in defaults if absent) and applies global flags.
func loadConfig() (*config.Config, string, error) {
	defaults := app.GetDefaults()
	path := configPath
	if path == "" {
		path = defaults.ConfigPath
	}

	cfg, err := config.Load(path, defaults.BaseDir)
	if err != nil {
		return nil, path, fmt.Errorf("reading config: %w", err)
	}
	if catalogDir != "" {
		cfg.Catalog.Dir = catalogDir
	}
	return cfg, path, nil
}

// newApp reads the config and creates an ArchivistApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "sync", "populate-primary").
func newApp(ctx context.Context, operation string, create bool) (*app.ArchivistApp, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newAppFromConfig(ctx, cfg, operation, create)
}

func newAppFromConfig(ctx context.Context, cfg *config.Config, operation string, create bool) (*app.ArchivistApp, error) {
	a, err := app.NewArchivistApp(ctx, cfg, operation, app.Options{Create: create, Verbose: verbose})
	if err != nil {
		if errors.Is(err, archivist.ErrNotFound) {
			return nil, fmt.Errorf("%w (run populate with --create to start a new catalog)", err)
		}
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// signalContext is cancelled on SIGINT or SIGTERM so a running pass can checkpoint and stop.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var rootCmd = &cobra.Command{
	Use:          "archivist",
	Short:        "Catalog remote documents and keep local archived copies in sync",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults := app.GetDefaults()
		path := configPath
		if path == "" {
			path = defaults.ConfigPath
		}

		cfg := config.NewConfig(defaults.BaseDir)
		if catalogDir != "" {
			cfg.Catalog.Dir = catalogDir
		}

		if err := config.Init(path, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", path)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Catalog Dir: %s\n", cfg.Catalog.Dir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("# Configuration from %s\n\n", path)
		m := &config.Manager{}
		return m.Write(os.Stdout, cfg)
	},
}

// populate command
var populateCmd = &cobra.Command{
	Use:   "populate",
	Short: "Add entries from upstream slug sources",
}

var populatePrimaryCmd = &cobra.Command{
	Use:   "primary SQLITE",
	Short: "Add an entry for every slug in the relational extract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, _ := cmd.Flags().GetString("table")
		create, _ := cmd.Flags().GetBool("create")

		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx, "populate-primary", create)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.PopulatePrimary(ctx, args[0], table)
		printPopulateReport(report)
		if err != nil {
			return fmt.Errorf("populate failed: %w", err)
		}
		return nil
	},
}

var populateCorrectionsCmd = &cobra.Command{
	Use:   "corrections CSV",
	Short: "Merge a slug corrections file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		batchName, _ := cmd.Flags().GetString("batch-name")
		create, _ := cmd.Flags().GetBool("create")

		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx, "populate-corrections", create)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.PopulateCorrections(ctx, args[0], batchName)
		printPopulateReport(report)
		if err != nil {
			return fmt.Errorf("populate failed: %w", err)
		}
		return nil
	},
}

func printPopulateReport(r *archivist.PopulateReport) {
	if r == nil {
		return
	}
	for _, n := range r.Notices {
		kind := "skipped"
		if n.Conflict {
			kind = "conflict"
		}
		fmt.Printf("%-8s  %s  %s\n", kind, n.Slug, n.Reason)
	}
	fmt.Printf("Added %d, updated %d, unchanged %d, skipped %d, conflicts %d\n",
		r.Added, r.Updated, r.Unchanged, len(r.Notices)-r.Conflicts(), r.Conflicts())
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch every eligible entry and update the archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		minutes, _ := cmd.Flags().GetInt("min-interval")
		checkpoint, _ := cmd.Flags().GetInt("checkpoint")

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if checkpoint > 0 {
			cfg.Sync.CheckpointInterval = checkpoint
		}

		ctx, stop := signalContext()
		defer stop()

		a, err := newAppFromConfig(ctx, cfg, "sync", false)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Sync(ctx, time.Duration(minutes)*time.Minute)
		if report != nil {
			if report.Interrupted {
				fmt.Println("Sync interrupted; progress so far has been saved.")
			}
			fmt.Printf("Updated %d, unchanged %d, failed %d, skipped %d, checked recently %d\n",
				report.Updated, report.Unchanged, report.Failed, report.SkippedMarked, report.SkippedRecent)
			if report.CheckpointErrors > 0 {
				fmt.Printf("%d checkpoint(s) failed during the pass\n", report.CheckpointErrors)
			}
		}
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		return nil
	},
}

// render command
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Convert archived content to text",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, _ := cmd.Flags().GetIntSlice("entry")
		format, _ := cmd.Flags().GetString("format")

		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx, "render", false)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Render(ctx, ids, format)
		if err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		fmt.Printf("Rendered %d, failed %d\n", report.Rendered, report.Failed)
		return nil
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export SQLITE OUTPUT",
	Short: "Write source rows joined with catalog IDs as CSV",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, _ := cmd.Flags().GetString("table")

		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx, "export", false)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Export(ctx, args[0], args[1], table)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Printf("Wrote %d of %d rows to %s\n", report.Matched, report.Rows, args[1])
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		unchecked, _ := cmd.Flags().GetBool("unchecked")

		var filter app.ListFilter
		filter.Unchecked = unchecked
		if cmd.Flags().Changed("status") {
			status, _ := cmd.Flags().GetInt("status")
			filter.Status = &status
		}

		a, err := newApp(cmd.Context(), "list", false)
		if err != nil {
			return err
		}
		defer a.Close()

		entries := a.List(filter)
		if len(entries) == 0 {
			fmt.Println("No entries.")
			return nil
		}
		printEntries(os.Stdout, entries)
		return nil
	},
}

// show command
var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one entry with its archive state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid entry id %q", args[0])
		}

		a, err := newApp(cmd.Context(), "show", false)
		if err != nil {
			return err
		}
		defer a.Close()

		details, err := a.Show(id)
		if err != nil {
			return err
		}
		printDetails(os.Stdout, details)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		ops, err := app.ReadHistory(cfg, limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}
		printHistory(os.Stdout, ops)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $ARCHIVIST_CONFIG or the XDG config dir)")
	rootCmd.PersistentFlags().StringVar(&catalogDir, "catalog-dir", "", "Directory holding the catalog snapshot")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// populate subcommands
	populateCmd.AddCommand(populatePrimaryCmd)
	populatePrimaryCmd.Flags().String("table", "", "Source table (default: auto-detect)")
	populatePrimaryCmd.Flags().Bool("create", false, "Create the catalog if it does not exist")
	populateCmd.AddCommand(populateCorrectionsCmd)
	populateCorrectionsCmd.Flags().String("batch-name", "", "Batch name used as provenance prefix (default: file name)")
	populateCorrectionsCmd.Flags().Bool("create", false, "Create the catalog if it does not exist")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(populateCmd)
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().IntP("min-interval", "m", 0, "Skip entries checked within this many minutes")
	syncCmd.Flags().Int("checkpoint", 0, "Save the catalog after this many entries (default from config)")
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().IntSliceP("entry", "e", nil, "Entry ID to render (repeatable, default: all archived)")
	renderCmd.Flags().String("format", "", "Rendition format: txt or md (default from config)")
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("table", "", "Source table (default: auto-detect)")
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().Int("status", 0, "Only entries whose last status equals this code")
	listCmd.Flags().Bool("unchecked", false, "Only entries never synced")
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
