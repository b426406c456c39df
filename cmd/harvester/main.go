package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/retailstream/harvester/internal/crawl"
	"github.com/retailstream/harvester/pkg/config"
	"github.com/retailstream/harvester/pkg/connector/registry"
	"github.com/retailstream/harvester/pkg/json"
	"github.com/retailstream/harvester/pkg/logger"

	// Importing a source package registers its connector
	"github.com/retailstream/harvester/pkg/connector/sources/ah"
	"github.com/retailstream/harvester/pkg/connector/sources/aldi"
	"github.com/retailstream/harvester/pkg/connector/sources/jumbo"
	"github.com/retailstream/harvester/pkg/connector/sources/plus"
)

var version = "0.1.0"

// defaultConfigs maps each source to its tuned configuration.
var defaultConfigs = map[string]func() *config.Config{
	"ah":    ah.DefaultConfig,
	"aldi":  aldi.DefaultConfig,
	"jumbo": jumbo.DefaultConfig,
	"plus":  plus.DefaultConfig,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "harvester",
		Short: "Harvester - incremental retail catalog crawler",
		Long: `Harvester crawls retailer catalog APIs incrementally. Each source is
paginated category by category, deduplicated against previously seen
records, appended to a per-source JSONL file, and checkpointed after
every page so an interrupted run resumes where it stopped.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Harvester v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available source connectors",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available sources:")
			for _, source := range registry.List() {
				fmt.Printf("  - %s\n", source)
			}
		},
	})

	var (
		sources   []string
		mode      string
		reset     bool
		dataDir   string
		configDir string
		compress  bool
		timeout   time.Duration
		logLevel  string
	)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a harvest across the selected sources",
		Long: `Run a harvest. By default every registered source is crawled in
parallel. Per-source YAML configuration files named <source>.yaml are
picked up from --config-dir when present; ${ENV_VAR} references inside
them are substituted from the environment.

Example:
  harvester run --sources ah,jumbo --data-dir ./data`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHarvest(runOptions{
				sources:   sources,
				mode:      mode,
				reset:     reset,
				dataDir:   dataDir,
				configDir: configDir,
				compress:  compress,
				timeout:   timeout,
				logLevel:  logLevel,
			})
		},
	}

	runCmd.Flags().StringSliceVar(&sources, "sources", nil, "Sources to crawl (default: all registered)")
	runCmd.Flags().StringVar(&mode, "mode", string(crawl.ModeParallel), "Scheduling mode: parallel or sequential")
	runCmd.Flags().BoolVar(&reset, "reset", false, "Discard checkpoints and output, re-crawl from scratch")
	runCmd.Flags().StringVar(&dataDir, "data-dir", "data", "Directory for records and checkpoints")
	runCmd.Flags().StringVar(&configDir, "config-dir", "", "Directory with per-source YAML configuration files")
	runCmd.Flags().BoolVar(&compress, "compress", false, "Compress record files with zstd")
	runCmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall run timeout (0 = none)")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type runOptions struct {
	sources   []string
	mode      string
	reset     bool
	dataDir   string
	configDir string
	compress  bool
	timeout   time.Duration
	logLevel  string
}

func runHarvest(opts runOptions) error {
	if err := logger.Init(logger.Config{Level: opts.logLevel, Encoding: "console"}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	mode, err := crawl.ParseMode(opts.mode)
	if err != nil {
		return err
	}

	names := opts.sources
	if len(names) == 0 {
		names = registry.List()
	}

	workers := make([]*crawl.Worker, 0, len(names))
	for _, name := range names {
		cfg, err := buildConfig(name, opts)
		if err != nil {
			return err
		}
		conn, err := registry.Create(name, cfg)
		if err != nil {
			return err
		}
		w := crawl.NewWorker(conn, cfg)
		w.Reset = opts.reset
		workers = append(workers, w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	summary, err := crawl.NewOrchestrator(workers).Run(ctx, mode)
	if err != nil {
		return err
	}

	printSummary(summary)
	if summary.Failed() {
		return fmt.Errorf("harvest finished with failures")
	}
	return nil
}

// buildConfig assembles a source's configuration: tuned defaults, an
// optional per-source YAML file, then command-line overrides.
func buildConfig(name string, opts runOptions) (*config.Config, error) {
	newCfg, ok := defaultConfigs[name]
	if !ok {
		return nil, fmt.Errorf("unknown source %q (known: %s)", name, strings.Join(registry.List(), ", "))
	}
	cfg := newCfg()

	if opts.configDir != "" {
		path := filepath.Join(opts.configDir, name+".yaml")
		if _, err := os.Stat(path); err == nil {
			if err := config.Load(path, cfg); err != nil {
				return nil, fmt.Errorf("load config %s: %w", path, err)
			}
		}
	}

	cfg.Storage.DataDir = opts.dataDir
	if opts.compress {
		cfg.Storage.Compress = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config for %s: %w", name, err)
	}
	return cfg, nil
}

func printSummary(summary *crawl.Summary) {
	logger.Info("harvest summary",
		zap.Int64("total_records", summary.TotalRecords()),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)))

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		logger.Error("encode summary", zap.Error(err))
		return
	}
	fmt.Println(string(out))
}
