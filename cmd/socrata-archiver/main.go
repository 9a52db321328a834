package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/illmade-knight/socrata-archiver/pkg/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// rootOptions holds the flag values shared by every subcommand. Flags only
// override the config file when explicitly set.
type rootOptions struct {
	configPath  string
	outputDir   string
	logFile     string
	siteURL     string
	concurrency int
	retries     int
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "socrata-archiver",
		Short:         "Download Socrata dataset assets to local storage",
		Long:          "socrata-archiver fetches the asset catalog of a Socrata-style open data site\nand downloads each asset's payload (file blob or CSV export) to a local\ndirectory, skipping assets completed by earlier runs.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	flags.StringVar(&opts.outputDir, "output-dir", "cdc_data", "Directory to store downloaded assets")
	flags.StringVar(&opts.logFile, "log-file", "socrata_downloader_log.txt", "Filename for logging, created inside the output directory")
	flags.StringVar(&opts.siteURL, "api-url", "https://data.cdc.gov", "Base URL for the Socrata site")
	flags.IntVar(&opts.concurrency, "concurrency", 3, "Number of concurrent downloads")
	flags.IntVar(&opts.retries, "retries", 3, "Attempts per file blob download")

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newVerifyCmd(opts))
	return rootCmd
}

// loadConfig resolves the effective configuration: defaults, then the config
// file when given, then any explicitly-set flags on top.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		cfg.OutputDir = opts.outputDir
	}
	if flags.Changed("log-file") {
		cfg.LogFile = opts.logFile
	}
	if flags.Changed("api-url") {
		cfg.SiteURL = opts.siteURL
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = opts.concurrency
	}
	if flags.Changed("retries") {
		cfg.Retries = opts.retries
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newRunLogger builds the consolidated run logger: console plus the log file
// inside the output directory, tagged with a per-run ID so interleaved runs
// stay distinguishable in the shared log file.
func newRunLogger(cfg *config.Config) (zerolog.Logger, func(), error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("create output directory: %w", err)
	}

	logPath := filepath.Join(cfg.OutputDir, cfg.LogFile)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := zerolog.New(zerolog.MultiLevelWriter(console, logFile)).
		With().
		Timestamp().
		Str("run_id", uuid.New().String()).
		Logger()

	cleanup := func() {
		_ = logFile.Close()
	}
	return logger, cleanup, nil
}
