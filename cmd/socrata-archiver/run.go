package main

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/illmade-knight/socrata-archiver/pkg/archive"
	"github.com/illmade-knight/socrata-archiver/pkg/config"
	"github.com/illmade-knight/socrata-archiver/pkg/downloader"
	"github.com/illmade-knight/socrata-archiver/pkg/pipeline"
	"github.com/illmade-knight/socrata-archiver/pkg/transport"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Fetch the asset manifest and download every listed asset",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runArchive(cmd, cfg)
		},
	}
}

// runArchive is the whole batch: manifest fetch, then the bounded pool over
// every listed asset. Only the manifest fetch can fail the run; per-asset
// problems are absorbed into the log and the exit status stays zero.
func runArchive(cmd *cobra.Command, cfg *config.Config) error {
	logger, closeLog, err := newRunLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := cmd.Context()

	store, err := archive.NewStore(afero.NewOsFs(), cfg.OutputDir, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Could not open archive store.")
		return err
	}

	client := transport.NewClient(transport.Config{})
	service, err := downloader.NewService(downloader.Config{
		APIBaseURL:      cfg.APIBaseURL(),
		DownloadBaseURL: cfg.DownloadBaseURL(),
		Retries:         cfg.Retries,
		BaseDelay:       cfg.BaseDelay(),
	}, client, store, logger)
	if err != nil {
		return err
	}

	processor, err := pipeline.NewProcessor(service, store, logger)
	if err != nil {
		return err
	}
	orchestrator := pipeline.NewOrchestrator(processor, store, cfg.Concurrency, logger)

	manifestPath, err := service.FetchManifest(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Fatal: could not fetch the asset manifest.")
		return err
	}

	orchestrator.ProcessAssets(ctx, manifestPath)
	return nil
}
