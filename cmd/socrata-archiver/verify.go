package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/illmade-knight/socrata-archiver/pkg/archive"
	"github.com/illmade-knight/socrata-archiver/pkg/verify"
)

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Audit the output directory for markers whose payload is missing",
		Long:  "verify scans the output directory for per-asset metadata markers and checks\nthat each asset's payload file exists. Markers without payloads are reported,\nnot repaired: they are the expected artifact of a run interrupted between the\nmetadata write and the payload download.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			logger, closeLog, err := newRunLogger(cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			store, err := archive.NewStore(afero.NewOsFs(), cfg.OutputDir, logger)
			if err != nil {
				return err
			}

			report, err := verify.Sweep(cmd.Context(), store, cfg.Concurrency, logger)
			if err != nil {
				logger.Error().Err(err).Msg("Verify sweep failed.")
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Markers checked:    %d\n", report.MarkersChecked)
			fmt.Fprintf(out, "Missing payloads:   %d\n", len(report.MissingPayloads))
			for _, assetID := range report.MissingPayloads {
				fmt.Fprintf(out, "  - %s\n", assetID)
			}
			fmt.Fprintf(out, "Unreadable markers: %d\n", len(report.UnreadableMarkers))
			for _, name := range report.UnreadableMarkers {
				fmt.Fprintf(out, "  - %s\n", name)
			}

			if !report.Complete() {
				return fmt.Errorf("%d markers could not be inspected", len(report.UnreadableMarkers))
			}
			return nil
		},
	}
}
