package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/illmade-knight/socrata-archiver/pkg/archive"
	"github.com/illmade-knight/socrata-archiver/pkg/catalog"
)

// AssetDownloader is the download surface the processor needs. It is
// satisfied by downloader.Service.
type AssetDownloader interface {
	AssetDetails(ctx context.Context, assetID string) catalog.AssetDetails
	DownloadFileAsset(ctx context.Context, assetID string, details catalog.AssetDetails) error
	DownloadTableAsset(ctx context.Context, assetID string) error
}

// MarkerStore is the slice of the archive store the processor needs: the
// existence check that makes re-runs cheap, and the marker write that makes
// the existence check succeed next time.
type MarkerStore interface {
	Exists(name string) (bool, error)
	WriteFile(name string, data []byte) error
}

// Processor orchestrates the processing of a single asset and always resolves
// to an Outcome value; no failure escapes it.
type Processor struct {
	downloads AssetDownloader
	markers   MarkerStore
	logger    zerolog.Logger
}

// NewProcessor creates a single-asset processor.
func NewProcessor(downloads AssetDownloader, markers MarkerStore, logger zerolog.Logger) (*Processor, error) {
	if downloads == nil {
		return nil, fmt.Errorf("asset downloader cannot be nil")
	}
	if markers == nil {
		return nil, fmt.Errorf("marker store cannot be nil")
	}
	return &Processor{
		downloads: downloads,
		markers:   markers,
		logger:    logger.With().Str("component", "AssetProcessor").Logger(),
	}, nil
}

// Process runs one asset through the pipeline:
//
//  1. If the asset's metadata marker already exists the asset was handled by
//     a previous run and is skipped without any network calls.
//  2. The detail record is fetched; an absent record skips the asset.
//  3. The details are persisted as the marker. This happens before the
//     payload download, so "done" means the detail fetch completed, not the
//     payload: a crash mid-download leaves the marker in place with no
//     payload on disk. The verify sweep surfaces those.
//  4. The asset is dispatched by type to the file or table downloader;
//     unrecognized types are logged and get no download.
//
// Any unexpected failure, panics included, is converted to a
// ProcessingError outcome.
func (p *Processor) Process(ctx context.Context, assetID string) (outcome catalog.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Str("asset_id", assetID).Any("panic", r).Msg("Recovered panic while processing asset.")
			outcome = catalog.Outcome{AssetID: assetID, Kind: catalog.ProcessingError, Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()

	marker := archive.MarkerName(assetID)
	exists, err := p.markers.Exists(marker)
	if err != nil {
		return catalog.ErrorOutcome(assetID, fmt.Errorf("check marker: %w", err))
	}
	if exists {
		p.logger.Info().Str("asset_id", assetID).Msg("Metadata marker already exists for asset, skipping.")
		return catalog.Outcome{AssetID: assetID, Kind: catalog.AlreadyDone}
	}

	details := p.downloads.AssetDetails(ctx, assetID)
	if details == nil {
		return catalog.Outcome{AssetID: assetID, Kind: catalog.NoDetails}
	}

	data, err := json.Marshal(details)
	if err != nil {
		return catalog.ErrorOutcome(assetID, fmt.Errorf("encode details: %w", err))
	}
	if err := p.markers.WriteFile(marker, data); err != nil {
		return catalog.ErrorOutcome(assetID, fmt.Errorf("persist details: %w", err))
	}

	switch kind := catalog.Classify(details); kind {
	case catalog.KindFile:
		err = p.downloads.DownloadFileAsset(ctx, assetID, details)
	case catalog.KindDataset:
		err = p.downloads.DownloadTableAsset(ctx, assetID)
	default:
		p.logger.Warn().Str("asset_id", assetID).Str("asset_type", details.AssetType()).Msg("Unknown asset type, no download attempted.")
	}
	if err != nil {
		return catalog.ErrorOutcome(assetID, err)
	}

	return catalog.Outcome{AssetID: assetID, Kind: catalog.ProcessedOK}
}
