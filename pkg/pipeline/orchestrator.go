package pipeline

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/illmade-knight/socrata-archiver/pkg/catalog"
)

// AssetProcessor is the per-asset surface the orchestrator fans out over.
// It is satisfied by *Processor.
type AssetProcessor interface {
	Process(ctx context.Context, assetID string) catalog.Outcome
}

// ManifestReader reads a manifest snapshot back off disk. It is satisfied by
// *archive.Store.
type ManifestReader interface {
	ReadPath(path string) ([]byte, error)
}

// Orchestrator runs a bounded pool of asset-processor workers over the IDs
// listed in a manifest. Per-asset failures never abort the batch; by design
// the orchestrator itself never returns an error.
type Orchestrator struct {
	processor   AssetProcessor
	manifests   ManifestReader
	concurrency int
	logger      zerolog.Logger
}

// NewOrchestrator creates a batch orchestrator. A non-positive concurrency
// defaults to 3 workers.
func NewOrchestrator(processor AssetProcessor, manifests ManifestReader, concurrency int, logger zerolog.Logger) *Orchestrator {
	log := logger.With().Str("component", "BatchOrchestrator").Logger()
	if concurrency <= 0 {
		log.Warn().Int("provided_concurrency", concurrency).Msg("Concurrency must be positive, defaulting to 3.")
		concurrency = 3
	}
	return &Orchestrator{
		processor:   processor,
		manifests:   manifests,
		concurrency: concurrency,
		logger:      log,
	}
}

// ProcessAssets reads the manifest at manifestPath, extracts the asset IDs,
// and processes them with the worker pool. IDs are submitted in manifest
// order; completion order is unconstrained. Every completed asset's outcome
// is logged as it lands, and a tally is logged at the end.
//
// A manifest that cannot be read, or whose top level is not a JSON array, is
// logged and abandoned cleanly: nothing is processed, nothing is raised.
func (o *Orchestrator) ProcessAssets(ctx context.Context, manifestPath string) {
	data, err := o.manifests.ReadPath(manifestPath)
	if err != nil {
		o.logger.Error().Err(err).Str("path", manifestPath).Msg("Error reading manifest file.")
		return
	}

	assetIDs, err := catalog.ExtractAssetIDs(data, o.logger)
	if err != nil {
		o.logger.Error().Err(err).Str("path", manifestPath).Msg("Error decoding manifest JSON.")
		return
	}

	o.logger.Info().Int("asset_count", len(assetIDs)).Msg("Found assets to process.")

	idChan := make(chan string)
	tally := make(map[catalog.OutcomeKind]int)
	var tallyMu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < o.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for assetID := range idChan {
				outcome := o.processOne(ctx, workerID, assetID)
				tallyMu.Lock()
				tally[outcome.Kind]++
				tallyMu.Unlock()
			}
		}(i)
	}

feed:
	for _, assetID := range assetIDs {
		if ctx.Err() != nil {
			o.logger.Warn().Err(ctx.Err()).Msg("Run cancelled, abandoning remaining assets.")
			break
		}
		select {
		case idChan <- assetID:
		case <-ctx.Done():
			o.logger.Warn().Err(ctx.Err()).Msg("Run cancelled, abandoning remaining assets.")
			break feed
		}
	}
	close(idChan)
	wg.Wait()

	o.logger.Info().
		Int("processed_ok", tally[catalog.ProcessedOK]).
		Int("already_done", tally[catalog.AlreadyDone]).
		Int("no_details", tally[catalog.NoDetails]).
		Int("errors", tally[catalog.ProcessingError]).
		Msg("Finished processing assets.")
}

// processOne runs a single processor invocation and logs its outcome. The
// processor contract says it never panics, but a panic here must not take
// down the pool, so it is recovered and logged as a pool-level error.
func (o *Orchestrator) processOne(ctx context.Context, workerID int, assetID string) (outcome catalog.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().Int("worker_id", workerID).Str("asset_id", assetID).Any("panic", r).Msg("Asset processor panicked.")
			outcome = catalog.Outcome{AssetID: assetID, Kind: catalog.ProcessingError, Reason: "processor panic"}
		}
	}()

	outcome = o.processor.Process(ctx, assetID)

	event := o.logger.Info()
	if outcome.Kind == catalog.ProcessingError {
		event = o.logger.Error()
	}
	event.
		Int("worker_id", workerID).
		Str("asset_id", assetID).
		Stringer("outcome", outcome.Kind)
	if outcome.Reason != "" {
		event = event.Str("reason", outcome.Reason)
	}
	event.Msg("Asset processing completed.")
	return outcome
}
