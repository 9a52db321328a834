// Package verify audits an output directory after one or more runs. The
// detail marker is written before the payload download completes, so a crash
// in that window leaves an asset marked done with no payload on disk. That
// ordering is intentional and is not repaired; this sweep is how operators
// find the orphans.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/illmade-knight/socrata-archiver/pkg/archive"
	"github.com/illmade-knight/socrata-archiver/pkg/catalog"
)

// Report summarizes a sweep of the output directory.
type Report struct {
	// MarkersChecked is the number of per-asset metadata markers found.
	MarkersChecked int
	// MissingPayloads lists asset IDs whose marker exists but whose expected
	// payload file does not.
	MissingPayloads []string
	// UnreadableMarkers lists marker filenames that could not be read or
	// decoded, leaving their assets unverifiable.
	UnreadableMarkers []string
}

// Complete reports whether every marker could be inspected.
func (r *Report) Complete() bool {
	return len(r.UnreadableMarkers) == 0
}

// Sweep scans the store for metadata markers and checks, concurrently, that
// each asset's expected payload file exists. Assets whose details promise no
// payload (unknown type, or a file asset without a MIME type) are counted as
// checked but expect nothing. The sweep is read-only.
func Sweep(ctx context.Context, store *archive.Store, concurrency int, logger zerolog.Logger) (*Report, error) {
	if concurrency <= 0 {
		concurrency = 3
	}
	log := logger.With().Str("component", "VerifySweep").Logger()

	names, err := store.List()
	if err != nil {
		return nil, fmt.Errorf("list markers: %w", err)
	}

	report := &Report{}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, name := range names {
		assetID, ok := archive.AssetIDFromMarker(name)
		if !ok {
			continue
		}
		report.MarkersChecked++

		markerName := name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			missing, err := checkAsset(store, markerName, assetID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn().Err(err).Str("marker", markerName).Msg("Could not inspect marker.")
				report.UnreadableMarkers = append(report.UnreadableMarkers, markerName)
				return nil
			}
			if missing {
				log.Warn().Str("asset_id", assetID).Msg("Marker present but payload file is missing.")
				report.MissingPayloads = append(report.MissingPayloads, assetID)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(report.MissingPayloads)
	sort.Strings(report.UnreadableMarkers)

	log.Info().
		Int("markers_checked", report.MarkersChecked).
		Int("missing_payloads", len(report.MissingPayloads)).
		Int("unreadable_markers", len(report.UnreadableMarkers)).
		Msg("Verify sweep finished.")
	return report, nil
}

// checkAsset reads one marker and reports whether its expected payload is
// missing. err is set when the marker itself cannot be inspected.
func checkAsset(store *archive.Store, markerName, assetID string) (missing bool, err error) {
	data, err := store.ReadFile(markerName)
	if err != nil {
		return false, fmt.Errorf("read marker: %w", err)
	}

	var details catalog.AssetDetails
	if err := json.Unmarshal(data, &details); err != nil {
		return false, fmt.Errorf("decode marker: %w", err)
	}

	var candidates []string
	switch catalog.Classify(details) {
	case catalog.KindDataset:
		candidates = []string{archive.TableName(assetID)}
	case catalog.KindFile:
		if _, ok := details.BlobMimeType(); !ok {
			// No MIME type means the downloader skipped the payload.
			return false, nil
		}
		filename, ok := details.BlobFilename()
		if !ok {
			filename = archive.FallbackBlobName(assetID)
		}
		// The blob may live under its own name or, after a collision
		// rename, under the suffixed sibling.
		candidates = []string{filename, archive.CollisionName(filename, assetID)}
	default:
		return false, nil
	}

	for _, candidate := range candidates {
		exists, err := store.Exists(candidate)
		if err != nil {
			return false, fmt.Errorf("check payload %s: %w", candidate, err)
		}
		if exists {
			return false, nil
		}
	}
	return true, nil
}
