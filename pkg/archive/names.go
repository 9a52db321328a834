package archive

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// markerSuffix closes every per-asset metadata marker name. The presence of
// the marker is what makes a later run skip the asset.
const markerSuffix = "_metadata.json"

// ManifestName derives the timestamped filename for a manifest snapshot.
func ManifestName(ts time.Time) string {
	return fmt.Sprintf("metadata_%s.json", ts.Format("20060102_150405"))
}

// MarkerName derives the metadata marker filename for an asset.
func MarkerName(assetID string) string {
	return assetID + markerSuffix
}

// AssetIDFromMarker inverts MarkerName; ok is false for names that are not
// markers.
func AssetIDFromMarker(name string) (string, bool) {
	if !strings.HasSuffix(name, markerSuffix) || len(name) == len(markerSuffix) {
		return "", false
	}
	return strings.TrimSuffix(name, markerSuffix), true
}

// TableName derives the CSV export filename for a dataset asset.
func TableName(assetID string) string {
	return assetID + ".csv"
}

// FallbackBlobName derives the payload filename for a file asset whose
// details carry no original filename.
func FallbackBlobName(assetID string) string {
	return assetID + ".file"
}

// CollisionName derives the sibling filename used when a blob's target path
// already exists: the asset ID is spliced in before the extension so the
// pre-existing file is never overwritten.
func CollisionName(filename, assetID string) string {
	suffix := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, suffix)
	return fmt.Sprintf("%s_%s%s", stem, assetID, suffix)
}
