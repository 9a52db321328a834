package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
)

// ExtractAssetIDs parses a manifest body and returns the asset IDs it lists,
// in manifest order. The top level must be a JSON array; anything else is an
// error and nothing is processed. Individual records that are not objects, or
// that lack a non-empty string "id", are logged and skipped. Duplicate IDs
// are returned as-is: each occurrence is processed independently.
func ExtractAssetIDs(data []byte, logger zerolog.Logger) ([]string, error) {
	var records []any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("manifest is not a JSON array: %w", err)
	}

	ids := make([]string, 0, len(records))
	for i, record := range records {
		entry, ok := record.(map[string]any)
		if !ok {
			logger.Warn().Int("index", i).Msg("Manifest record is not an object, skipping.")
			continue
		}
		id, ok := entry["id"].(string)
		if !ok || id == "" {
			logger.Warn().Int("index", i).Msg("Manifest record has no 'id' field, skipping.")
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
