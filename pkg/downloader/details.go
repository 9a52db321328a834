package downloader

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/illmade-knight/socrata-archiver/pkg/catalog"
)

// AssetDetails fetches the detail record for one asset. Failures (network,
// non-2xx status, unparseable body) are logged and reported as a nil record:
// the caller treats an absent record as "skip this asset, continue the
// batch". There is no retry.
func (s *Service) AssetDetails(ctx context.Context, assetID string) catalog.AssetDetails {
	url := fmt.Sprintf("%s/views/%s", s.config.APIBaseURL, assetID)

	body, err := s.client.GetJSON(ctx, url)
	if err != nil {
		s.logger.Error().Err(err).Str("asset_id", assetID).Msg("Error getting asset details.")
		return nil
	}

	var details catalog.AssetDetails
	if err := json.Unmarshal(body, &details); err != nil {
		s.logger.Error().Err(err).Str("asset_id", assetID).Msg("Asset details are not a JSON object.")
		return nil
	}
	return details
}
