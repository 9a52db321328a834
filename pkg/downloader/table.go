package downloader

import (
	"context"
	"errors"
	"fmt"

	"github.com/illmade-knight/socrata-archiver/pkg/archive"
)

// DownloadTableAsset downloads a dataset asset's CSV export to {id}.csv.
// There is no retry and no collision handling: the export always writes (or
// overwrites) the same path. Network failures, including a stream broken
// mid-copy, are logged and absorbed; a local write failure is returned.
func (s *Service) DownloadTableAsset(ctx context.Context, assetID string) error {
	url := fmt.Sprintf("%s/views/%s/rows.csv", s.config.APIBaseURL, assetID)

	body, err := s.client.GetStream(ctx, url)
	if err != nil {
		s.logger.Error().Err(err).Str("asset_id", assetID).Msg("Error downloading table asset.")
		return nil
	}
	defer body.Close()

	name := archive.TableName(assetID)
	written, err := s.store.WriteStream(name, body)
	if err != nil {
		var sourceErr *archive.SourceError
		if errors.As(err, &sourceErr) {
			s.logger.Error().Err(err).Str("asset_id", assetID).Msg("Error downloading table asset.")
			return nil
		}
		return err
	}

	s.logger.Info().
		Str("asset_id", assetID).
		Str("path", s.store.Path(name)).
		Int64("bytes", written).
		Msg("Downloaded table asset.")
	return nil
}
