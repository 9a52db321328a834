package downloader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/illmade-knight/socrata-archiver/pkg/archive"
	"github.com/illmade-knight/socrata-archiver/pkg/catalog"
)

// transientError marks an attempt failure that came from the network side
// (failed GET or broken stream mid-copy) and is therefore worth retrying.
// Local filesystem failures are returned bare and abort the retry loop.
type transientError struct {
	err error
}

func (e *transientError) Error() string {
	return e.err.Error()
}

func (e *transientError) Unwrap() error {
	return e.err
}

// DownloadFileAsset downloads a file asset's binary blob with bounded retry.
//
// A missing blob MIME type is a permanent skip: it is checked once, before
// any attempt, and consumes no retry cycle. Transient failures are retried
// up to the configured attempt count with exponential backoff (BaseDelay *
// 2^k before retry k), sleeping only between attempts — never after the
// last. After the final attempt the failure is logged and absorbed, because
// the batch must continue.
//
// A local write failure is returned to the caller. If the target filename
// already exists the blob is written to a sibling path carrying the asset ID
// instead; the pre-existing file is never overwritten.
func (s *Service) DownloadFileAsset(ctx context.Context, assetID string, details catalog.AssetDetails) error {
	mimeType, ok := details.BlobMimeType()
	if !ok {
		s.logger.Warn().Str("asset_id", assetID).Msg("No blobMimeType found for file asset.")
		return nil
	}

	url := fmt.Sprintf("%s/%s/%s", s.config.DownloadBaseURL, assetID, mimeType)

	filename, ok := details.BlobFilename()
	if !ok {
		filename = archive.FallbackBlobName(assetID)
		s.logger.Warn().Str("asset_id", assetID).Str("filename", filename).Msg("blobFilename missing for asset, using fallback filename.")
	}

	for attempt := 0; attempt < s.config.Retries; attempt++ {
		if attempt > 0 {
			delay := s.config.BaseDelay * time.Duration(1<<uint(attempt-1))
			if err := s.sleep(ctx, delay); err != nil {
				return err
			}
		}

		err := s.attemptFileDownload(ctx, assetID, url, filename)
		if err == nil {
			return nil
		}

		var transient *transientError
		if !errors.As(err, &transient) {
			return err
		}
		s.logger.Error().Err(transient.err).
			Str("asset_id", assetID).
			Int("attempt", attempt+1).
			Int("retries", s.config.Retries).
			Msg("Error downloading file asset.")
	}

	s.logger.Error().Str("asset_id", assetID).Int("retries", s.config.Retries).Msg("Failed to download file asset after all retries.")
	return nil
}

// attemptFileDownload performs one download attempt: GET the blob, resolve
// the destination (renaming on collision), and stream it to disk.
func (s *Service) attemptFileDownload(ctx context.Context, assetID, url, filename string) error {
	body, err := s.client.GetStream(ctx, url)
	if err != nil {
		return &transientError{err: err}
	}
	defer body.Close()

	target := filename
	exists, err := s.store.Exists(target)
	if err != nil {
		return err
	}
	if exists {
		target = archive.CollisionName(filename, assetID)
		s.logger.Warn().
			Str("asset_id", assetID).
			Str("filename", filename).
			Str("renamed_to", target).
			Msg("Target file already exists, writing to renamed sibling.")
	}

	written, err := s.store.WriteStream(target, body)
	if err != nil {
		var sourceErr *archive.SourceError
		if errors.As(err, &sourceErr) {
			return &transientError{err: err}
		}
		return err
	}

	s.logger.Info().
		Str("asset_id", assetID).
		Str("path", s.store.Path(target)).
		Int64("bytes", written).
		Msg("Downloaded file asset.")
	return nil
}
