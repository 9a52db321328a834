package downloader

import (
	"context"
	"fmt"
	"time"

	"github.com/illmade-knight/socrata-archiver/pkg/archive"
)

// FetchManifest downloads the top-level metadata manifest and writes the raw
// response body to a timestamped file in the output directory, returning the
// file's path. There is no retry: without a manifest the run cannot proceed,
// so a failure here is surfaced to the caller and is fatal for the run.
func (s *Service) FetchManifest(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/views/metadata/v1", s.config.APIBaseURL)

	body, err := s.client.GetJSON(ctx, url)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error downloading metadata manifest.")
		return "", fmt.Errorf("download manifest: %w", err)
	}

	name := archive.ManifestName(time.Now())
	if err := s.store.WriteFile(name, body); err != nil {
		s.logger.Error().Err(err).Str("file", name).Msg("Error writing metadata manifest.")
		return "", fmt.Errorf("write manifest: %w", err)
	}

	path := s.store.Path(name)
	s.logger.Info().Str("path", path).Msg("Downloaded metadata manifest.")
	return path, nil
}
