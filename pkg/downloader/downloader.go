package downloader

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/illmade-knight/socrata-archiver/pkg/archive"
)

// HTTPClient is the transport surface the downloader needs. It is satisfied
// by transport.Client; tests substitute a mock. The client performs single
// requests only — retry policy lives here, at the call sites.
type HTTPClient interface {
	GetJSON(ctx context.Context, url string) ([]byte, error)
	GetStream(ctx context.Context, url string) (io.ReadCloser, error)
}

// Config holds the endpoints and retry tunables for the download service.
type Config struct {
	// APIBaseURL roots the metadata endpoints (manifest, details, CSV export).
	APIBaseURL string
	// DownloadBaseURL roots the file blob endpoint.
	DownloadBaseURL string
	// Retries is the number of attempts for a file blob download.
	Retries int
	// BaseDelay is the backoff unit: the sleep before retry k (0-indexed)
	// is BaseDelay * 2^k.
	BaseDelay time.Duration
}

// Service implements the per-asset download operations: manifest snapshot,
// detail fetch, file blob download with bounded retry, and CSV table export.
type Service struct {
	config Config
	client HTTPClient
	store  *archive.Store
	logger zerolog.Logger

	// sleep is swapped out in tests to observe the backoff schedule.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewService creates the download service. Retries and BaseDelay fall back to
// 3 attempts and 1 second when unset.
func NewService(config Config, client HTTPClient, store *archive.Store, logger zerolog.Logger) (*Service, error) {
	if client == nil {
		return nil, errors.New("HTTP client cannot be nil")
	}
	if store == nil {
		return nil, errors.New("archive store cannot be nil")
	}
	if config.APIBaseURL == "" || config.DownloadBaseURL == "" {
		return nil, errors.New("API and download base URLs are required")
	}
	log := logger.With().Str("component", "Downloader").Logger()
	if config.Retries <= 0 {
		log.Warn().Int("provided_retries", config.Retries).Msg("Retries must be positive, defaulting to 3.")
		config.Retries = 3
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = 1 * time.Second
	}
	return &Service{
		config: config,
		client: client,
		store:  store,
		logger: log,
		sleep:  sleepContext,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
