package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// streamChunkSize is the write granularity for payload streams.
const streamChunkSize = 8 * 1024

// A SourceError wraps a failure reading from a payload stream, as opposed to
// writing the local file. Source failures are transient from the caller's
// point of view and may be retried; write failures may not.
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("read payload stream: %v", e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Store owns the output directory that holds every on-disk artifact of a run:
// the manifest snapshot, per-asset metadata markers, and payload files. All
// names are relative to the base directory. The filesystem is abstracted so
// tests can run against an in-memory fs.
type Store struct {
	fs      afero.Fs
	baseDir string
	logger  zerolog.Logger
}

// NewStore creates a store rooted at baseDir, creating the directory if it
// does not exist.
func NewStore(filesystem afero.Fs, baseDir string, logger zerolog.Logger) (*Store, error) {
	if filesystem == nil {
		return nil, errors.New("filesystem cannot be nil")
	}
	if baseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if err := filesystem.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", baseDir, err)
	}
	return &Store{
		fs:      filesystem,
		baseDir: baseDir,
		logger:  logger.With().Str("component", "ArchiveStore").Logger(),
	}, nil
}

// BaseDir returns the output directory root.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Path returns the full path of a named artifact.
func (s *Store) Path(name string) string {
	return filepath.Join(s.baseDir, name)
}

// Exists reports whether a named artifact is present.
func (s *Store) Exists(name string) (bool, error) {
	return afero.Exists(s.fs, s.Path(name))
}

// WriteFile writes a whole artifact in one shot.
func (s *Store) WriteFile(name string, data []byte) error {
	if err := afero.WriteFile(s.fs, s.Path(name), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// ReadFile reads a named artifact in full.
func (s *Store) ReadFile(name string) ([]byte, error) {
	return afero.ReadFile(s.fs, s.Path(name))
}

// ReadPath reads an artifact by full path rather than by name. Paths returned
// by this store (see Path) are already rooted at the base directory.
func (s *Store) ReadPath(path string) ([]byte, error) {
	return afero.ReadFile(s.fs, path)
}

// List returns the names of all regular files in the output directory.
func (s *Store) List() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("list output directory %s: %w", s.baseDir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// WriteStream copies a payload stream to a named artifact in fixed-size
// chunks. A failure reading the stream is returned as a *SourceError and the
// partial file is removed, so a retried download starts from scratch against
// a clean path. A failure writing the file is returned as-is.
func (s *Store) WriteStream(name string, r io.Reader) (int64, error) {
	path := s.Path(name)
	f, err := s.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", name, err)
	}

	var written int64
	buf := make([]byte, streamChunkSize)
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			wn, writeErr := f.Write(buf[:n])
			written += int64(wn)
			if writeErr != nil {
				f.Close()
				return written, fmt.Errorf("write %s: %w", name, writeErr)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			f.Close()
			if removeErr := s.fs.Remove(path); removeErr != nil {
				s.logger.Warn().Err(removeErr).Str("path", path).Msg("Could not remove partial download.")
			}
			return written, &SourceError{Err: readErr}
		}
	}

	if err := f.Close(); err != nil {
		return written, fmt.Errorf("close %s: %w", name, err)
	}
	return written, nil
}
