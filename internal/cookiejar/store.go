// Package cookiejar persists the shared extractor credential file.
//
// The gateway keeps at most one "last known good" browser-exported cookie
// file. An upload accompanying a request takes precedence for that request;
// it replaces the persisted file only after the extraction it authenticated
// succeeds. The file itself is opaque here beyond "hand its path to the
// extractor".
package cookiejar

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

// field is the multipart form field carrying the uploaded cookie file.
const field = "cookies"

// Store manages the persisted credential file under the data directory.
type Store struct {
	dataDir string
	path    string
}

// New creates a Store rooted at dataDir.
func New(dataDir string) *Store {
	return &Store{
		dataDir: dataDir,
		path:    filepath.Join(dataDir, "cookies.txt"),
	}
}

// Persisted returns the path of the saved credential file if one exists.
func (s *Store) Persisted() (string, bool) {
	info, err := os.Stat(s.path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return s.path, true
}

// SaveUpload copies an uploaded cookie file, if present in the request, to a
// temporary file and returns its path. Returns "" with no error when the
// request carries no upload.
func (s *Store) SaveUpload(r *http.Request) (string, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read cookie upload: %w", err)
	}
	defer file.Close()

	if header.Filename == "" {
		return "", nil
	}

	tmp, err := os.CreateTemp("", "cookies-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create temp cookie file: %w", err)
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save cookie upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save cookie upload: %w", err)
	}
	return tmp.Name(), nil
}

// Promote copies an uploaded credential over the persisted file. Called only
// after the extraction that used it succeeded; from then on every request
// without its own upload authenticates with it. Failures are logged, never
// surfaced to the request.
func (s *Store) Promote(uploadPath string) {
	if uploadPath == "" {
		return
	}
	if err := s.copyOver(uploadPath); err != nil {
		slog.Warn("Failed to persist cookie file", "error", err)
		return
	}
	slog.Info("Persisted uploaded cookie file", "path", s.path)
}

// Discard removes a temporary uploaded credential, best-effort.
func (s *Store) Discard(uploadPath string) {
	if uploadPath == "" {
		return
	}
	if err := os.Remove(uploadPath); err != nil && !os.IsNotExist(err) {
		slog.Debug("Failed to remove uploaded cookie file", "error", err)
	}
}

func (s *Store) copyOver(src string) error {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	// Write to a sibling temp file and rename so a failed copy never
	// corrupts the persisted credential.
	tmp, err := os.CreateTemp(s.dataDir, "cookies-*.tmp")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
