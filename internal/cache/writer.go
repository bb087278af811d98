// Package cache persists the parsed schema map as a JSON document.
package cache

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/vvka-141/dbfill/pkg/dbfill"
)

// Writer writes the parsed cache to {dir}/{filename}.
type Writer struct {
	dir      string
	filename string
}

// NewWriter creates a Writer. An empty dir means the working directory and
// an empty filename means dbfill.DefaultCacheFilename.
func NewWriter(dir, filename string) *Writer {
	if dir == "" {
		dir = "."
	}
	if filename == "" {
		filename = dbfill.DefaultCacheFilename
	}
	return &Writer{dir: dir, filename: filename}
}

// Path returns the destination file path.
func (w *Writer) Path() string {
	return filepath.Join(w.dir, w.filename)
}

// Write serializes m and replaces the destination file atomically: the JSON
// is written to a temporary file in the same directory, synced, then renamed
// over the destination. An interrupted write leaves the old file in place.
func (w *Writer) Write(m *dbfill.SchemaMap) (string, error) {
	if m == nil {
		return "", fmt.Errorf("cannot write nil schema map")
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory %s: %w", w.dir, err)
	}

	path := w.Path()
	tmpPath := filepath.Join(w.dir, "."+w.filename+"."+uuid.NewString()+".tmp")

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary cache file: %w", err)
	}

	if err := Encode(f, m); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to sync cache file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close cache file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath) // Clean up temp file on error
		return "", fmt.Errorf("failed to replace cache file %s: %w", path, err)
	}

	return path, nil
}

// Encode writes m as UTF-8 JSON with 2-space indentation, keys in insertion
// order, and neither HTML nor non-ASCII characters escaped.
func Encode(w io.Writer, m *dbfill.SchemaMap) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// Read loads a parsed cache file, keeping its key order.
func Read(path string) (*dbfill.SchemaMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file %s: %w", path, err)
	}
	m := dbfill.NewSchemaMap()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse cache file %s: %w", path, err)
	}
	return m, nil
}
