package csvlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Header is written as the first row of an empty log.
var Header = []string{"timestamp", "mac", "ip", "resultado"}

// File is an append-only, semicolon-separated connection log.
type File struct {
	path string
	mu   sync.Mutex
}

// New returns a log backed by path. The file is created on first Append.
func New(path string) *File {
	return &File{path: path}
}

// Append writes one row, preceded by the header when the file is missing or
// empty.
func (f *File) Append(timestamp, mac, ip, result string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	fh, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer fh.Close()

	info, err := fh.Stat()
	if err != nil {
		return fmt.Errorf("stat log: %w", err)
	}

	w := csv.NewWriter(fh)
	w.Comma = ';'
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("writing log header: %w", err)
		}
	}
	if err := w.Write([]string{timestamp, mac, ip, Sanitize(result)}); err != nil {
		return fmt.Errorf("writing log row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing log: %w", err)
	}
	return nil
}

var sanitizer = strings.NewReplacer("\n", " ", "\r", " ", ";", ",")

// Sanitize keeps a result on a single row and out of the separator.
func Sanitize(s string) string {
	return sanitizer.Replace(s)
}
