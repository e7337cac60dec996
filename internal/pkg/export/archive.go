// Package export archives raw snapshot batches to disk. One file per
// bookmaker, overwritten each cycle, for replay and scraper debugging.
package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/oddspulse/oddspulse/internal/pkg/models"
)

// snapshotFile is the on-disk shape: fetch metadata plus the raw records.
type snapshotFile struct {
	Bookmaker  string                  `json:"bookmaker"`
	ArchivedAt time.Time               `json:"archived_at"`
	Count      int                     `json:"count"`
	Records    []models.RawEventRecord `json:"records"`
}

// Archiver writes per-bookmaker snapshot files. A nil Archiver is valid and
// writes nothing, so callers need no branching when archiving is disabled.
type Archiver struct {
	dir string
	log *slog.Logger
}

func NewArchiver(dir string, log *slog.Logger) (*Archiver, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive dir: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Archiver{dir: dir, log: log}, nil
}

// Write stores one bookmaker's snapshot as indented JSON and returns the
// file size in bytes. The file is written to a temp path first so readers
// never see a partial snapshot.
func (a *Archiver) Write(bookmaker string, records []models.RawEventRecord) (int64, error) {
	if a == nil {
		return 0, nil
	}

	data, err := json.MarshalIndent(snapshotFile{
		Bookmaker:  bookmaker,
		ArchivedAt: time.Now().UTC(),
		Count:      len(records),
		Records:    records,
	}, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	path := filepath.Join(a.dir, bookmaker+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return 0, fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return 0, fmt.Errorf("failed to move snapshot into place: %w", err)
	}

	a.log.Debug("Archived snapshot", "bookmaker", bookmaker, "records", len(records), "bytes", len(data))
	return int64(len(data)), nil
}
