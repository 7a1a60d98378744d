// Package resume persists a best-effort playback snapshot so a new session
// can pick up where the previous one left off.
package resume

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Snapshot is the serializable resume state. It intentionally carries item
// and list IDs rather than stream URLs; URLs may have expired by the time
// the snapshot is read back.
type Snapshot struct {
	CurrentItemID  string  `json:"currentItemId"`
	ListID         string  `json:"listId"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
	Volume         int     `json:"volume"`
	RepeatMode     string  `json:"repeatMode"`
	Shuffled       bool    `json:"isShuffled"`
}

// Store is the snapshot persistence contract.
type Store interface {
	Save(s Snapshot) error
	Load() (Snapshot, bool)
}

// FileStore persists snapshots as JSON in a single local file.
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save writes the snapshot atomically (temp file plus rename) so a crash
// mid-write never leaves a truncated snapshot behind.
func (f *FileStore) Save(s Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "failed to encode snapshot")
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create snapshot directory")
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write snapshot")
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return errors.Wrap(err, "failed to replace snapshot")
	}
	return nil
}

// Load reads the snapshot back. A missing or unreadable file is not an
// error at startup; it just means there is nothing to resume.
func (f *FileStore) Load() (Snapshot, bool) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			zlog.Warn().Msgf("resume: failed to read snapshot %s: %v", f.path, err)
		}
		return Snapshot{}, false
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		zlog.Warn().Msgf("resume: discarding corrupt snapshot %s: %v", f.path, err)
		return Snapshot{}, false
	}
	return s, true
}

// Noop discards snapshots. Used when resume is not configured.
type Noop struct{}

func (Noop) Save(Snapshot) error    { return nil }
func (Noop) Load() (Snapshot, bool) { return Snapshot{}, false }
