// Package store provides diagnostic-only snapshot persistence using JSON
// files. It exists for operational visibility (what did the book state look
// like right before a crash) and is never read back to seed the replay
// engine: per the replay design, the recovery snapshot fetched from the
// recovery endpoint is the sole source of truth at startup.
//
// Writes use atomic file replacement (write to .tmp, then rename) to
// prevent corruption from partial writes or crashes mid-save.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"wxarb/pkg/types"
)

// PositionRecord is the persisted shape of one book's position, mirroring
// book.Position without importing the book package (store stays a leaf
// dependency).
type PositionRecord struct {
	BidExposure types.Volume `json:"bidExposure"`
	AskExposure types.Volume `json:"askExposure"`
	Position    int64        `json:"position"`
}

// Snapshot is a point-in-time diagnostic record of the engine's state.
type Snapshot struct {
	Sequence  uint32                    `json:"sequence"`
	Positions map[string]PositionRecord `json:"positions"`
}

// Store persists snapshots to a single JSON file in a designated directory.
// All operations are mutex-protected to prevent concurrent file corruption.
type Store struct {
	dir string
	mu  sync.Mutex
}

// Open creates a store backed by the given directory.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Close is a no-op for file-based storage.
func (s *Store) Close() error {
	return nil
}

func (s *Store) snapshotPath() string {
	return filepath.Join(s.dir, "snapshot.json")
}

// SaveSnapshot atomically persists the given snapshot, overwriting any
// previous one. It writes to a .tmp file first, then renames over the
// target so the file is never left in a partial state.
func (s *Store) SaveSnapshot(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	path := s.snapshotPath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadSnapshot reads the last persisted snapshot, for diagnostics or
// tooling only. Returns nil, nil if none exists. The replay engine must
// never call this to seed its book dictionary.
func (s *Store) LoadSnapshot() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.snapshotPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
