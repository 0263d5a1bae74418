package store

import (
	"testing"

	"wxarb/pkg/types"
)

func TestSaveAndLoadSnapshot(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	snap := Snapshot{
		Sequence: 42,
		Positions: map[string]PositionRecord{
			"SYD-2024-12": {BidExposure: 10, AskExposure: 0, Position: 10},
			"IDX-2024-12": {BidExposure: 0, AskExposure: 5, Position: -5},
		},
	}

	if err := s.SaveSnapshot(snap); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	loaded, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadSnapshot returned nil")
	}
	if loaded.Sequence != 42 {
		t.Errorf("Sequence = %d, want 42", loaded.Sequence)
	}
	if loaded.Positions["SYD-2024-12"].Position != 10 {
		t.Errorf("SYD position = %d, want 10", loaded.Positions["SYD-2024-12"].Position)
	}
	if loaded.Positions["IDX-2024-12"].AskExposure != types.Volume(5) {
		t.Errorf("IDX ask exposure = %d, want 5", loaded.Positions["IDX-2024-12"].AskExposure)
	}
}

func TestLoadSnapshotMissing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	loaded, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil for missing snapshot, got %+v", loaded)
	}
}

func TestSaveSnapshotOverwrites(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	_ = s.SaveSnapshot(Snapshot{Sequence: 1})
	_ = s.SaveSnapshot(Snapshot{Sequence: 2})

	loaded, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if loaded.Sequence != 2 {
		t.Errorf("Sequence = %d, want 2 (latest save)", loaded.Sequence)
	}
}
