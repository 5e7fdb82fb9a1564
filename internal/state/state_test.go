package state

import (
	"path/filepath"
	"testing"
)

func TestVectorStoreIDRoundTrip(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), ".state", "operator_agent.json"))

	id, err := f.VectorStoreID()
	if err != nil {
		t.Fatalf("VectorStoreID on missing file: %v", err)
	}
	if id != "" {
		t.Errorf("Expected empty id before save, got %q", id)
	}

	if err := f.SaveVectorStoreID("vs_abc123"); err != nil {
		t.Fatalf("SaveVectorStoreID: %v", err)
	}

	id, err = f.VectorStoreID()
	if err != nil {
		t.Fatalf("VectorStoreID after save: %v", err)
	}
	if id != "vs_abc123" {
		t.Errorf("Expected vs_abc123, got %q", id)
	}
}

func TestSaveOverwrites(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "state.json"))

	if err := f.SaveVectorStoreID("vs_old"); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := f.SaveVectorStoreID("vs_new"); err != nil {
		t.Fatalf("second save: %v", err)
	}

	id, err := f.VectorStoreID()
	if err != nil {
		t.Fatalf("VectorStoreID: %v", err)
	}
	if id != "vs_new" {
		t.Errorf("Expected vs_new, got %q", id)
	}
}
