package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xpandai03/operator-agent/internal/state"
)

func TestEnsureVectorStoreShortCircuits(t *testing.T) {
	stateFile := state.NewFile(filepath.Join(t.TempDir(), "state.json"))

	t.Run("configured id wins", func(t *testing.T) {
		id, err := EnsureVectorStore(context.Background(), "", "vs_configured", stateFile, nil)
		if err != nil {
			t.Fatalf("EnsureVectorStore() error = %v", err)
		}
		if id != "vs_configured" {
			t.Errorf("id = %q, want vs_configured", id)
		}
	})

	t.Run("remembered id reused", func(t *testing.T) {
		if err := stateFile.SaveVectorStoreID("vs_remembered"); err != nil {
			t.Fatalf("SaveVectorStoreID() error = %v", err)
		}
		id, err := EnsureVectorStore(context.Background(), "", "", stateFile, nil)
		if err != nil {
			t.Fatalf("EnsureVectorStore() error = %v", err)
		}
		if id != "vs_remembered" {
			t.Errorf("id = %q, want vs_remembered", id)
		}
	})

	t.Run("no key and nothing remembered", func(t *testing.T) {
		empty := state.NewFile(filepath.Join(t.TempDir(), "state.json"))
		id, err := EnsureVectorStore(context.Background(), "", "", empty, nil)
		if err != nil {
			t.Fatalf("EnsureVectorStore() error = %v", err)
		}
		if id != "" {
			t.Errorf("id = %q, want empty without an API key", id)
		}
	})
}
