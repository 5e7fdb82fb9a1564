// Package bootstrap provisions the external resources the agent needs on
// first start, currently the OpenAI vector store backing file search.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/xpandai03/operator-agent/internal/state"
)

const vectorStoreName = "operator-agent-docs"

// seedDocuments are uploaded into a freshly created vector store so file
// search has content to answer from out of the box.
var seedDocuments = map[string]string{
	"patagonia_notes.md": `# Patagonia Trip Notes

Best season: November through March. Book refugios in Torres del Paine
months ahead. The W trek takes 4-5 days; the O circuit 7-9. Pack for four
seasons in one day. El Chalten on the Argentine side has free trail access
and great day hikes to Fitz Roy and Cerro Torre.`,
	"tokyo_shops.md": `# Tokyo Shopping Notes

Shibuya and Harajuku for streetwear, Nakameguro for vintage. Don Quijote is
open late for everything else. Tax-free counters need a passport. Most
shops open at 11:00. For electronics go to Akihabara, for kitchenware to
Kappabashi Street.`,
}

// EnsureVectorStore returns the vector store id to use, creating and seeding
// a store when none is configured or remembered. The id is persisted through
// the state file so later starts reuse it.
func EnsureVectorStore(ctx context.Context, apiKey, configuredID string, stateFile *state.File, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if configuredID != "" {
		return configuredID, nil
	}

	if id, err := stateFile.VectorStoreID(); err != nil {
		logger.Warn("Failed to read state file", "error", err)
	} else if id != "" {
		logger.Info("Reusing vector store from state file", "vector_store_id", id)
		return id, nil
	}

	if apiKey == "" {
		return "", nil
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	store, err := client.VectorStores.New(ctx, openai.VectorStoreNewParams{
		Name: openai.String(vectorStoreName),
	})
	if err != nil {
		return "", fmt.Errorf("create vector store: %w", err)
	}
	logger.Info("Created vector store", "vector_store_id", store.ID)

	for name, content := range seedDocuments {
		if err := uploadSeedDocument(ctx, &client, store.ID, name, content); err != nil {
			// A failed seed leaves the store usable, just thinner.
			logger.Warn("Failed to seed document", "name", name, "error", err)
		}
	}

	if err := stateFile.SaveVectorStoreID(store.ID); err != nil {
		logger.Warn("Failed to persist vector store id", "error", err)
	}
	return store.ID, nil
}

func uploadSeedDocument(ctx context.Context, client *openai.Client, storeID, name, content string) error {
	file, err := client.Files.New(ctx, openai.FileNewParams{
		File:    openai.File(strings.NewReader(content), name, "text/markdown"),
		Purpose: openai.FilePurposeAssistants,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	if _, err := client.VectorStores.Files.New(ctx, storeID, openai.VectorStoreFileNewParams{
		FileID: file.ID,
	}); err != nil {
		return fmt.Errorf("attach %s: %w", name, err)
	}
	return nil
}
