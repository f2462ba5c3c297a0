// Package knowledge implements the semantic store contract: an OpenAI
// vector-store adapter for production and an in-memory store for tests
// and the terminal demo mode.
package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/rs/zerolog/log"

	contractx "github.com/c1do1/whatsapp-support/agent/contract"
)

const defaultMaxResults = 3

// VectorStore stores and searches QA records in an OpenAI vector store.
// Store mirrors the learning flow: a JSON document per QA pair is
// uploaded and attached to the store, making it retrievable by the
// knowledge tier from then on.
type VectorStore struct {
	client        *openaisdk.Client
	vectorStoreID string
	maxResults    int64
}

var _ contractx.SemanticStore = (*VectorStore)(nil)

func NewVectorStore(client *openaisdk.Client, vectorStoreID string) (*VectorStore, error) {
	if client == nil {
		return nil, errors.New("openai client is required")
	}
	if strings.TrimSpace(vectorStoreID) == "" {
		return nil, errors.New("vector store id is required")
	}
	return &VectorStore{
		client:        client,
		vectorStoreID: strings.TrimSpace(vectorStoreID),
		maxResults:    defaultMaxResults,
	}, nil
}

func (s *VectorStore) Search(ctx context.Context, query string) ([]contractx.Snippet, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("search query is empty")
	}

	page, err := s.client.VectorStores.Search(ctx, s.vectorStoreID, openaisdk.VectorStoreSearchParams{
		Query:         openaisdk.VectorStoreSearchParamsQueryUnion{OfString: openaisdk.String(query)},
		MaxNumResults: openaisdk.Int(s.maxResults),
	})
	if err != nil {
		return nil, fmt.Errorf("vector store search: %w", err)
	}

	snippets := make([]contractx.Snippet, 0, len(page.Data))
	for _, result := range page.Data {
		var text strings.Builder
		for _, content := range result.Content {
			text.WriteString(content.Text)
		}
		snippets = append(snippets, contractx.Snippet{
			Filename: result.Filename,
			Score:    result.Score,
			Text:     text.String(),
		})
	}
	return snippets, nil
}

func (s *VectorStore) Store(ctx context.Context, rec contractx.QARecord) error {
	if strings.TrimSpace(rec.Question) == "" || strings.TrimSpace(rec.Answer) == "" {
		return errors.New("qa record needs question and answer")
	}

	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal qa record: %w", err)
	}

	file, err := s.client.Files.New(ctx, openaisdk.FileNewParams{
		File:    openaisdk.File(bytes.NewReader(doc), "qa_record.json", "application/json"),
		Purpose: openaisdk.FilePurposeAssistants,
	})
	if err != nil {
		return fmt.Errorf("upload qa document: %w", err)
	}

	if _, err := s.client.VectorStores.Files.New(ctx, s.vectorStoreID, openaisdk.VectorStoreFileNewParams{
		FileID: file.ID,
	}); err != nil {
		return fmt.Errorf("attach qa document to vector store: %w", err)
	}

	log.Info().
		Str("file_id", file.ID).
		Str("source", rec.Source).
		Msg("qa record stored in vector store")
	return nil
}
