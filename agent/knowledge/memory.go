package knowledge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	contractx "github.com/c1do1/whatsapp-support/agent/contract"
)

// MemoryStore is an in-process semantic store ranking records by token
// overlap with the stored question. It backs the terminal demo mode and
// the tests; the round-trip property (store then search finds the
// answer) holds here exactly as on the vector store.
type MemoryStore struct {
	mu      sync.Mutex
	records []contractx.QARecord
}

var _ contractx.SemanticStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Store(ctx context.Context, rec contractx.QARecord) error {
	if strings.TrimSpace(rec.Question) == "" || strings.TrimSpace(rec.Answer) == "" {
		return errors.New("qa record needs question and answer")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, query string) ([]contractx.Snippet, error) {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil, errors.New("search query is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var snippets []contractx.Snippet
	for i, rec := range s.records {
		score := overlap(queryTokens, tokenize(rec.Question))
		if score == 0 {
			continue
		}
		snippets = append(snippets, contractx.Snippet{
			Filename: fmt.Sprintf("qa-%04d.json", i),
			Score:    score,
			Text:     fmt.Sprintf("Pregunta: %s\nRespuesta: %s", rec.Question, rec.Answer),
		})
	}

	sort.SliceStable(snippets, func(i, j int) bool {
		return snippets[i].Score > snippets[j].Score
	})
	if len(snippets) > defaultMaxResults {
		snippets = snippets[:defaultMaxResults]
	}
	return snippets, nil
}

func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, field := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		// Short words carry no topical signal in Spanish or English.
		if len([]rune(field)) < 3 {
			continue
		}
		tokens[field] = struct{}{}
	}
	return tokens
}

// overlap is the fraction of query tokens present in the candidate.
func overlap(query, candidate map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	matched := 0
	for token := range query {
		if _, ok := candidate[token]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(query))
}
