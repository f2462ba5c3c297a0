package knowledge

import (
	"context"
	"strings"
	"testing"
	"time"

	contractx "github.com/c1do1/whatsapp-support/agent/contract"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	rec := contractx.QARecord{
		Question:  "¿Cuáles son los productos de C1DO1?",
		Answer:    "C1DO1 ofrece planes de formación corporativa.",
		Source:    "Soporte Humano - Terminal",
		CreatedAt: time.Now().UTC(),
	}
	if err := store.Store(context.Background(), rec); err != nil {
		t.Fatalf("store: %v", err)
	}

	snippets, err := store.Search(context.Background(), rec.Question)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(snippets) == 0 {
		t.Fatal("round trip failed: stored question not found")
	}
	if !strings.Contains(snippets[0].Text, rec.Answer) {
		t.Fatalf("top snippet must contain the answer, got %q", snippets[0].Text)
	}
	if snippets[0].Score <= 0 {
		t.Fatalf("expected positive score, got %f", snippets[0].Score)
	}
}

func TestMemoryStoreRanksByOverlap(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	records := []contractx.QARecord{
		{Question: "¿Cuál es el horario de atención?", Answer: "Lunes a viernes de 9 a 18."},
		{Question: "¿Cuáles son los productos de C1DO1?", Answer: "Planes de formación corporativa."},
	}
	for _, rec := range records {
		if err := store.Store(context.Background(), rec); err != nil {
			t.Fatalf("store: %v", err)
		}
	}

	snippets, err := store.Search(context.Background(), "productos de C1DO1")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(snippets) == 0 {
		t.Fatal("expected at least one hit")
	}
	if !strings.Contains(snippets[0].Text, "formación corporativa") {
		t.Fatalf("wrong record ranked first: %q", snippets[0].Text)
	}
}

func TestMemoryStoreOffTopicReturnsNothing(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if err := store.Store(context.Background(), contractx.QARecord{
		Question: "¿Cuáles son los productos de C1DO1?",
		Answer:   "Planes de formación corporativa.",
	}); err != nil {
		t.Fatalf("store: %v", err)
	}

	snippets, err := store.Search(context.Background(), "recetas vegetarianas sencillas")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(snippets) != 0 {
		t.Fatalf("off-topic query must return nothing, got %d snippets", len(snippets))
	}
}

func TestMemoryStoreRejectsIncompleteRecord(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if err := store.Store(context.Background(), contractx.QARecord{Question: "q"}); err == nil {
		t.Fatal("expected error for record without answer")
	}
}
