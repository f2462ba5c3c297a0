package history

import (
	"strings"
	"testing"

	contractx "github.com/c1do1/whatsapp-support/agent/contract"
)

func TestComposeContextNoHistory(t *testing.T) {
	t.Parallel()

	got := ComposeContext(nil, "Hola", FrontlineWindow)
	if got != "Hola" {
		t.Fatalf("expected raw message without history, got %q", got)
	}
}

func TestComposeContextRendersTurns(t *testing.T) {
	t.Parallel()

	turns := []contractx.Turn{
		{Question: "Hola", Answer: "¡Hola! ¿En qué puedo ayudarte?"},
		{Question: "¿Tienen soporte?", Answer: "Sí, de lunes a viernes."},
	}

	got := ComposeContext(turns, "¿Y los sábados?", FrontlineWindow)

	if !strings.Contains(got, "Usuario: Hola") {
		t.Fatalf("missing first user line in:\n%s", got)
	}
	if !strings.Contains(got, "Asistente: Sí, de lunes a viernes.") {
		t.Fatalf("missing assistant line in:\n%s", got)
	}
	if !strings.HasSuffix(got, "Consulta actual: ¿Y los sábados?") {
		t.Fatalf("context must end with the current query, got:\n%s", got)
	}
	if strings.Index(got, "Usuario: Hola") > strings.Index(got, "Usuario: ¿Tienen soporte?") {
		t.Fatal("turns rendered out of order")
	}
}

func TestComposeContextWindowsOldTurns(t *testing.T) {
	t.Parallel()

	turns := []contractx.Turn{
		{Question: "q1", Answer: "a1"},
		{Question: "q2", Answer: "a2"},
		{Question: "q3", Answer: "a3"},
		{Question: "q4", Answer: "a4"},
	}

	got := ComposeContext(turns, "current", FrontlineWindow)

	if strings.Contains(got, "q1") {
		t.Fatalf("turn outside window must be excluded:\n%s", got)
	}
	for _, want := range []string{"q2", "q3", "q4"} {
		if !strings.Contains(got, want) {
			t.Fatalf("turn %s missing from window:\n%s", want, got)
		}
	}

	wide := ComposeContext(turns, "current", KnowledgeWindow)
	if !strings.Contains(wide, "q1") {
		t.Fatalf("knowledge window should include four turns:\n%s", wide)
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()

	if got := Summary(nil, FrontlineWindow); got != "sin contexto previo" {
		t.Fatalf("unexpected empty summary: %q", got)
	}

	turns := []contractx.Turn{
		{Question: "Hola", Answer: "¡Hola!"},
	}
	got := Summary(turns, FrontlineWindow)
	if !strings.Contains(got, "1 turnos de contexto") {
		t.Fatalf("unexpected summary: %q", got)
	}
}

func TestConversationAppend(t *testing.T) {
	t.Parallel()

	conv := &Conversation{UserID: "5215550001111"}
	conv.Append("Hola", "¡Hola!")
	conv.Append("¿Precio?", "Depende del plan.")

	if conv.Len() != 2 {
		t.Fatalf("expected 2 turns, got %d", conv.Len())
	}
	if conv.Turns[0].Question != "Hola" {
		t.Fatalf("turn order broken: %+v", conv.Turns)
	}
}
