package operator

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	contractx "github.com/c1do1/whatsapp-support/agent/contract"
)

func scriptedTerminal(input string) (*TerminalChannel, *bytes.Buffer) {
	var out bytes.Buffer
	t := &TerminalChannel{
		in:  bufio.NewReader(strings.NewReader(input)),
		out: &out,
		now: func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) },
	}
	return t, &out
}

func TestTerminalInlineAnswer(t *testing.T) {
	t.Parallel()

	term, out := scriptedTerminal("El equipo tiene 12 personas.\n")
	esc, err := term.NotifyEscalation(context.Background(), contractx.PendingQuery{
		UserID:   "5215550001111",
		Question: "¿Cuántos empleados tiene innovación?",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if esc.InlineAnswer != "El equipo tiene 12 personas." {
		t.Fatalf("inline answer not captured: %+v", esc)
	}
	if esc.AnswerSource != TerminalSource {
		t.Fatalf("wrong answer source: %q", esc.AnswerSource)
	}
	if !strings.Contains(out.String(), "5215550001111") {
		t.Fatal("alert block must show the user")
	}
}

func TestTerminalEmptyReplyLeavesPending(t *testing.T) {
	t.Parallel()

	term, _ := scriptedTerminal("\n")
	esc, err := term.NotifyEscalation(context.Background(), contractx.PendingQuery{
		UserID:   "5215550001111",
		Question: "pregunta",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if esc.InlineAnswer != "" || esc.TicketRef != "" {
		t.Fatalf("empty reply must leave the query open, got %+v", esc)
	}
}

type triageReconciler struct {
	calls []string
}

func (r *triageReconciler) ReconcileHumanAnswer(ctx context.Context, userID, answer, source string) error {
	r.calls = append(r.calls, userID+"|"+answer+"|"+source)
	return nil
}

type staticPending struct {
	open []contractx.PendingQuery
}

func (s *staticPending) AllPending() []contractx.PendingQuery {
	return s.open
}

func TestTriageRoundAnswersSelectedQuery(t *testing.T) {
	t.Parallel()

	term, out := scriptedTerminal("2\nRespuesta para el segundo.\n")
	pending := &staticPending{open: []contractx.PendingQuery{
		{UserID: "u1", Question: "q1"},
		{UserID: "u2", Question: "q2"},
	}}
	rec := &triageReconciler{}
	triage := NewTriage(term, pending, rec, time.Minute)

	triage.round(context.Background())

	if len(rec.calls) != 1 {
		t.Fatalf("expected one reconciliation, got %d", len(rec.calls))
	}
	want := "u2|Respuesta para el segundo.|" + TerminalSource
	if rec.calls[0] != want {
		t.Fatalf("unexpected reconciliation: %q", rec.calls[0])
	}
	if !strings.Contains(out.String(), "CONSULTAS PENDIENTES") {
		t.Fatal("triage header missing")
	}
}

func TestTriageRoundSkippedWithEnter(t *testing.T) {
	t.Parallel()

	term, _ := scriptedTerminal("\n")
	pending := &staticPending{open: []contractx.PendingQuery{{UserID: "u1", Question: "q1"}}}
	rec := &triageReconciler{}
	triage := NewTriage(term, pending, rec, time.Minute)

	triage.round(context.Background())

	if len(rec.calls) != 0 {
		t.Fatalf("enter must skip the round, got %d calls", len(rec.calls))
	}
}

func TestTriageRoundRejectsBadSelection(t *testing.T) {
	t.Parallel()

	term, out := scriptedTerminal("9\n")
	pending := &staticPending{open: []contractx.PendingQuery{{UserID: "u1", Question: "q1"}}}
	rec := &triageReconciler{}
	triage := NewTriage(term, pending, rec, time.Minute)

	triage.round(context.Background())

	if len(rec.calls) != 0 {
		t.Fatal("out-of-range selection must not reconcile")
	}
	if !strings.Contains(out.String(), "Selección no válida") {
		t.Fatal("expected the invalid selection notice")
	}
}
