package ladder

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/c1do1/whatsapp-support/agent/contract"
)

type fakeTier struct {
	resp  contractx.TierResponse
	err   error
	calls int
	reqs  []contractx.TierRequest
}

func (f *fakeTier) Respond(ctx context.Context, req contractx.TierRequest) (contractx.TierResponse, error) {
	f.calls++
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return contractx.TierResponse{}, f.err
	}
	return f.resp, nil
}

type fakeRegistry struct {
	frontline *fakeTier
	knowledge *fakeTier
}

func (f *fakeRegistry) Frontline() contractx.TierAgent { return f.frontline }
func (f *fakeRegistry) Knowledge() contractx.TierAgent { return f.knowledge }

func newTestLadder(t *testing.T, reg *fakeRegistry, cfg Config) *Ladder {
	t.Helper()
	l, err := New(reg, cfg)
	if err != nil {
		t.Fatalf("build ladder: %v", err)
	}
	return l
}

func TestFrontlineAnswersDirectly(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistry{
		frontline: &fakeTier{resp: contractx.TierResponse{Message: "¡Hola! ¿En qué puedo ayudarte?"}},
		knowledge: &fakeTier{},
	}
	l := newTestLadder(t, reg, Config{})

	out, err := l.Run(context.Background(), "Hola", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.FinalAgent != contractx.AgentFrontline {
		t.Fatalf("expected frontline terminal, got %s", out.FinalAgent)
	}
	if out.NeedsHuman() {
		t.Fatal("greeting must not need a human")
	}
	if reg.knowledge.calls != 0 {
		t.Fatalf("knowledge tier must not run, got %d calls", reg.knowledge.calls)
	}
	if out.Reply != "¡Hola! ¿En qué puedo ayudarte?" {
		t.Fatalf("unexpected reply: %q", out.Reply)
	}
}

func TestHandoffReachesKnowledgeTier(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistry{
		frontline: &fakeTier{resp: contractx.TierResponse{Handoff: true}},
		knowledge: &fakeTier{resp: contractx.TierResponse{
			Message: "C1DO1 ofrece planes de formación corporativa.",
			Query:   "¿Cuáles son los productos de C1DO1?",
			Snippets: []contractx.Snippet{
				{Filename: "productos.json", Score: 0.91, Text: "planes de formación"},
			},
		}},
	}
	l := newTestLadder(t, reg, Config{})

	out, err := l.Run(context.Background(), "¿Cuáles son los productos de C1DO1?", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.FinalAgent != contractx.AgentKnowledge {
		t.Fatalf("expected knowledge terminal, got %s", out.FinalAgent)
	}
	if reg.knowledge.calls != 1 {
		t.Fatalf("expected 1 knowledge call, got %d", reg.knowledge.calls)
	}

	var sawHandoff, sawSearch bool
	for _, ev := range out.Trace {
		if ev.Kind == contractx.TraceHandoff && ev.From == contractx.AgentFrontline {
			sawHandoff = true
		}
		if ev.Kind == contractx.TraceSearch && len(ev.Snippets) == 1 {
			sawSearch = true
		}
	}
	if !sawHandoff || !sawSearch {
		t.Fatalf("trace missing handoff/search events: %+v", out.Trace)
	}
}

func TestKnowledgeHandoffTerminatesAtHuman(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistry{
		frontline: &fakeTier{resp: contractx.TierResponse{Handoff: true}},
		knowledge: &fakeTier{resp: contractx.TierResponse{Handoff: true, Query: "empleados innovación"}},
	}
	l := newTestLadder(t, reg, Config{})

	out, err := l.Run(context.Background(), "¿Cuántos empleados tiene el departamento de innovación?", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.NeedsHuman() {
		t.Fatalf("expected human terminal, got %s", out.FinalAgent)
	}
	if out.Reply != "" {
		t.Fatalf("human terminal must not carry a reply, got %q", out.Reply)
	}
}

func TestHistoryIsComposedIntoTierInput(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistry{
		frontline: &fakeTier{resp: contractx.TierResponse{Message: "ok"}},
		knowledge: &fakeTier{},
	}
	l := newTestLadder(t, reg, Config{})

	history := []contractx.Turn{{Question: "Hola", Answer: "¡Hola!"}}
	if _, err := l.Run(context.Background(), "¿Sigues ahí?", history); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := reg.frontline.reqs[0].Input
	if !strings.Contains(got, "Usuario: Hola") || !strings.Contains(got, "Consulta actual: ¿Sigues ahí?") {
		t.Fatalf("history not composed into input:\n%s", got)
	}
	if reg.frontline.reqs[0].RawQuery != "¿Sigues ahí?" {
		t.Fatalf("raw query lost: %q", reg.frontline.reqs[0].RawQuery)
	}
}

func TestEmptyMessageIsRejected(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistry{frontline: &fakeTier{}, knowledge: &fakeTier{}}
	l := newTestLadder(t, reg, Config{})

	_, err := l.Run(context.Background(), "   ", nil)
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if reg.frontline.calls != 0 {
		t.Fatal("no tier may run for an empty message")
	}
}

func TestTierErrorPropagates(t *testing.T) {
	t.Parallel()

	modelErr := errors.New("upstream down")
	reg := &fakeRegistry{
		frontline: &fakeTier{err: modelErr},
		knowledge: &fakeTier{},
	}
	l := newTestLadder(t, reg, Config{})

	_, err := l.Run(context.Background(), "Hola", nil)
	if !errors.Is(err, modelErr) {
		t.Fatalf("expected wrapped tier error, got %v", err)
	}
}

func TestTextFallbackEscalatesWhenEnabled(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistry{
		frontline: &fakeTier{resp: contractx.TierResponse{
			Message: "Voy a consultar con nuestro equipo de especialistas para esa pregunta.",
		}},
		knowledge: &fakeTier{resp: contractx.TierResponse{Handoff: true}},
	}
	l := newTestLadder(t, reg, Config{EnableTextFallback: true})

	out, err := l.Run(context.Background(), "¿Qué certificaciones tiene C1DO1?", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.NeedsHuman() {
		t.Fatalf("fallback phrase should have escalated, got %s", out.FinalAgent)
	}
}

func TestTextFallbackIgnoredWhenDisabled(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistry{
		frontline: &fakeTier{resp: contractx.TierResponse{
			Message: "Voy a consultar con nuestro equipo de especialistas para esa pregunta.",
		}},
		knowledge: &fakeTier{},
	}
	l := newTestLadder(t, reg, Config{EnableTextFallback: false})

	out, err := l.Run(context.Background(), "¿Qué certificaciones tiene C1DO1?", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.FinalAgent != contractx.AgentFrontline {
		t.Fatalf("structural signal must win when fallback is off, got %s", out.FinalAgent)
	}
	if reg.knowledge.calls != 0 {
		t.Fatal("knowledge tier must not run without a structural handoff")
	}
}

func TestFormatTrace(t *testing.T) {
	t.Parallel()

	trace := []contractx.TraceEvent{
		{Kind: contractx.TraceHandoff, From: contractx.AgentFrontline, To: contractx.AgentKnowledge},
		{Kind: contractx.TraceSearch, From: contractx.AgentKnowledge, Query: "productos", Snippets: []contractx.Snippet{
			{Filename: "productos.json", Score: 0.9, Text: "planes de formación"},
		}},
	}

	got := FormatTrace(contractx.AgentFrontline, trace)
	if !strings.Contains(got, "handoffs:") || !strings.Contains(got, "productos.json") {
		t.Fatalf("unexpected trace rendering:\n%s", got)
	}
	if FormatTrace(contractx.AgentFrontline, nil) != "" {
		t.Fatal("empty trace must render empty")
	}
}
