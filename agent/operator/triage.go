package operator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/c1do1/whatsapp-support/agent/contract"
)

// Reconciler closes a pending query with the operator's answer.
type Reconciler interface {
	ReconcileHumanAnswer(ctx context.Context, userID, answer, source string) error
}

// PendingLister exposes the open queries, oldest first.
type PendingLister interface {
	AllPending() []contractx.PendingQuery
}

// Triage periodically lists open pending queries and lets the
// operator pick one to answer. It shares the terminal reader with the
// escalation prompt so only one of them reads stdin at a time.
type Triage struct {
	terminal   *TerminalChannel
	pending    PendingLister
	reconciler Reconciler
	interval   time.Duration
}

func NewTriage(terminal *TerminalChannel, pending PendingLister, reconciler Reconciler, interval time.Duration) *Triage {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Triage{
		terminal:   terminal,
		pending:    pending,
		reconciler: reconciler,
		interval:   interval,
	}
}

func (t *Triage) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.round(ctx)
		}
	}
}

func (t *Triage) round(ctx context.Context) {
	open := t.pending.AllPending()
	if len(open) == 0 {
		return
	}

	t.terminal.mu.Lock()
	defer t.terminal.mu.Unlock()
	out := t.terminal.out

	fmt.Fprintln(out)
	fmt.Fprintln(out, divider)
	fmt.Fprintln(out, "CONSULTAS PENDIENTES DE RESPUESTA:")
	fmt.Fprintln(out, divider)
	for i, p := range open {
		fmt.Fprintf(out, "[%d] Usuario: %s\n", i+1, p.UserID)
		fmt.Fprintf(out, "    Consulta: %q\n", p.Question)
		fmt.Fprintf(out, "    Fecha: %s\n", p.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprint(out, "Ingrese el número a responder (o Enter para continuar): ")

	choice, err := t.terminal.readLine()
	if err != nil || choice == "" {
		return
	}
	idx, err := strconv.Atoi(choice)
	if err != nil || idx < 1 || idx > len(open) {
		fmt.Fprintln(out, "Selección no válida.")
		return
	}
	selected := open[idx-1]

	fmt.Fprintf(out, "Respondiendo a %s\n", selected.UserID)
	fmt.Fprintf(out, "Consulta: %q\n", selected.Question)
	fmt.Fprint(out, "Ingrese su respuesta: ")
	answer, err := t.terminal.readLine()
	if err != nil || answer == "" {
		fmt.Fprintln(out, "La consulta sigue pendiente.")
		return
	}

	if err := t.reconciler.ReconcileHumanAnswer(ctx, selected.UserID, answer, TerminalSource); err != nil {
		log.Error().Err(err).Str("user", selected.UserID).Msg("triage reconciliation failed")
		fmt.Fprintln(out, "No se pudo entregar la respuesta, revise los registros.")
		return
	}
	fmt.Fprintln(out, "Respuesta entregada.")
}
