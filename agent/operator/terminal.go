// Package operator is the human side of the escalation flow: the
// terminal prompt shown when a query escalates, the triage loop for
// queries left open, and the helpdesk-backed channel for unattended
// deployments.
package operator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	contractx "github.com/c1do1/whatsapp-support/agent/contract"
)

const divider = "======================================================================"

// TerminalSource labels answers typed at the operator console.
const TerminalSource = "Soporte Humano - Terminal"

// TerminalChannel prompts the operator on the spot when a query
// escalates. An empty reply leaves the query pending for the triage
// loop.
type TerminalChannel struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
	now func() time.Time
}

func NewTerminalChannel() *TerminalChannel {
	return &TerminalChannel{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
		now: time.Now,
	}
}

func (t *TerminalChannel) NotifyEscalation(ctx context.Context, pending contractx.PendingQuery) (contractx.Escalation, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintln(t.out)
	fmt.Fprintln(t.out, divider)
	fmt.Fprintln(t.out, "ALERTA: SE REQUIERE RESPUESTA HUMANA")
	fmt.Fprintln(t.out, divider)
	fmt.Fprintf(t.out, "Usuario: %s\n", pending.UserID)
	fmt.Fprintf(t.out, "Consulta: %q\n", pending.Question)
	fmt.Fprintf(t.out, "Fecha: %s\n", t.now().Format("2006-01-02 15:04:05"))
	fmt.Fprint(t.out, "Ingrese su respuesta (o Enter para responder más tarde): ")

	answer, err := t.readLine()
	if err != nil {
		return contractx.Escalation{}, err
	}
	if answer == "" {
		fmt.Fprintln(t.out, "La consulta queda pendiente.")
		return contractx.Escalation{}, nil
	}

	return contractx.Escalation{
		InlineAnswer: answer,
		AnswerSource: TerminalSource,
	}, nil
}

func (t *TerminalChannel) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
