// Package history holds per-user conversation turns and composes the
// recency-windowed context block fed to the agent ladder.
package history

import (
	"fmt"
	"strings"

	contractx "github.com/c1do1/whatsapp-support/agent/contract"
)

// Context windows per tier. The frontline tier sees the last three
// turns; the knowledge tier gets one more for search grounding.
const (
	FrontlineWindow = 3
	KnowledgeWindow = 4
)

// Conversation is an append-only ordered sequence of completed turns
// for one user.
type Conversation struct {
	UserID string
	Turns  []contractx.Turn
}

func (c *Conversation) Append(question, answer string) {
	c.Turns = append(c.Turns, contractx.Turn{Question: question, Answer: answer})
}

func (c *Conversation) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Turns)
}

// ComposeContext renders the last `window` turns and the current
// message as the context block the tier agents consume. Pure function:
// no side effects, deterministic for the same inputs.
func ComposeContext(turns []contractx.Turn, current string, window int) string {
	if len(turns) == 0 {
		return current
	}
	if window > 0 && len(turns) > window {
		turns = turns[len(turns)-window:]
	}

	var b strings.Builder
	b.WriteString("Historial de conversación anterior:\n")
	for _, turn := range turns {
		b.WriteString("Usuario: ")
		b.WriteString(turn.Question)
		b.WriteString("\nAsistente: ")
		b.WriteString(turn.Answer)
		b.WriteString("\n")
	}
	b.WriteString("\nConsulta actual: ")
	b.WriteString(current)
	return b.String()
}

// Summary is a short operator-facing description of the context being
// passed, rendered into the run logs.
func Summary(turns []contractx.Turn, window int) string {
	if len(turns) == 0 {
		return "sin contexto previo"
	}
	if window > 0 && len(turns) > window {
		turns = turns[len(turns)-window:]
	}

	chars := 0
	for _, turn := range turns {
		chars += len(turn.Question) + len(turn.Answer)
	}

	last := []rune(turns[len(turns)-1].Answer)
	if len(last) > 30 {
		last = append(last[:30], []rune("...")...)
	}

	return fmt.Sprintf("%d turnos de contexto | %d caracteres | último: %q",
		len(turns), chars, string(last))
}
