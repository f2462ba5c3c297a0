package ladder

import (
	"fmt"
	"strings"

	contractx "github.com/c1do1/whatsapp-support/agent/contract"
)

// FormatTrace renders a run trace for the operator logs: handoff chain,
// agents involved, and the knowledge search evidence.
func FormatTrace(entry contractx.AgentName, trace []contractx.TraceEvent) string {
	if len(trace) == 0 {
		return ""
	}

	var (
		handoffs []string
		agents   = []string{string(entry)}
		searches []string
	)
	for _, ev := range trace {
		switch ev.Kind {
		case contractx.TraceHandoff:
			handoffs = append(handoffs, fmt.Sprintf("%s -> %s", ev.From, ev.To))
			agents = append(agents, string(ev.To))
		case contractx.TraceSearch:
			for _, sn := range ev.Snippets {
				text := []rune(sn.Text)
				if len(text) > 100 {
					text = append(text[:100], []rune("...")...)
				}
				searches = append(searches, fmt.Sprintf("archivo=%s relevancia=%.2f extracto=%q",
					sn.Filename, sn.Score, string(text)))
			}
		}
	}

	var b strings.Builder
	if len(handoffs) > 0 {
		b.WriteString("handoffs: ")
		b.WriteString(strings.Join(handoffs, " | "))
		b.WriteString("\n")
	}
	b.WriteString("agentes: ")
	b.WriteString(strings.Join(agents, ", "))
	for _, s := range searches {
		b.WriteString("\n- ")
		b.WriteString(s)
	}
	return b.String()
}
