package contract

import "time"

// AgentName identifies a tier of the escalation ladder.
type AgentName string

const (
	// AgentFrontline handles greetings, availability questions and
	// other small talk directly.
	AgentFrontline AgentName = "Asistente Inicial C1DO1"
	// AgentKnowledge answers from the company knowledge base, and only
	// from it.
	AgentKnowledge AgentName = "Especialista en Conocimiento C1DO1"
	// AgentHuman is the terminal placeholder: it never produces an
	// answer, its selection means the conversation needs a person.
	AgentHuman AgentName = "Keisy - Especialista Humano"
)

// Turn is one completed question/answer exchange.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// LadderResult is the outcome of one agent-ladder invocation.
type LadderResult struct {
	Reply      string
	FinalAgent AgentName
	Trace      []TraceEvent
}

// NeedsHuman reports whether the ladder terminated at the human
// placeholder tier.
func (r LadderResult) NeedsHuman() bool {
	return r.FinalAgent == AgentHuman
}

type TraceKind string

const (
	TraceHandoff TraceKind = "handoff"
	TraceSearch  TraceKind = "search"
)

// TraceEvent is one observability record from a ladder run: either a
// handoff edge or a knowledge-base search with its snippets. Traces are
// rendered to logs and discarded.
type TraceEvent struct {
	Kind     TraceKind
	From     AgentName
	To       AgentName
	Query    string
	Snippets []Snippet
}

// Snippet is one ranked result from the semantic store.
type Snippet struct {
	Filename string  `json:"filename"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

// QARecord is the stored, retrievable unit written after a human answer
// is reconciled. Immutable once stored.
type QARecord struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"date_added"`
}

// PendingQuery marks a user as escalated and awaiting a human answer.
// At most one exists per user at a time.
type PendingQuery struct {
	UserID    string
	Question  string
	CreatedAt time.Time
	TicketRef string
}
