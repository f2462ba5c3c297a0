package contract

import "context"

// Ladder runs one inbound message through the tiered agents.
type Ladder interface {
	Run(ctx context.Context, text string, history []Turn) (LadderResult, error)
}

// TierAgent is one rung of the ladder. Input is the composed context
// block (or the raw message when there is no history).
type TierAgent interface {
	Respond(ctx context.Context, req TierRequest) (TierResponse, error)
}

// TierRequest carries the composed input plus the raw current message,
// which the knowledge tier uses as its search query.
type TierRequest struct {
	Input    string
	RawQuery string
}

// TierResponse is a tier's reaction: either a usable message or a
// structural handoff to the next tier. Snippets document the knowledge
// search that backed the decision.
type TierResponse struct {
	Message  string
	Handoff  bool
	Query    string
	Snippets []Snippet
}

// Registry resolves the model-backed tiers. The human tier is terminal
// and has no agent behind it.
type Registry interface {
	Frontline() TierAgent
	Knowledge() TierAgent
}

// SemanticStore is the opaque search/learn capability backing tier-2.
type SemanticStore interface {
	Search(ctx context.Context, query string) ([]Snippet, error)
	Store(ctx context.Context, rec QARecord) error
}

// UserChannel delivers outbound text to the end user.
type UserChannel interface {
	Send(ctx context.Context, userID string, text string) error
}

// HumanChannel receives escalated questions. The terminal operator
// prompt and the helpdesk ticket path both implement it; the
// coordinator does not know which one is wired in.
type HumanChannel interface {
	// NotifyEscalation announces a pending query to a human. It returns
	// an optional ticket reference and, when the human answered inline
	// (terminal mode), the answer itself.
	NotifyEscalation(ctx context.Context, pending PendingQuery) (Escalation, error)
}

// Escalation is the human channel's reaction to a new pending query.
type Escalation struct {
	TicketRef    string
	InlineAnswer string
	AnswerSource string
}

// Archiver durably records tickets and reconciled QA pairs.
// Best-effort: every failure is logged and swallowed by the caller.
type Archiver interface {
	SaveTicket(ctx context.Context, pending PendingQuery) error
	SaveQA(ctx context.Context, rec QARecord) error
}
