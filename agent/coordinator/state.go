package coordinator

import (
	"sort"
	"sync"
	"time"

	contractx "github.com/c1do1/whatsapp-support/agent/contract"
	historyx "github.com/c1do1/whatsapp-support/agent/history"
)

// State owns the per-user conversation histories and pending queries.
// The queue worker is the main mutator; the helpdesk webhook reconciles
// answers from request goroutines, so access is serialized with a
// mutex rather than relying on single-writer discipline alone.
type State struct {
	mu            sync.Mutex
	conversations map[string]*historyx.Conversation
	pending       map[string]contractx.PendingQuery
}

func NewState() *State {
	return &State{
		conversations: make(map[string]*historyx.Conversation),
		pending:       make(map[string]contractx.PendingQuery),
	}
}

// History returns a copy of the user's turns, oldest first.
func (s *State) History(userID string) []contractx.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[userID]
	if !ok {
		return nil
	}
	return append([]contractx.Turn(nil), conv.Turns...)
}

func (s *State) AppendTurn(userID, question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[userID]
	if !ok {
		conv = &historyx.Conversation{UserID: userID}
		s.conversations[userID] = conv
	}
	conv.Append(question, answer)
}

func (s *State) HistoryLen(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversations[userID].Len()
}

// Pending reports the open pending query for a user, if any.
func (s *State) Pending(userID string) (contractx.PendingQuery, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[userID]
	return p, ok
}

// SetPending records an escalation. The at-most-one invariant holds
// because HandleInbound never escalates a user who already has one.
func (s *State) SetPending(p contractx.PendingQuery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[p.UserID] = p
}

// SetTicketRef attaches the external ticket reference to an open
// pending query.
func (s *State) SetTicketRef(userID, ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pending[userID]; ok {
		p.TicketRef = ref
		s.pending[userID] = p
	}
}

// TakePending atomically removes and returns the pending query. The
// remove-first shape is what makes duplicate reconciliation a no-op.
func (s *State) TakePending(userID string) (contractx.PendingQuery, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[userID]
	if ok {
		delete(s.pending, userID)
	}
	return p, ok
}

// AllPending lists open pending queries, oldest first.
func (s *State) AllPending() []contractx.PendingQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]contractx.PendingQuery, 0, len(s.pending))
	for _, p := range s.pending {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// SinglePending returns the one open pending query if exactly one
// exists system-wide. Backs the identity-resolution heuristic of the
// ticket webhook; callers must log its use loudly.
func (s *State) SinglePending() (contractx.PendingQuery, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) != 1 {
		return contractx.PendingQuery{}, false
	}
	for _, p := range s.pending {
		return p, true
	}
	return contractx.PendingQuery{}, false
}

// Age is a helper for announcer logs.
func Age(p contractx.PendingQuery, now time.Time) time.Duration {
	return now.Sub(p.CreatedAt)
}
