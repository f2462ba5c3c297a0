// Package coordinator owns the escalation state machine: it runs each
// inbound message through the agent ladder, opens pending queries when
// the ladder terminates at the human placeholder, and reconciles human
// answers arriving from either channel.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/c1do1/whatsapp-support/agent/contract"
	historyx "github.com/c1do1/whatsapp-support/agent/history"
	ladderx "github.com/c1do1/whatsapp-support/agent/ladder"
)

// User-facing texts. All Spanish, matching the supported market.
const (
	// Sent when a user messages again while already escalated.
	MsgStillWaiting = "Tu consulta ha sido transferida a un especialista humano. En breve recibirás una respuesta. Gracias por tu paciencia."
	// Sent after a ticket was opened for the query.
	MsgQueued = "Estamos procesando tu consulta. Un especialista humano te responderá en breve. Gracias por tu paciencia."
	// Sent when escalation happened but the ticket could not be opened;
	// deliberately distinct from MsgQueued so operators can tell the
	// two apart in transcripts.
	MsgQueuedNoTicket = "Tu consulta será atendida por nuestro equipo en cuanto sea posible. Gracias por tu paciencia."
	// Generic apology for a message that failed processing.
	MsgApology = "Lo siento, ha ocurrido un error al procesar tu mensaje. Por favor, intenta nuevamente más tarde."
)

type Config struct {
	QueueSize        int           `envconfig:"QUEUE_SIZE" split_words:"true" default:"64"`
	AnnounceInterval time.Duration `envconfig:"ANNOUNCE_INTERVAL" split_words:"true" default:"30s"`
}

type Coordinator struct {
	state   *State
	ladder  contractx.Ladder
	store   contractx.SemanticStore
	users   contractx.UserChannel
	humans  contractx.HumanChannel
	archive contractx.Archiver

	queue chan InboundMessage
	cfg   Config
	now   func() time.Time
}

func New(
	state *State,
	ladder contractx.Ladder,
	store contractx.SemanticStore,
	users contractx.UserChannel,
	humans contractx.HumanChannel,
	archive contractx.Archiver,
	cfg Config,
) (*Coordinator, error) {
	if state == nil {
		return nil, errors.New("state store is required")
	}
	if ladder == nil {
		return nil, errors.New("agent ladder is required")
	}
	if store == nil {
		return nil, errors.New("semantic store is required")
	}
	if users == nil {
		return nil, errors.New("user channel is required")
	}
	if humans == nil {
		return nil, errors.New("human channel is required")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.AnnounceInterval <= 0 {
		cfg.AnnounceInterval = 30 * time.Second
	}

	return &Coordinator{
		state:   state,
		ladder:  ladder,
		store:   store,
		users:   users,
		humans:  humans,
		archive: archive,
		queue:   make(chan InboundMessage, cfg.QueueSize),
		cfg:     cfg,
		now:     time.Now,
	}, nil
}

// State exposes the store for the gateway's extraction heuristics and
// the operator triage loop.
func (c *Coordinator) State() *State {
	return c.state
}

// HandleInbound processes one user message through the state machine.
// Transitions are committed before outbound delivery; a delivery
// failure is logged, never rolled back.
func (c *Coordinator) HandleInbound(ctx context.Context, userID, text string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id is empty", contractx.ErrValidation)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: message text is empty", contractx.ErrValidation)
	}

	// AWAITING_HUMAN: acknowledge, never re-run the ladder. This is
	// what keeps a chatty user from opening duplicate tickets.
	if _, ok := c.state.Pending(userID); ok {
		log.Info().Str("user", userID).Msg("user already awaiting human answer, acknowledging")
		c.deliver(ctx, userID, MsgStillWaiting)
		return nil
	}

	history := c.state.History(userID)
	log.Debug().
		Str("user", userID).
		Str("context", historyx.Summary(history, historyx.KnowledgeWindow)).
		Msg("running agent ladder")

	result, err := c.ladder.Run(ctx, text, history)
	if err != nil {
		return fmt.Errorf("ladder run for user %s: %w", userID, err)
	}

	if rendered := ladderx.FormatTrace(contractx.AgentFrontline, result.Trace); rendered != "" {
		log.Debug().Str("user", userID).Msg("ladder trace:\n" + rendered)
	}

	if result.NeedsHuman() {
		return c.escalate(ctx, userID, text)
	}

	c.state.AppendTurn(userID, text, result.Reply)
	log.Info().
		Str("user", userID).
		Str("agent", string(result.FinalAgent)).
		Msg("ladder answered directly")
	c.deliver(ctx, userID, result.Reply)
	return nil
}

// escalate opens the pending record and hands the question to the
// human channel. The pending record exists before the channel is
// notified so an inline answer (terminal mode) finds it in place.
func (c *Coordinator) escalate(ctx context.Context, userID, question string) error {
	pending := contractx.PendingQuery{
		UserID:    userID,
		Question:  question,
		CreatedAt: c.now().UTC(),
	}
	c.state.SetPending(pending)
	log.Info().Str("user", userID).Msg("escalated to human support")

	esc, err := c.humans.NotifyEscalation(ctx, pending)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("human channel notification failed")
		c.deliver(ctx, userID, MsgQueuedNoTicket)
		return nil
	}

	if esc.InlineAnswer != "" {
		// Terminal mode answered on the spot; reconcile through the
		// same routine as the webhook path.
		return c.ReconcileHumanAnswer(ctx, userID, esc.InlineAnswer, esc.AnswerSource)
	}

	if esc.TicketRef != "" {
		c.state.SetTicketRef(userID, esc.TicketRef)
		pending.TicketRef = esc.TicketRef
		c.archiveTicket(ctx, pending)
		c.deliver(ctx, userID, MsgQueued)
	} else {
		c.deliver(ctx, userID, MsgQueuedNoTicket)
	}
	return nil
}

// ReconcileHumanAnswer closes the pending query for a user: store the
// QA pair, append the turn, deliver the answer, clear the record. The
// question always comes from the pending record, never the caller.
// Calling it again for the same user is a logged no-op.
func (c *Coordinator) ReconcileHumanAnswer(ctx context.Context, userID, answer, source string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id is empty", contractx.ErrValidation)
	}
	if strings.TrimSpace(answer) == "" {
		return fmt.Errorf("%w: answer is empty", contractx.ErrValidation)
	}

	pending, ok := c.state.TakePending(userID)
	if !ok {
		log.Warn().Str("user", userID).Msg("human answer without matching pending query, dropping")
		return fmt.Errorf("%w: %s", contractx.ErrNoPendingQuery, userID)
	}

	rec := contractx.QARecord{
		Question:  pending.Question,
		Answer:    answer,
		Source:    source,
		CreatedAt: c.now().UTC(),
	}

	// Learning is best-effort: the user still gets the answer when the
	// store write fails.
	if err := c.store.Store(ctx, rec); err != nil {
		log.Error().Err(err).Str("user", userID).Msg("semantic store write failed")
	}
	c.archiveQA(ctx, rec)

	c.state.AppendTurn(userID, pending.Question, answer)
	c.deliver(ctx, userID, answer)

	log.Info().
		Str("user", userID).
		Str("source", source).
		Str("ticket", pending.TicketRef).
		Msg("human answer reconciled")
	return nil
}

// RunAnnouncer periodically logs open pending queries for manual
// triage. There is no automatic expiry: a query stays open until a
// human answers it.
func (c *Coordinator) RunAnnouncer(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.AnnounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			open := c.state.AllPending()
			if len(open) == 0 {
				continue
			}
			now := c.now()
			for _, p := range open {
				log.Warn().
					Str("user", p.UserID).
					Str("question", p.Question).
					Str("ticket", p.TicketRef).
					Dur("open_for", Age(p, now)).
					Msg("pending query awaiting human answer")
			}
		}
	}
}

func (c *Coordinator) deliver(ctx context.Context, userID, text string) {
	if err := c.users.Send(ctx, userID, text); err != nil {
		log.Error().Err(err).Str("user", userID).Msg("user channel delivery failed")
	}
}

func (c *Coordinator) archiveTicket(ctx context.Context, pending contractx.PendingQuery) {
	if c.archive == nil {
		return
	}
	if err := c.archive.SaveTicket(ctx, pending); err != nil {
		log.Error().Err(err).Str("user", pending.UserID).Msg("ticket archive failed")
	}
}

func (c *Coordinator) archiveQA(ctx context.Context, rec contractx.QARecord) {
	if c.archive == nil {
		return
	}
	if err := c.archive.SaveQA(ctx, rec); err != nil {
		log.Error().Err(err).Str("source", rec.Source).Msg("qa archive failed")
	}
}
