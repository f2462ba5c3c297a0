package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/c1do1/whatsapp-support/agent/contract"
	coordinatorx "github.com/c1do1/whatsapp-support/agent/coordinator"
	"github.com/c1do1/whatsapp-support/pkg/helpdesk"
	"github.com/c1do1/whatsapp-support/pkg/whatsapp"
)

const (
	secretHeader = "X-Webhook-Secret"

	maxBodyBytes = 1 << 20
)

// Intake receives validated inbound messages for asynchronous
// processing. Handlers never run the ladder themselves.
type Intake interface {
	Enqueue(msg coordinatorx.InboundMessage) error
}

// Reconciler closes pending queries with a human answer.
type Reconciler interface {
	ReconcileHumanAnswer(ctx context.Context, userID, answer, source string) error
}

// PendingIndex is the read view the identity fallback needs.
type PendingIndex interface {
	SinglePending() (contractx.PendingQuery, bool)
}

type Handler struct {
	Intake     Intake
	Reconciler Reconciler
	Pending    PendingIndex

	VerifyToken   string
	WebhookSecret string

	now func() time.Time
}

func NewHandler(intake Intake, reconciler Reconciler, pending PendingIndex, verifyToken, webhookSecret string) *Handler {
	return &Handler{
		Intake:        intake,
		Reconciler:    reconciler,
		Pending:       pending,
		VerifyToken:   verifyToken,
		WebhookSecret: webhookSecret,
		now:           time.Now,
	}
}

// VerifyWebhook answers the provider's subscription handshake. The
// challenge is echoed verbatim, as plain text.
func (h *Handler) VerifyWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode != "subscribe" || token != h.VerifyToken {
		log.Warn().Str("mode", mode).Msg("webhook verification rejected")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	log.Info().Msg("webhook verified")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, challenge)
}

// ReceiveWebhook parses a provider notification and enqueues its text
// messages. Intake problems are logged, not surfaced: the provider
// retries on non-2xx and a retry storm helps nobody.
func (h *Handler) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	var payload whatsapp.WebhookPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed payload"})
		return
	}

	inbound, dropped := whatsapp.ExtractTextMessages(payload, h.now())
	for _, d := range dropped {
		log.Info().
			Str("from", d.From).
			Str("type", d.Type).
			Msg("dropping non-text message")
	}
	for _, msg := range inbound {
		err := h.Intake.Enqueue(coordinatorx.InboundMessage{
			UserID:     msg.From,
			MessageID:  msg.MessageID,
			Text:       msg.Text,
			ReceivedAt: msg.ReceivedAt,
		})
		if err != nil {
			log.Error().Err(err).Str("from", msg.From).Msg("inbound queue rejected message")
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

// HelpdeskAnswer accepts an operator's ticket resolution. The payload
// shape floats across helpdesk versions, so the user is located by an
// ordered extraction chain rather than one fixed field.
func (h *Handler) HelpdeskAnswer(w http.ResponseWriter, r *http.Request) {
	if h.WebhookSecret == "" || r.Header.Get(secretHeader) != h.WebhookSecret {
		log.Warn().Msg("helpdesk callback with bad secret")
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	var payload helpdesk.AnswerPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed payload"})
		return
	}
	if payload.Answer == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "answer is required"})
		return
	}

	userID, how, err := h.resolveUser(&payload, body)
	if err != nil {
		log.Error().Err(err).RawJSON("payload", body).Msg("helpdesk answer with unresolvable user")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user could not be resolved"})
		return
	}
	log.Info().Str("user", userID).Str("resolved_by", how).Msg("helpdesk answer received")

	err = h.Reconciler.ReconcileHumanAnswer(r.Context(), userID, payload.Answer, "Soporte Humano - Helpdesk")
	if errors.Is(err, contractx.ErrNoPendingQuery) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no pending query for user"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "reconciliation failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "delivered"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
