package operator

import (
	"context"
	"fmt"

	contractx "github.com/c1do1/whatsapp-support/agent/contract"
	"github.com/c1do1/whatsapp-support/pkg/helpdesk"
)

// HelpdeskSource labels answers that arrive through the ticketing
// webhook.
const HelpdeskSource = "Soporte Humano - Helpdesk"

// HelpdeskChannel opens a ticket per escalation. The answer arrives
// later through the gateway's webhook, never inline.
type HelpdeskChannel struct {
	client *helpdesk.Client
}

func NewHelpdeskChannel(client *helpdesk.Client) *HelpdeskChannel {
	return &HelpdeskChannel{client: client}
}

func (h *HelpdeskChannel) NotifyEscalation(ctx context.Context, pending contractx.PendingQuery) (contractx.Escalation, error) {
	ticket, err := h.client.CreateTicket(ctx, pending.UserID, pending.Question)
	if err != nil {
		return contractx.Escalation{}, fmt.Errorf("create ticket for %s: %w", pending.UserID, err)
	}
	return contractx.Escalation{TicketRef: ticket.ID}, nil
}
