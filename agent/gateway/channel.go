package gateway

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/c1do1/whatsapp-support/pkg/whatsapp"
)

// WhatsAppChannel adapts the provider client to the coordinator's
// outbound interface.
type WhatsAppChannel struct {
	client *whatsapp.Client
}

func NewWhatsAppChannel(client *whatsapp.Client) *WhatsAppChannel {
	return &WhatsAppChannel{client: client}
}

func (c *WhatsAppChannel) Send(ctx context.Context, userID, text string) error {
	result, err := c.client.SendText(ctx, userID, text)
	if err != nil {
		return fmt.Errorf("send to %s: %w", userID, err)
	}
	if !result.Success {
		log.Error().
			Int("status", result.Status).
			RawJSON("body", result.Raw).
			Str("user", userID).
			Msg("provider rejected outbound message")
		return fmt.Errorf("send to %s: provider status %d", userID, result.Status)
	}
	return nil
}
