package whatsapp

import "time"

// WebhookPayload mirrors the provider's notification shape. Only the
// fields the coordinator needs are modeled.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	Messages []Message `json:"messages"`
	Statuses []Status  `json:"statuses"`
}

type Message struct {
	From string       `json:"from"`
	ID   string       `json:"id"`
	Type string       `json:"type"`
	Text *MessageText `json:"text,omitempty"`
}

type MessageText struct {
	Body string `json:"body"`
}

type Status struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
}

// InboundText is one extracted text message ready for the queue.
type InboundText struct {
	From       string
	MessageID  string
	Text       string
	ReceivedAt time.Time
}

// Dropped describes a message that was skipped during extraction.
type Dropped struct {
	From      string
	MessageID string
	Type      string
}

// ExtractTextMessages walks the payload and returns text messages in
// arrival order plus the non-text messages that were dropped. Payloads
// for other objects yield nothing.
func ExtractTextMessages(payload WebhookPayload, now time.Time) ([]InboundText, []Dropped) {
	if payload.Object != "whatsapp_business_account" {
		return nil, nil
	}

	var (
		inbound []InboundText
		dropped []Dropped
	)
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			for _, msg := range change.Value.Messages {
				if msg.Type != "text" || msg.Text == nil {
					dropped = append(dropped, Dropped{
						From:      msg.From,
						MessageID: msg.ID,
						Type:      msg.Type,
					})
					continue
				}
				inbound = append(inbound, InboundText{
					From:       msg.From,
					MessageID:  msg.ID,
					Text:       msg.Text.Body,
					ReceivedAt: now,
				})
			}
		}
	}
	return inbound, dropped
}
