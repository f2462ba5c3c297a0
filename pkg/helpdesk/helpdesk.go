// Package helpdesk talks to the external ticketing system: ticket
// creation for escalated queries and the payload model of its answer
// webhook.
package helpdesk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxResponseSizeBytes = 1 << 20

type Config struct {
	BaseURL       string        `envconfig:"BASE_URL" split_words:"true"`
	Token         string        `envconfig:"TOKEN" split_words:"true"`
	WebhookSecret string        `envconfig:"WEBHOOK_SECRET" split_words:"true"`
	Timeout       time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Ticket is the created record reference returned by the helpdesk.
type Ticket struct {
	ID            string `json:"id"`
	CorrelationID string `json:"correlation_id"`
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("helpdesk base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid helpdesk url: %w", err)
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("helpdesk token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		token:   strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

type createTicketPayload struct {
	Phone         string `json:"phone"`
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	CorrelationID string `json:"correlation_id"`
	CreatedAt     string `json:"created_at"`
}

// CreateTicket opens a ticket with an empty answer field. The caller
// treats a failure as non-fatal: the user flow continues either way.
func (c *Client) CreateTicket(ctx context.Context, userID string, question string) (*Ticket, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("user id is empty")
	}
	if strings.TrimSpace(question) == "" {
		return nil, errors.New("question is empty")
	}

	payload := createTicketPayload{
		Phone:         userID,
		Question:      question,
		Answer:        "",
		CorrelationID: uuid.New().String(),
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal ticket payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tickets", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ticket request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute ticket request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read ticket response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("helpdesk http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var ticket Ticket
	if err := json.Unmarshal(raw, &ticket); err != nil {
		return nil, fmt.Errorf("decode ticket response: %w", err)
	}
	if ticket.ID == "" {
		return nil, errors.New("helpdesk returned ticket without id")
	}
	if ticket.CorrelationID == "" {
		ticket.CorrelationID = payload.CorrelationID
	}
	return &ticket, nil
}
