// Package whatsapp is a minimal WhatsApp Business Cloud API client plus
// the webhook payload model the gateway consumes.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseSizeBytes = 1 << 20

type Config struct {
	PhoneNumberID string        `envconfig:"PHONE_NUMBER_ID" split_words:"true" required:"true"`
	AccessToken   string        `envconfig:"ACCESS_TOKEN" split_words:"true" required:"true"`
	VerifyToken   string        `envconfig:"VERIFY_TOKEN" split_words:"true" default:"c1d01-whatsapp-verify"`
	APIVersion    string        `envconfig:"API_VERSION" split_words:"true" default:"v22.0"`
	BaseURL       string        `envconfig:"BASE_URL" split_words:"true" default:"https://graph.facebook.com"`
	Timeout       time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"15s"`
}

type Client struct {
	baseURL       string
	apiVersion    string
	phoneNumberID string
	accessToken   string
	httpClient    *http.Client
}

// SendResult reports delivery success together with the raw provider
// body, which is logged rather than surfaced to the end user.
type SendResult struct {
	Success bool
	Status  int
	Raw     json.RawMessage
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("whatsapp base url is required")
	}
	if strings.TrimSpace(cfg.PhoneNumberID) == "" {
		return nil, errors.New("whatsapp phone number id is required")
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("whatsapp access token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:       baseURL,
		apiVersion:    strings.TrimSpace(cfg.APIVersion),
		phoneNumberID: strings.TrimSpace(cfg.PhoneNumberID),
		accessToken:   strings.TrimSpace(cfg.AccessToken),
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

type textPayload struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

// SendText delivers a text message. A non-2xx provider response is not
// an error: the result carries Success=false and the raw body so the
// caller can log it.
func (c *Client) SendText(ctx context.Context, to string, text string) (*SendResult, error) {
	to = strings.TrimPrefix(strings.TrimSpace(to), "+")
	if to == "" {
		return nil, errors.New("recipient number is empty")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("message text is empty")
	}

	payload := textPayload{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: text},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal send payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.apiVersion, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read send response: %w", err)
	}

	return &SendResult{
		Success: resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices,
		Status:  resp.StatusCode,
		Raw:     json.RawMessage(raw),
	}, nil
}
