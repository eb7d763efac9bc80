package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// GatewayPayload is the JSON structure posted to an SMS gateway
type GatewayPayload struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
	Body string `json:"body"`
}

// Gateway posts text messages to a generic HTTP SMS gateway as JSON
type Gateway struct {
	url    string
	token  string
	from   string
	client *http.Client
}

// NewGateway creates a Gateway sender with default HTTP client
func NewGateway(url, token, from string) *Gateway {
	return NewGatewayWithClient(url, token, from, &http.Client{
		Timeout: 10 * time.Second,
	})
}

// NewGatewayWithClient creates a Gateway sender with custom HTTP client
func NewGatewayWithClient(url, token, from string, client *http.Client) *Gateway {
	return &Gateway{
		url:    url,
		token:  token,
		from:   from,
		client: client,
	}
}

// SendSMS posts the message as JSON to the gateway URL
func (g *Gateway) SendSMS(ctx context.Context, m SMS) error {
	payload := GatewayPayload{
		To:   m.To,
		From: m.From,
		Body: m.Body,
	}
	if payload.From == "" {
		payload.From = g.from
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal gateway payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("gateway returned %d", resp.StatusCode)
	}
	return nil
}

// Name returns "gateway"
func (g *Gateway) Name() string {
	return "gateway"
}
