package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/spec-kit/support-router/internal/config"
)

// GatewayNotifier talks to the chat-gateway's send/edit message endpoints.
type GatewayNotifier struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

// NewGatewayNotifier builds a notifier from gateway configuration.
func NewGatewayNotifier(cfg config.GatewayConfig, logger *zap.Logger) *GatewayNotifier {
	return &GatewayNotifier{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		client:  &http.Client{Timeout: cfg.Timeout()},
		logger:  logger,
	}
}

type sendMessageRequest struct {
	Recipient int64  `json:"recipient"`
	Text      string `json:"text"`
}

type sendMessageResponse struct {
	MessageRef string `json:"message_ref"`
}

type editMessageRequest struct {
	Recipient  int64  `json:"recipient"`
	MessageRef string `json:"message_ref"`
	Text       string `json:"text"`
}

// Deliver sends one message and returns the transport message identity.
func (n *GatewayNotifier) Deliver(ctx context.Context, recipient int64, content string) (string, error) {
	body := sendMessageRequest{Recipient: recipient, Text: content}
	var resp sendMessageResponse
	if err := n.post(ctx, "/messages", body, &resp); err != nil {
		return "", err
	}
	return resp.MessageRef, nil
}

// Revise edits a previously delivered message in place.
func (n *GatewayNotifier) Revise(ctx context.Context, recipient int64, messageRef, content string) error {
	body := editMessageRequest{Recipient: recipient, MessageRef: messageRef, Text: content}
	return n.post(ctx, "/messages/edit", body, nil)
}

func (n *GatewayNotifier) post(ctx context.Context, path string, payload any, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode gateway request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("gateway responded %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode gateway response: %w", err)
		}
	}
	return nil
}
