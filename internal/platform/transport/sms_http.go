package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SMSGatewayConfig configures the HTTP SMS gateway sender.
type SMSGatewayConfig struct {
	URL   string
	Token string
	From  string
}

// HTTPSMSSender submits messages to an HTTP SMS gateway as JSON.
type HTTPSMSSender struct {
	cfg    SMSGatewayConfig
	client *http.Client
}

func NewHTTPSMSSender(cfg SMSGatewayConfig) *HTTPSMSSender {
	return &HTTPSMSSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type smsRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

type smsResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

func (s *HTTPSMSSender) SendSMS(ctx context.Context, to, body string) (string, error) {
	payload, err := json.Marshal(smsRequest{From: s.cfg.From, To: to, Body: body})
	if err != nil {
		return "", fmt.Errorf("encode sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sms gateway request: %w", err)
	}
	defer resp.Body.Close()

	var result smsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode sms gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := result.Error
		if msg == "" {
			msg = resp.Status
		}
		return "", fmt.Errorf("sms gateway rejected message: %s", msg)
	}

	return result.MessageID, nil
}
