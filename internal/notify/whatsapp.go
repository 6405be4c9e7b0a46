package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmeshcher/creditbook/internal/validation"
)

// WhatsAppClient инкапсулирует HTTP-взаимодействие с WhatsApp Cloud API.
type WhatsAppClient struct {
	baseURL       string
	phoneNumberID string
	accessToken   string
	language      string
	httpClient    *http.Client
}

// NewWhatsAppClient создаёт клиент WhatsApp Cloud API.
func NewWhatsAppClient(baseURL, phoneNumberID, accessToken string, timeout time.Duration) *WhatsAppClient {
	return &WhatsAppClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		phoneNumberID: phoneNumberID,
		accessToken:   accessToken,
		language:      "en_US",
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type waTextBody struct {
	Body string `json:"body"`
}

type waParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type waComponent struct {
	Type       string        `json:"type"`
	Parameters []waParameter `json:"parameters"`
}

type waLanguage struct {
	Code string `json:"code"`
}

type waTemplate struct {
	Name       string        `json:"name"`
	Language   waLanguage    `json:"language"`
	Components []waComponent `json:"components,omitempty"`
}

type waRequest struct {
	MessagingProduct string      `json:"messaging_product"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Text             *waTextBody `json:"text,omitempty"`
	Template         *waTemplate `json:"template,omitempty"`
}

func (c *WhatsAppClient) buildRequest(msg Message) waRequest {
	req := waRequest{
		MessagingProduct: "whatsapp",
		To:               validation.WhatsAppRecipient(msg.To),
	}

	if msg.Template == "" {
		req.Type = "text"
		req.Text = &waTextBody{Body: msg.Body}
		return req
	}

	params := make([]waParameter, 0, len(msg.Params))
	for _, p := range msg.Params {
		params = append(params, waParameter{Type: "text", Text: p})
	}

	req.Type = "template"
	req.Template = &waTemplate{
		Name:     msg.Template,
		Language: waLanguage{Code: c.language},
	}
	if len(params) > 0 {
		req.Template.Components = []waComponent{{Type: "body", Parameters: params}}
	}
	return req
}

// Send отправляет сообщение одному получателю.
func (c *WhatsAppClient) Send(ctx context.Context, msg Message) error {
	if c == nil || c.baseURL == "" || c.phoneNumberID == "" {
		return fmt.Errorf("whatsapp client not configured")
	}

	payload, err := json.Marshal(c.buildRequest(msg))
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: retryAfter(resp.Header.Get("Retry-After"))}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status: %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}
