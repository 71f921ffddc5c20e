package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"rent-billing/internal/observability/metrics"
)

type webhookPayload struct {
	MsgType string      `json:"msgtype"`
	Text    webhookText `json:"text"`
}

type webhookText struct {
	Content string `json:"content"`
}

// WebhookSink posts rendered notifications to a chat-style webhook.
type WebhookSink struct {
	url      string
	client   *http.Client
	template *Template
}

// WebhookOption configures the webhook sink.
type WebhookOption func(*WebhookSink)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(s *WebhookSink) {
		if client != nil {
			s.client = client
		}
	}
}

// WithTimeout sets the request timeout of the default client.
func WithTimeout(timeout time.Duration) WebhookOption {
	return func(s *WebhookSink) {
		if timeout > 0 {
			s.client = &http.Client{Timeout: timeout}
		}
	}
}

// WithTemplate overrides the message template.
func WithTemplate(tpl *Template) WebhookOption {
	return func(s *WebhookSink) {
		if tpl != nil {
			s.template = tpl
		}
	}
}

// NewWebhookSink constructs a webhook sink.
func NewWebhookSink(url string, opts ...WebhookOption) (*WebhookSink, error) {
	if url == "" {
		return nil, errors.New("webhook sink: empty url")
	}
	tpl, err := NewTemplate("")
	if err != nil {
		return nil, err
	}
	sink := &WebhookSink{
		url:      url,
		client:   &http.Client{Timeout: 10 * time.Second},
		template: tpl,
	}
	for _, opt := range opts {
		opt(sink)
	}
	return sink, nil
}

// Notify renders the notification and posts it.
func (s *WebhookSink) Notify(ctx context.Context, n Notification) (err error) {
	defer func() {
		metrics.IncNotification(string(ChannelWebhook), resultOf(err))
	}()
	if s == nil || s.url == "" {
		return errors.New("webhook sink: empty url")
	}
	content, err := s.template.Render(n)
	if err != nil {
		return err
	}
	body, err := json.Marshal(webhookPayload{
		MsgType: "text",
		Text:    webhookText{Content: content},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook sink: non-2xx response %d", resp.StatusCode)
	}
	return nil
}

func resultOf(err error) string {
	if err != nil {
		return metrics.ResultError
	}
	return metrics.ResultSuccess
}
