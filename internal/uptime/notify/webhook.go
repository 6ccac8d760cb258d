package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// WebhookNotifier posts report completions to a webhook.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

type webhookPayload struct {
	MsgType string        `json:"msgtype"`
	Text    webhookText   `json:"text"`
	Report  ReportMessage `json:"report"`
}

type webhookText struct {
	Content string `json:"content"`
}

// NewWebhookNotifier constructs a notifier.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify posts msg to the webhook.
func (n *WebhookNotifier) Notify(ctx context.Context, msg ReportMessage) error {
	if n == nil || n.url == "" {
		return errors.New("webhook notifier: empty url")
	}
	body, err := json.Marshal(webhookPayload{
		MsgType: "text",
		Text:    webhookText{Content: formatReportMessage(msg)},
		Report:  msg,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook notifier: status %d", resp.StatusCode)
	}
	return nil
}

func formatReportMessage(msg ReportMessage) string {
	var b strings.Builder
	b.WriteString("[Store Uptime Report]\n")
	fmt.Fprintf(&b, "Report: %s\n", msg.ReportID)
	if msg.Anchor != "" {
		fmt.Fprintf(&b, "Anchor: %s\n", msg.Anchor)
	}
	fmt.Fprintf(&b, "Stores: %d\n", msg.Stores)
	if msg.Attempts > 1 {
		fmt.Fprintf(&b, "Attempts: %d\n", msg.Attempts)
	}
	if msg.ReportURL != "" {
		fmt.Fprintf(&b, "Download: %s\n", msg.ReportURL)
	}
	return strings.TrimSpace(b.String())
}
