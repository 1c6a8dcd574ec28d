package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hairizuan-noorazman/automation-bridge/run"
)

// SignatureHeader carries the hex HMAC-SHA256 of the webhook body,
// prefixed with "sha256=". Receivers recompute it with the shared
// secret to verify the payload origin.
const SignatureHeader = "X-Bridge-Signature"

// WebhookNotifier posts a JSON failure summary to an HTTP endpoint.
// When a shared secret is configured the body is signed so receivers
// can authenticate the sender.
type WebhookNotifier struct {
	httpClient *http.Client
	url        string
	secret     []byte
}

// NewWebhookNotifier creates a notifier from a webhook credential secret
// set. The "url" key is required. The "secret" key is optional; when
// present every delivery carries a signature header.
func NewWebhookNotifier(credentials map[string]string) (*WebhookNotifier, error) {
	endpoint, ok := credentials["url"]
	if !ok || endpoint == "" {
		return nil, fmt.Errorf("webhook: url is required")
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("webhook: url must start with http:// or https://")
	}

	var secret []byte
	if s := credentials["secret"]; s != "" {
		secret = []byte(s)
	}

	return &WebhookNotifier{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		url:        endpoint,
		secret:     secret,
	}, nil
}

type webhookFailure struct {
	Index   int    `json:"index"`
	URL     string `json:"url,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

type webhookPayload struct {
	Event          string           `json:"event"`
	RunID          string           `json:"run_id"`
	Status         string           `json:"status"`
	Policy         string           `json:"policy"`
	Title          string           `json:"title"`
	TotalItems     int              `json:"total_items"`
	CompletedItems int              `json:"completed_items"`
	FailedItems    int              `json:"failed_items"`
	Failures       []webhookFailure `json:"failures"`
	OccurredAt     time.Time        `json:"occurred_at"`
}

// Sign computes the signature header value for a request body. Exposed
// so receivers and tests share one definition.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// NotifyRunFailure delivers the failure summary. Webhooks produce no
// report URL, so the first return value is always empty.
func (n *WebhookNotifier) NotifyRunFailure(ctx context.Context, r *run.Run, failed []*run.Item) (string, error) {
	payload := webhookPayload{
		Event:          "run.failed",
		RunID:          r.ID.String(),
		Status:         string(r.Status),
		Policy:         string(r.Policy),
		Title:          buildTitle(r, failed),
		TotalItems:     r.TotalItems,
		CompletedItems: r.CompletedItems,
		FailedItems:    len(failed),
		Failures:       make([]webhookFailure, 0, len(failed)),
		OccurredAt:     time.Now().UTC(),
	}
	for _, item := range failed {
		payload.Failures = append(payload.Failures, webhookFailure{
			Index:   item.ItemIndex,
			URL:     item.TargetURL,
			Kind:    string(item.FailureKind),
			Message: truncateMessage(item.FailureMessage),
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("webhook: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("webhook: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if len(n.secret) > 0 {
		req.Header.Set(SignatureHeader, Sign(n.secret, body))
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("webhook: delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("webhook: delivery failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	return "", nil
}
