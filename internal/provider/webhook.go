package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ricirt/pulse/internal/domain"
)

// WebhookForwarder POSTs every result to a configured URL as a
// request-result event, the same envelope live clients receive.
// Any 2xx response counts as delivered; there is no retry.
type WebhookForwarder struct {
	url        string
	httpClient *http.Client
}

func NewWebhookForwarder(url string, timeout time.Duration) *WebhookForwarder {
	return &WebhookForwarder{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (f *WebhookForwarder) Send(ctx context.Context, res domain.Result) error {
	body, err := json.Marshal(domain.NewResultEvent(res))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected webhook status: %d", resp.StatusCode)
	}
	return nil
}

// compile-time check that WebhookForwarder implements Forwarder
var _ Forwarder = (*WebhookForwarder)(nil)
