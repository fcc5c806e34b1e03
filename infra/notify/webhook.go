package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	corenotify "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/notify"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/infra/auth"
)

// WebhookConfig configures delivery to an operator HTTP endpoint.
type WebhookConfig struct {
	URL       string                 `json:"url"`
	TimeoutMS int                    `json:"timeout_ms"`
	OAuth     *auth.ClientCredConfig `json:"oauth"`
}

// WebhookNotifier POSTs each message as JSON.
type WebhookNotifier struct {
	url    string
	client *http.Client
	cred   *auth.ClientCred
}

func NewWebhookNotifier(cfg WebhookConfig) (*WebhookNotifier, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	n := &WebhookNotifier{url: cfg.URL, client: &http.Client{Timeout: timeout}}
	if cfg.OAuth != nil && cfg.OAuth.TokenURL != "" {
		n.cred = auth.NewClientCred(*cfg.OAuth)
	}
	return n, nil
}

// Notify posts m. A 401 response invalidates the cached token and retries once.
func (n *WebhookNotifier) Notify(ctx context.Context, m corenotify.Message) error {
	body, err := json.Marshal(m)
	if err != nil {
		return err
	}
	status, err := n.post(ctx, body)
	if err == nil && status == http.StatusUnauthorized && n.cred != nil {
		n.cred.Invalidate()
		status, err = n.post(ctx, body)
	}
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("webhook %s: status %d", m.Kind, status)
	}
	return nil
}

func (n *WebhookNotifier) post(ctx context.Context, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.cred != nil {
		if err := n.cred.SetAuthHeader(ctx, req); err != nil {
			return 0, err
		}
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
