package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// Ntfy pushes operator alerts to an ntfy-style endpoint. An empty endpoint
// disables it.
type Ntfy struct {
	endpoint string
	client   *http.Client
}

func NewNtfy(endpoint string, client *http.Client) *Ntfy {
	return &Ntfy{endpoint: endpoint, client: client}
}

// SessionExpired alerts operators that the SGP session died mid-operation
// and a re-login is needed. Failures are logged, never propagated.
func (n *Ntfy) SessionExpired(ctx context.Context, baseURL string) {
	if n == nil || n.endpoint == "" {
		return
	}
	msg := fmt.Sprintf("Sessão do SGP expirou em %s. Faça o login novamente.", baseURL)
	if err := Send(ctx, n.client, n.endpoint, msg); err != nil {
		slog.Warn("session expiry notification failed", "error", err)
	}
}

// Send posts a plain-text message to the requested endpoint.
func Send(ctx context.Context, client *http.Client, endpoint, message string) error {
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy notification failed: status=%d", resp.StatusCode)
	}
	return nil
}
