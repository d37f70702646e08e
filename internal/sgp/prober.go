package sgp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const loginPathMarker = "/accounts/login"

// Prober checks whether the browser's SGP session is authenticated against a
// given base URL. The HTTP client must carry the browser-exported cookie jar;
// the probe itself sends no credentials of its own.
type Prober struct {
	client  *http.Client
	timeout time.Duration

	primaryURL  string
	fallbackURL string
}

func NewProber(client *http.Client, timeout time.Duration, primaryURL, fallbackURL string) *Prober {
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	return &Prober{
		client:      client,
		timeout:     timeout,
		primaryURL:  primaryURL,
		fallbackURL: fallbackURL,
	}
}

func (p *Prober) PrimaryURL() string { return p.primaryURL }

// Probe requests the admin root and inspects the final redirected URL. A
// login-page path means not logged in. Transport failures propagate as
// ENDPOINT_UNREACHABLE so callers can distinguish "logged out" from
// "unreachable".
func (p *Prober) Probe(ctx context.Context, baseURL string) (SessionStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, AdminURL(baseURL), nil)
	if err != nil {
		return SessionStatus{}, NewError(CodeValidation, "bad probe url "+baseURL, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return SessionStatus{}, NewError(CodeUnreachable, "login probe failed for "+baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	finalURL := req.URL.String()
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	status := SessionStatus{
		IsLoggedIn: !strings.Contains(finalURL, loginPathMarker),
		BaseURL:    baseURL,
	}
	slog.Debug("sgp login probe", "base_url", baseURL, "final_url", finalURL, "logged_in", status.IsLoggedIn)
	return status, nil
}

// CheckStatus runs the dual-endpoint fallback: the DNS base first, the raw IP
// base when the first probe errors or reports logged out. When neither
// reports a live session the result degrades to logged-out on the primary
// base rather than surfacing an error.
func (p *Prober) CheckStatus(ctx context.Context) SessionStatus {
	if status, err := p.Probe(ctx, p.primaryURL); err == nil && status.IsLoggedIn {
		return status
	} else if err != nil {
		slog.Warn("sgp primary probe failed, trying fallback", "base_url", p.primaryURL, "error", err)
	}

	if p.fallbackURL != "" {
		if status, err := p.Probe(ctx, p.fallbackURL); err == nil && status.IsLoggedIn {
			return status
		} else if err != nil {
			slog.Warn("sgp fallback probe failed", "base_url", p.fallbackURL, "error", err)
		}
	}

	return SessionStatus{IsLoggedIn: false, BaseURL: p.primaryURL}
}
