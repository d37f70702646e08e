package browser

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/chromedp/cdproto/network"
	cdpstorage "github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"github.com/vituali/sgp_bridge/internal/sgp"
)

// SyncCookies copies the browser's cookies for the given origins into jar.
// The bridge never holds credentials of its own; every credentialed CRM call
// rides on the session the operator already has in the browser.
func (n *Navigator) SyncCookies(ctx context.Context, jar http.CookieJar, origins ...string) error {
	if n.browserCtx == nil {
		return sgp.NewError(sgp.CodeTabUnavailable, "browser not connected", nil)
	}

	var browserCookies []*network.Cookie
	err := chromedp.Run(n.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var runErr error
		browserCookies, runErr = cdpstorage.GetCookies().Do(ctx)
		return runErr
	}))
	if err != nil {
		return sgp.NewError(sgp.CodeTabUnavailable, "browser cookie export failed", err)
	}

	for _, origin := range origins {
		originURL, parseErr := url.Parse(origin)
		if parseErr != nil || originURL.Host == "" {
			slog.Warn("skipping cookie sync for bad origin", "origin", origin)
			continue
		}
		matched := make([]*http.Cookie, 0, len(browserCookies))
		for _, c := range browserCookies {
			if !domainMatches(originURL.Hostname(), c.Domain) {
				continue
			}
			matched = append(matched, &http.Cookie{
				Name:   c.Name,
				Value:  c.Value,
				Path:   c.Path,
				Secure: c.Secure,
			})
		}
		jar.SetCookies(originURL, matched)
		slog.Debug("cookies synced", "origin", origin, "count", len(matched))
	}
	return nil
}

func domainMatches(host, cookieDomain string) bool {
	domain := strings.TrimPrefix(cookieDomain, ".")
	return host == domain || strings.HasSuffix(host, "."+domain)
}
