// Package browser drives the operator's own browser over CDP: tab
// find-or-create navigation, occurrence form filling, and cookie export for
// the bridge's credentialed CRM calls.
package browser

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/vituali/sgp_bridge/internal/sgp"
)

// Tab describes the tab an operation ended up on.
type Tab struct {
	TargetID string `json:"target_id"`
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Created  bool   `json:"created"`
}

// Navigator connects to a running browser over CDP and enforces the
// one-visible-tab-per-client policy.
type Navigator struct {
	cdpURL      string
	evalTimeout time.Duration

	allocCtx     context.Context
	allocCancel  context.CancelFunc
	browserCtx   context.Context
	browserClose context.CancelFunc
}

func NewNavigator(cdpURL string, evalTimeout time.Duration) *Navigator {
	if evalTimeout <= 0 {
		evalTimeout = 10 * time.Second
	}
	return &Navigator{cdpURL: cdpURL, evalTimeout: evalTimeout}
}

// Connect establishes the browser-level CDP session.
func (n *Navigator) Connect(ctx context.Context) error {
	_ = ctx
	slog.Info("connecting to browser", "cdp_url", n.cdpURL)
	n.allocCtx, n.allocCancel = chromedp.NewRemoteAllocator(context.Background(), n.cdpURL)
	n.browserCtx, n.browserClose = chromedp.NewContext(n.allocCtx)

	if err := chromedp.Run(n.browserCtx); err != nil {
		n.Close()
		return sgp.NewError(sgp.CodeTabUnavailable, "connect to browser failed", err)
	}
	return nil
}

func (n *Navigator) Close() {
	if n.browserClose != nil {
		n.browserClose()
		n.browserClose = nil
	}
	if n.allocCancel != nil {
		n.allocCancel()
		n.allocCancel = nil
	}
}

// OpenOrFocus finds a page tab whose URL starts with urlPrefix and, when
// titleQuery is set, whose title contains it. A match is focused; with
// forceUpdate it is also navigated to url first. No match creates a new tab
// at url.
func (n *Navigator) OpenOrFocus(ctx context.Context, url, urlPrefix, titleQuery string, forceUpdate bool) (Tab, error) {
	match, err := n.findTab(urlPrefix, titleQuery)
	if err != nil {
		return Tab{}, err
	}

	if match != nil {
		if forceUpdate {
			if err := n.navigate(match.TargetID, url); err != nil {
				return Tab{}, err
			}
		}
		if err := n.activate(match.TargetID); err != nil {
			return Tab{}, err
		}
		slog.Info("focused existing tab", "target_id", match.TargetID, "title_query", titleQuery, "navigated", forceUpdate)
		return Tab{TargetID: string(match.TargetID), URL: url, Title: match.Title}, nil
	}

	created, err := n.createTab(url)
	if err != nil {
		return Tab{}, err
	}
	slog.Info("created new tab", "target_id", created, "url", url)
	return Tab{TargetID: string(created), URL: url, Created: true}, nil
}

func (n *Navigator) findTab(urlPrefix, titleQuery string) (*target.Info, error) {
	if n.browserCtx == nil {
		return nil, sgp.NewError(sgp.CodeTabUnavailable, "browser not connected", nil)
	}
	infos, err := chromedp.Targets(n.browserCtx)
	if err != nil {
		return nil, sgp.NewError(sgp.CodeTabUnavailable, "list browser targets failed", err)
	}

	for _, info := range infos {
		if targetMatches(info, urlPrefix, titleQuery) {
			return info, nil
		}
	}
	return nil, nil
}

// targetMatches applies the tab-reuse heuristic: page targets only, URL
// prefix narrowing, then the title-substring check that pins the tab to one
// client.
func targetMatches(info *target.Info, urlPrefix, titleQuery string) bool {
	if info == nil || info.Type != "page" {
		return false
	}
	if urlPrefix != "" && !strings.HasPrefix(info.URL, urlPrefix) {
		return false
	}
	if titleQuery != "" && !strings.Contains(info.Title, titleQuery) {
		return false
	}
	return true
}

func (n *Navigator) navigate(id target.ID, url string) error {
	tabCtx, cancel := n.tabContext(id)
	defer cancel()
	if err := chromedp.Run(tabCtx, chromedp.Navigate(url)); err != nil {
		return sgp.NewError(sgp.CodeTabUnavailable, "tab navigation failed", err)
	}
	return nil
}

func (n *Navigator) activate(id target.ID) error {
	tabCtx, cancel := n.tabContext(id)
	defer cancel()
	err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return target.ActivateTarget(id).Do(cdp.WithExecutor(ctx, chromedp.FromContext(ctx).Browser))
	}))
	if err != nil {
		return sgp.NewError(sgp.CodeTabUnavailable, "tab activation failed", err)
	}
	return nil
}

func (n *Navigator) createTab(url string) (target.ID, error) {
	tabCtx, cancel := chromedp.NewContext(n.browserCtx)
	// The context is deliberately leaked: the tab belongs to the operator
	// once created and must outlive this call.
	_ = cancel

	navCtx, navCancel := context.WithTimeout(tabCtx, n.evalTimeout)
	defer navCancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return "", sgp.NewError(sgp.CodeTabUnavailable, "tab creation failed", err)
	}
	return chromedp.FromContext(tabCtx).Target.TargetID, nil
}

func (n *Navigator) tabContext(id target.ID) (context.Context, context.CancelFunc) {
	tabCtx, tabCancel := chromedp.NewContext(n.browserCtx, chromedp.WithTargetID(id))
	timed, timedCancel := context.WithTimeout(tabCtx, n.evalTimeout)
	return timed, func() {
		timedCancel()
		tabCancel()
	}
}
