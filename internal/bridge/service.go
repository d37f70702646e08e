// Package bridge coordinates the SGP pipelines: session check, client
// resolution, form-data scraping and tab navigation, with one operation in
// flight at a time.
package bridge

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/vituali/sgp_bridge/internal/browser"
	"github.com/vituali/sgp_bridge/internal/relay"
	"github.com/vituali/sgp_bridge/internal/sgp"
)

// SessionSource reports the effective login status, cached per day.
type SessionSource interface {
	Status(ctx context.Context) sgp.SessionStatus
	Invalidate()
}

// ClientResolver finds a client by the ordered identifier fallback.
type ClientResolver interface {
	Resolve(ctx context.Context, baseURL string, ids sgp.ClientIdentifier) (*sgp.ResolvedClient, error)
}

// FormSource scrapes and caches the occurrence form data.
type FormSource interface {
	FormParams(ctx context.Context, baseURL string, client sgp.ResolvedClient, cacheKey string) (sgp.FormParams, error)
	ClearCache(cacheKey string)
}

// TabNavigator is the browser surface the pipelines need.
type TabNavigator interface {
	OpenOrFocus(ctx context.Context, url, urlPrefix, titleQuery string, forceUpdate bool) (browser.Tab, error)
	FillOccurrenceText(ctx context.Context, targetID, osText string) error
	FillOccurrenceForm(ctx context.Context, targetID string, sub sgp.OccurrenceSubmission, attendantID string) error
	SyncCookies(ctx context.Context, jar http.CookieJar, origins ...string) error
}

// FillStore persists the fill hand-off payload across the navigation that
// separates accepting a request from writing into the page.
type FillStore interface {
	SavePendingFill(sub sgp.OccurrenceSubmission) error
	TakePendingFill() (sgp.OccurrenceSubmission, bool, error)
	DropPendingFill() error
}

// Notifier pushes out-of-band operator alerts. May be nil-equivalent (no-op).
type Notifier interface {
	SessionExpired(ctx context.Context, baseURL string)
}

// OpenResult reports where an open/search operation landed.
type OpenResult struct {
	LoggedIn bool                `json:"logged_in"`
	Client   *sgp.ResolvedClient `json:"client,omitempty"`
	Tab      browser.Tab         `json:"tab"`
}

// Service is the request router: one instance owns the busy flag, the cookie
// jar and the event publication.
type Service struct {
	sessions SessionSource
	resolver ClientResolver
	forms    FormSource
	nav      TabNavigator
	fills    FillStore
	broker   *relay.Broker
	notifier Notifier
	jar      http.CookieJar
	origins  []string

	busy atomic.Bool
}

func NewService(sessions SessionSource, resolver ClientResolver, forms FormSource, nav TabNavigator, fills FillStore, broker *relay.Broker, notifier Notifier, jar http.CookieJar, origins []string) *Service {
	return &Service{
		sessions: sessions,
		resolver: resolver,
		forms:    forms,
		nav:      nav,
		fills:    fills,
		broker:   broker,
		notifier: notifier,
		jar:      jar,
		origins:  origins,
	}
}

// tryAcquire claims the single-in-flight slot. Concurrent callers get a BUSY
// error instead of the silent drop the old extension had.
func (s *Service) tryAcquire() error {
	if !s.busy.CompareAndSwap(false, true) {
		return sgp.NewError(sgp.CodeBusy, "another sgp operation is already running", nil)
	}
	return nil
}

func (s *Service) release() { s.busy.Store(false) }

func (s *Service) syncCookies(ctx context.Context) {
	if err := s.nav.SyncCookies(ctx, s.jar, s.origins...); err != nil {
		slog.Warn("browser cookie sync failed", "error", err)
	}
}

// OpenInSgp resolves the client and focuses (or creates) the right CRM tab:
// the login page when logged out, the client's contracts page when resolved,
// the general admin page otherwise. A sgpSearchComplete event is published
// either way; success stays false on errors and on the login detour.
func (s *Service) OpenInSgp(ctx context.Context, ids sgp.ClientIdentifier) (OpenResult, error) {
	if err := s.tryAcquire(); err != nil {
		return OpenResult{}, err
	}
	defer s.release()

	success := false
	var clientID string
	defer func() {
		s.broker.Publish(relay.Event{Action: relay.ActionSearchComplete, Success: success, ClientID: clientID})
	}()

	s.syncCookies(ctx)
	status := s.sessions.Status(ctx)
	if !status.IsLoggedIn {
		loginURL := sgp.LoginURL(status.BaseURL)
		tab, err := s.nav.OpenOrFocus(ctx, loginURL, loginURL, "", false)
		if err != nil {
			return OpenResult{}, err
		}
		return OpenResult{LoggedIn: false, Tab: tab}, nil
	}

	client, err := s.resolver.Resolve(ctx, status.BaseURL, ids)
	if err != nil {
		return OpenResult{}, err
	}

	if client == nil {
		tab, navErr := s.nav.OpenOrFocus(ctx, sgp.AdminURL(status.BaseURL), sgp.AdminURL(status.BaseURL), "", false)
		if navErr != nil {
			return OpenResult{}, navErr
		}
		success = true
		return OpenResult{LoggedIn: true, Tab: tab}, nil
	}

	clientID = client.ID
	tab, err := s.nav.OpenOrFocus(ctx, sgp.ClientContractsURL(status.BaseURL, client.ID), sgp.AdminURL(status.BaseURL), client.TitleQuery(), false)
	if err != nil {
		return OpenResult{}, err
	}
	success = true
	return OpenResult{LoggedIn: true, Client: client, Tab: tab}, nil
}

// CreateOccurrence resolves the client, opens (or retargets) the occurrence
// tab and writes the OS text into the content field. The operator finishes
// the rest of the form by hand.
func (s *Service) CreateOccurrence(ctx context.Context, ids sgp.ClientIdentifier, osText string) (OpenResult, error) {
	if err := s.tryAcquire(); err != nil {
		return OpenResult{}, err
	}
	defer s.release()

	s.syncCookies(ctx)
	status := s.sessions.Status(ctx)
	if !status.IsLoggedIn {
		return OpenResult{}, sgp.NewError(sgp.CodeNotLoggedIn, "você não está logado no SGP", nil)
	}

	client, err := s.resolver.Resolve(ctx, status.BaseURL, ids)
	if err != nil {
		return OpenResult{}, err
	}
	if client == nil {
		return OpenResult{}, sgp.NewError(sgp.CodeClientNotFound, "cliente não encontrado no SGP", nil)
	}

	// The OS text survives a crash or a tab that never comes up; the panel
	// can retry it from the persisted payload.
	if err := s.fills.SavePendingFill(sgp.OccurrenceSubmission{ClientSgpID: client.ID, OsText: osText}); err != nil {
		slog.Warn("pending fill persist failed", "error", err)
	}

	tab, err := s.nav.OpenOrFocus(ctx, sgp.OccurrenceAddURL(status.BaseURL, client.ID), sgp.AdminURL(status.BaseURL), client.TitleQuery(), true)
	if err != nil {
		return OpenResult{}, err
	}

	fillErr := s.nav.FillOccurrenceText(ctx, tab.TargetID, osText)
	s.broker.Publish(relay.Event{Action: relay.ActionFormFilled, Success: fillErr == nil, ClientID: client.ID})
	if fillErr != nil {
		return OpenResult{}, fillErr
	}
	if err := s.fills.DropPendingFill(); err != nil {
		slog.Warn("pending fill cleanup failed", "error", err)
	}
	return OpenResult{LoggedIn: true, Client: client, Tab: tab}, nil
}

// GetFormParams runs the full pipeline up to the form-data fetch and returns
// the scraped params for modal rendering.
func (s *Service) GetFormParams(ctx context.Context, ids sgp.ClientIdentifier) (sgp.FormParams, error) {
	cacheKey := ids.CacheKey()
	if cacheKey == "" {
		return sgp.FormParams{}, sgp.NewError(sgp.CodeValidation, "dados do cliente insuficientes para busca", nil)
	}

	s.syncCookies(ctx)
	status := s.sessions.Status(ctx)
	if !status.IsLoggedIn {
		return sgp.FormParams{}, sgp.NewError(sgp.CodeNotLoggedIn, "você não está logado no SGP", nil)
	}

	client, err := s.resolver.Resolve(ctx, status.BaseURL, ids)
	if err != nil {
		return sgp.FormParams{}, err
	}
	if client == nil {
		return sgp.FormParams{}, sgp.NewError(sgp.CodeClientNotFound, "cliente não encontrado no SGP", nil)
	}

	params, err := s.forms.FormParams(ctx, status.BaseURL, *client, cacheKey)
	if err != nil {
		s.maybeNotifyExpired(ctx, status.BaseURL, err)
		return sgp.FormParams{}, err
	}
	return params, nil
}

// CreateOccurrenceVisually opens the occurrence page and fills the whole
// form from a prepared submission. The payload is persisted before
// navigation and dropped only after a successful fill, so an interrupted
// fill can be retried from the panel.
func (s *Service) CreateOccurrenceVisually(ctx context.Context, sub sgp.OccurrenceSubmission) (browser.Tab, error) {
	if strings.TrimSpace(sub.ClientSgpID) == "" {
		return browser.Tab{}, sgp.NewError(sgp.CodeValidation, "client sgp id is required", nil)
	}

	attendantID := matchResponsible(sub.ResponsibleUsers, sub.Attendant)
	if attendantID == "" {
		return browser.Tab{}, sgp.NewError(sgp.CodeValidation, "atendente '"+sub.Attendant+"' não está na lista de responsáveis do SGP", nil)
	}

	s.syncCookies(ctx)
	status := s.sessions.Status(ctx)
	if !status.IsLoggedIn {
		return browser.Tab{}, sgp.NewError(sgp.CodeNotLoggedIn, "você não está logado no SGP", nil)
	}

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if err := s.fills.SavePendingFill(sub); err != nil {
		slog.Warn("pending fill persist failed", "error", err)
	}

	tab, err := s.nav.OpenOrFocus(ctx, sgp.OccurrenceAddURL(status.BaseURL, sub.ClientSgpID), sgp.AdminURL(status.BaseURL), "("+sub.ClientSgpID+")", true)
	if err != nil {
		return browser.Tab{}, err
	}

	fillErr := s.nav.FillOccurrenceForm(ctx, tab.TargetID, sub, attendantID)
	s.broker.Publish(relay.Event{Action: relay.ActionFormFilled, Success: fillErr == nil, ClientID: sub.ClientSgpID})
	if fillErr != nil {
		return browser.Tab{}, fillErr
	}

	if err := s.fills.DropPendingFill(); err != nil {
		slog.Warn("pending fill cleanup failed", "error", err)
	}
	return tab, nil
}

// PendingFill returns and consumes the hand-off payload a crashed or
// interrupted fill left behind, so the panel can offer a retry. Nil when
// nothing is pending.
func (s *Service) PendingFill(ctx context.Context) (*sgp.OccurrenceSubmission, error) {
	_ = ctx
	sub, ok, err := s.fills.TakePendingFill()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

// ClearCache evicts one form-data cache entry.
func (s *Service) ClearCache(ctx context.Context, cacheKey string) error {
	if strings.TrimSpace(cacheKey) == "" {
		return sgp.NewError(sgp.CodeValidation, "cache key is required", nil)
	}
	_ = ctx
	s.forms.ClearCache(cacheKey)
	return nil
}

// SessionStatus exposes the effective (cached) login status.
func (s *Service) SessionStatus(ctx context.Context) sgp.SessionStatus {
	s.syncCookies(ctx)
	return s.sessions.Status(ctx)
}

func (s *Service) maybeNotifyExpired(ctx context.Context, baseURL string, err error) {
	var coded *sgp.CodedError
	if s.notifier != nil && errors.As(err, &coded) && coded.Code == sgp.CodeSessionExpired {
		s.notifier.SessionExpired(ctx, baseURL)
	}
}

func matchResponsible(users []sgp.ResponsibleUser, attendant string) string {
	needle := strings.ToLower(strings.TrimSpace(attendant))
	if needle == "" {
		return ""
	}
	for _, user := range users {
		if user.Username == needle {
			return user.ID
		}
	}
	return ""
}
