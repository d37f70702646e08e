package sgp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vituali/sgp_bridge/internal/htmlx"
)

const (
	contractSelectID    = "id_clientecontrato"
	responsibleSelectID = "id_responsavel"
	typeSelectID        = "id_tipo"
)

// sessionInvalidator lets the fetcher drop the session cache when a page
// that should be authenticated comes back with a login form.
type sessionInvalidator interface {
	Invalidate()
}

type formCacheEntry struct {
	params    FormParams
	fetchedAt time.Time
}

// FormFetcher scrapes the occurrence-add page for one client and caches the
// result per identifier. Entries live until an explicit eviction or, when a
// TTL is configured, until they age out.
type FormFetcher struct {
	client   *http.Client
	sessions sessionInvalidator
	ttl      time.Duration
	now      func() time.Time

	mu    sync.Mutex
	cache map[string]formCacheEntry
}

// NewFormFetcher builds a fetcher. ttl <= 0 disables age-based expiry and
// leaves eviction entirely to ClearCache.
func NewFormFetcher(client *http.Client, sessions sessionInvalidator, ttl time.Duration) *FormFetcher {
	return &FormFetcher{
		client:   client,
		sessions: sessions,
		ttl:      ttl,
		now:      time.Now,
		cache:    make(map[string]formCacheEntry),
	}
}

// ClearCache evicts one cached entry. Unknown keys are a no-op.
func (f *FormFetcher) ClearCache(cacheKey string) {
	f.mu.Lock()
	delete(f.cache, cacheKey)
	f.mu.Unlock()
	slog.Info("sgp form cache cleared", "cache_key", cacheKey)
}

// FormParams returns the scraped form data for a resolved client,
// cache-first. A login form in the fetched HTML means the session expired
// mid-operation: the session cache is invalidated and a SESSION_EXPIRED
// error propagates.
func (f *FormFetcher) FormParams(ctx context.Context, baseURL string, client ResolvedClient, cacheKey string) (FormParams, error) {
	if cacheKey == "" {
		return FormParams{}, NewError(CodeValidation, "client identifiers are empty", nil)
	}

	f.mu.Lock()
	entry, ok := f.cache[cacheKey]
	f.mu.Unlock()
	if ok && (f.ttl <= 0 || f.now().Sub(entry.fetchedAt) < f.ttl) {
		slog.Debug("sgp form data cache hit", "cache_key", cacheKey)
		return entry.params, nil
	}

	slog.Info("fetching sgp form data", "cache_key", cacheKey, "client_id", client.ID)
	pageHTML, err := f.fetchText(ctx, OccurrenceAddURL(baseURL, client.ID))
	if err != nil {
		return FormParams{}, NewError(CodeUnreachable, "occurrence page fetch failed", err)
	}

	if strings.Contains(pageHTML, "id_username") && strings.Contains(pageHTML, "id_password") {
		f.sessions.Invalidate()
		return FormParams{}, NewError(CodeSessionExpired, "sua sessão no SGP expirou, faça o login novamente", nil)
	}

	contracts, err := extractOptionList(pageHTML, contractSelectID)
	if err != nil {
		return FormParams{}, NewError(CodeScrapeFailure, "contract select parse failed", err)
	}
	occurrenceTypes, err := extractOptionList(pageHTML, typeSelectID)
	if err != nil {
		return FormParams{}, NewError(CodeScrapeFailure, "occurrence type select parse failed", err)
	}
	responsibleOpts, err := extractOptionList(pageHTML, responsibleSelectID)
	if err != nil {
		return FormParams{}, NewError(CodeScrapeFailure, "responsible select parse failed", err)
	}

	responsibleUsers := make([]ResponsibleUser, 0, len(responsibleOpts))
	for _, opt := range responsibleOpts {
		responsibleUsers = append(responsibleUsers, ResponsibleUser{ID: opt.ID, Username: strings.ToLower(opt.Text)})
	}

	for i := range contracts {
		contracts[i] = f.enrichContract(ctx, baseURL, contracts[i])
	}

	params := FormParams{
		ClientSgpID:      client.ID,
		Contracts:        contracts,
		OccurrenceTypes:  occurrenceTypes,
		ResponsibleUsers: responsibleUsers,
	}

	f.mu.Lock()
	f.cache[cacheKey] = formCacheEntry{params: params, fetchedAt: f.now()}
	f.mu.Unlock()
	return params, nil
}

// enrichContract appends the installation address to the contract text when
// the service/detail lookups can supply one. Failures keep the contract in
// its unenriched form.
func (f *FormFetcher) enrichContract(ctx context.Context, baseURL string, contract Option) Option {
	services, err := f.fetchJSONList(ctx, contractServicesURL(baseURL, contract.ID))
	if err != nil || len(services) == 0 {
		if err != nil {
			slog.Warn("contract service lookup failed", "contract_id", contract.ID, "error", err)
		}
		return contract
	}
	serviceID := jsonString(services[0]["id"])
	if serviceID == "" {
		return contract
	}

	details, err := f.fetchJSONList(ctx, serviceDetailURL(baseURL, serviceID, contract.ID))
	if err != nil || len(details) == 0 {
		if err != nil {
			slog.Warn("service detail lookup failed", "contract_id", contract.ID, "service_id", serviceID, "error", err)
		}
		return contract
	}
	if address := jsonString(details[0]["end_instalacao"]); address != "" {
		contract.Text = fmt.Sprintf("%s - Endereço: %s", contract.Text, address)
	}
	return contract
}

func (f *FormFetcher) fetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (f *FormFetcher) fetchJSONList(ctx context.Context, url string) ([]map[string]any, error) {
	text, err := f.fetchText(ctx, url)
	if err != nil {
		return nil, err
	}
	var list []map[string]any
	if err := json.Unmarshal([]byte(text), &list); err != nil {
		return nil, err
	}
	return list, nil
}

func extractOptionList(pageHTML, elementID string) ([]Option, error) {
	raw, err := htmlx.ExtractOptions(pageHTML, elementID)
	if err != nil {
		return nil, err
	}
	options := make([]Option, 0, len(raw))
	for _, opt := range raw {
		options = append(options, Option{ID: opt.ID, Text: opt.Text})
	}
	return options, nil
}

func jsonString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%v", v), ".0")
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
