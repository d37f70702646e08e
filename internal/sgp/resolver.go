package sgp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// searchStrategy is one identifier-based lookup against the autocomplete
// endpoint. Term returns "" when the identifier is absent and the strategy
// should be skipped.
type searchStrategy struct {
	name      string
	tconsulta string
	term      func(ClientIdentifier) string
}

// resolutionOrder is the fixed fallback order: document number, full name,
// phone number. First non-empty result wins.
var resolutionOrder = []searchStrategy{
	{
		name:      "document",
		tconsulta: "cpfcnpj",
		term:      func(id ClientIdentifier) string { return strings.TrimSpace(id.CpfCnpj) },
	},
	{
		name:      "name",
		tconsulta: "nome",
		term: func(id ClientIdentifier) string {
			if name := strings.TrimSpace(id.FullName); name != "" {
				return url.QueryEscape(name)
			}
			return ""
		},
	},
	{
		name:      "phone",
		tconsulta: "telefone",
		term:      func(id ClientIdentifier) string { return NormalizePhone(id.PhoneNumber) },
	},
}

// NormalizePhone strips everything but digits and drops the "55" country
// code when the remainder still holds a full national number.
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	cleaned := digits.String()
	if strings.HasPrefix(cleaned, "55") && len(cleaned) > 11 {
		cleaned = cleaned[2:]
	}
	return cleaned
}

// Resolver finds a client in SGP by trying identifier lookups in order.
type Resolver struct {
	client *http.Client
}

func NewResolver(client *http.Client) *Resolver {
	return &Resolver{client: client}
}

// Resolve returns the first autocomplete hit across the strategy order, or
// nil when every tried identifier misses. Request failures for one strategy
// are swallowed and the next strategy runs; Resolve itself never errors on
// partial failure.
func (r *Resolver) Resolve(ctx context.Context, baseURL string, ids ClientIdentifier) (*ResolvedClient, error) {
	for _, strategy := range resolutionOrder {
		term := strategy.term(ids)
		if term == "" {
			continue
		}
		client, err := r.search(ctx, autocompleteURL(baseURL, strategy.tconsulta, term))
		if err != nil {
			slog.Warn("sgp client search failed", "strategy", strategy.name, "error", err)
			continue
		}
		if client != nil {
			slog.Info("sgp client resolved", "strategy", strategy.name, "client_id", client.ID)
			return client, nil
		}
		slog.Debug("sgp client search empty", "strategy", strategy.name)
	}
	return nil, nil
}

func (r *Resolver) search(ctx context.Context, searchURL string) (*ResolvedClient, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var results []autocompleteHit
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &ResolvedClient{ID: string(results[0].ID), Label: results[0].Label}, nil
}

type autocompleteHit struct {
	ID    flexID `json:"id"`
	Label string `json:"label"`
}

// flexID accepts both numeric and quoted ids; SGP has shipped both.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	*f = flexID(strings.Trim(string(b), `"`))
	return nil
}
