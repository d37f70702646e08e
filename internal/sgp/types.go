package sgp

import (
	"fmt"
	"net/url"
	"strings"
)

// SessionStatus is the probed login state against one base URL. Date is the
// calendar day ("2006-01-02") the probe ran; the cache treats any other day
// as stale.
type SessionStatus struct {
	IsLoggedIn bool   `json:"is_logged_in"`
	BaseURL    string `json:"base_url"`
	Date       string `json:"date,omitempty"`
}

// ClientIdentifier carries the identifiers scraped from a chat. Any subset
// may be empty; an all-empty identifier resolves to nothing.
type ClientIdentifier struct {
	CpfCnpj     string `json:"cpf_cnpj,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// CacheKey picks the identifier the form-data cache is keyed by, in the same
// priority order the resolver searches in. Empty when no identifier is set.
func (c ClientIdentifier) CacheKey() string {
	switch {
	case c.CpfCnpj != "":
		return c.CpfCnpj
	case c.FullName != "":
		return c.FullName
	default:
		return c.PhoneNumber
	}
}

// ResolvedClient is one autocomplete hit. Label follows SGP's
// "NAME - extra" convention.
type ResolvedClient struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// DisplayName returns the portion of the label before the first " - ".
func (c ResolvedClient) DisplayName() string {
	name, _, _ := strings.Cut(c.Label, " - ")
	return strings.TrimSpace(name)
}

// TitleQuery is the substring SGP puts in client page titles, used by the
// tab navigator to find an already-open tab for this client.
func (c ResolvedClient) TitleQuery() string {
	return fmt.Sprintf("%s (%s)", c.DisplayName(), c.ID)
}

// Option is one extracted <select> option.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ResponsibleUser is an option from the responsible select, with the
// username lowercased for matching against the panel's attendant name.
type ResponsibleUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// FormParams is everything scraped from the occurrence-add page for one
// client, plus the contract enrichment.
type FormParams struct {
	ClientSgpID      string            `json:"client_sgp_id"`
	Contracts        []Option          `json:"contracts"`
	OccurrenceTypes  []Option          `json:"occurrence_types"`
	ResponsibleUsers []ResponsibleUser `json:"responsible_users"`
}

// OccurrenceSubmission is the hand-off payload for the visual fill flow.
type OccurrenceSubmission struct {
	ID               string            `json:"id,omitempty"`
	ClientSgpID      string            `json:"client_sgp_id"`
	OsText           string            `json:"os_text"`
	SelectedContract string            `json:"selected_contract"`
	OccurrenceType   string            `json:"occurrence_type"`
	OccurrenceStatus string            `json:"occurrence_status"`
	ShouldCreateOS   bool              `json:"should_create_os"`
	Attendant        string            `json:"attendant"`
	ResponsibleUsers []ResponsibleUser `json:"responsible_users"`
}

// URL builders for the SGP endpoints the bridge touches.

func AdminURL(baseURL string) string { return strings.TrimRight(baseURL, "/") + "/admin/" }

func LoginURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/accounts/login/"
}

func ClientContractsURL(baseURL, clientID string) string {
	return fmt.Sprintf("%s/admin/cliente/%s/contratos", strings.TrimRight(baseURL, "/"), clientID)
}

func OccurrenceAddURL(baseURL, clientID string) string {
	return fmt.Sprintf("%s/admin/atendimento/cliente/%s/ocorrencia/add/", strings.TrimRight(baseURL, "/"), clientID)
}

func autocompleteURL(baseURL, tconsulta, term string) string {
	return fmt.Sprintf("%s/public/autocomplete/ClienteAutocomplete?tconsulta=%s&term=%s",
		strings.TrimRight(baseURL, "/"), tconsulta, term)
}

func contractServicesURL(baseURL, contractID string) string {
	return fmt.Sprintf("%s/admin/clientecontrato/servico/list/ajax/?contrato_id=%s",
		strings.TrimRight(baseURL, "/"), url.QueryEscape(contractID))
}

func serviceDetailURL(baseURL, serviceID, contractID string) string {
	return fmt.Sprintf("%s/admin/atendimento/ocorrencia/servico/detalhe/ajax/?servico_id=%s&contrato_id=%s",
		strings.TrimRight(baseURL, "/"), url.QueryEscape(serviceID), url.QueryEscape(contractID))
}
