package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/vituali/sgp_bridge/internal/bridge"
	"github.com/vituali/sgp_bridge/internal/browser"
	"github.com/vituali/sgp_bridge/internal/sgp"
)

type identifierInput struct {
	Body sgp.ClientIdentifier
}

type openResultOutput struct {
	Body bridge.OpenResult
}

func registerSgpHandlers(api huma.API, svc Service) {
	type healthOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			return out, nil
		})

	type sessionStatusOutput struct {
		Body sgp.SessionStatus
	}
	huma.Register(api, huma.Operation{OperationID: "sgp-session-status", Method: http.MethodGet, Path: "/api/v1/sgp/status", Summary: "Effective SGP login status (cached per day)", Tags: []string{"Session"}},
		func(ctx context.Context, input *struct{}) (*sessionStatusOutput, error) {
			out := &sessionStatusOutput{}
			out.Body = svc.SessionStatus(ctx)
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "sgp-open", Method: http.MethodPost, Path: "/api/v1/sgp/open", Summary: "Resolve a client and focus or open their SGP tab", Tags: []string{"Client"}},
		func(ctx context.Context, input *identifierInput) (*openResultOutput, error) {
			result, err := svc.OpenInSgp(ctx, input.Body)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &openResultOutput{}
			out.Body = result
			return out, nil
		})

	type occurrenceInput struct {
		Body struct {
			CpfCnpj     string `json:"cpf_cnpj,omitempty"`
			FullName    string `json:"full_name,omitempty"`
			PhoneNumber string `json:"phone_number,omitempty"`
			OsText      string `json:"os_text" doc:"Occurrence text to pre-fill"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "sgp-create-occurrence", Method: http.MethodPost, Path: "/api/v1/sgp/occurrence", Summary: "Open the occurrence page for a client and pre-fill the OS text", Tags: []string{"Occurrence"}},
		func(ctx context.Context, input *occurrenceInput) (*openResultOutput, error) {
			ids := sgp.ClientIdentifier{CpfCnpj: input.Body.CpfCnpj, FullName: input.Body.FullName, PhoneNumber: input.Body.PhoneNumber}
			result, err := svc.CreateOccurrence(ctx, ids, input.Body.OsText)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &openResultOutput{}
			out.Body = result
			return out, nil
		})

	type formParamsOutput struct {
		Body sgp.FormParams
	}
	huma.Register(api, huma.Operation{OperationID: "sgp-form-params", Method: http.MethodPost, Path: "/api/v1/sgp/form-params", Summary: "Scrape contract, occurrence-type and responsible options for a client", Tags: []string{"Occurrence"}},
		func(ctx context.Context, input *identifierInput) (*formParamsOutput, error) {
			params, err := svc.GetFormParams(ctx, input.Body)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &formParamsOutput{}
			out.Body = params
			return out, nil
		})

	type visualFillInput struct {
		Body sgp.OccurrenceSubmission
	}
	type tabOutput struct {
		Body browser.Tab
	}
	huma.Register(api, huma.Operation{OperationID: "sgp-create-occurrence-visually", Method: http.MethodPost, Path: "/api/v1/sgp/occurrence/visual", Summary: "Open the occurrence page and fill the whole form from a submission", Tags: []string{"Occurrence"}},
		func(ctx context.Context, input *visualFillInput) (*tabOutput, error) {
			tab, err := svc.CreateOccurrenceVisually(ctx, input.Body)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &tabOutput{}
			out.Body = tab
			return out, nil
		})

	type pendingFillOutput struct {
		Body struct {
			Pending    bool                      `json:"pending"`
			Submission *sgp.OccurrenceSubmission `json:"submission,omitempty"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "sgp-pending-fill", Method: http.MethodPost, Path: "/api/v1/sgp/occurrence/pending", Summary: "Consume the fill payload left by an interrupted operation", Tags: []string{"Occurrence"}},
		func(ctx context.Context, input *struct{}) (*pendingFillOutput, error) {
			sub, err := svc.PendingFill(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &pendingFillOutput{}
			out.Body.Pending = sub != nil
			out.Body.Submission = sub
			return out, nil
		})

	type clearCacheInput struct {
		CacheKey string `path:"cache_key" doc:"Identifier the form-data cache entry is keyed by"`
	}
	type clearCacheOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "sgp-clear-cache", Method: http.MethodDelete, Path: "/api/v1/sgp/cache/{cache_key}", Summary: "Evict one form-data cache entry", Tags: []string{"Cache"}},
		func(ctx context.Context, input *clearCacheInput) (*clearCacheOutput, error) {
			if err := svc.ClearCache(ctx, input.CacheKey); err != nil {
				return nil, mapErr(err)
			}
			out := &clearCacheOutput{}
			out.Body.Status = "cleared"
			return out, nil
		})
}
