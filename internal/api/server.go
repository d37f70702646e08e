package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vituali/sgp_bridge/internal/bridge"
	"github.com/vituali/sgp_bridge/internal/browser"
	"github.com/vituali/sgp_bridge/internal/relay"
	"github.com/vituali/sgp_bridge/internal/sgp"
)

// Service is the coordinator surface the API dispatches to.
type Service interface {
	OpenInSgp(ctx context.Context, ids sgp.ClientIdentifier) (bridge.OpenResult, error)
	CreateOccurrence(ctx context.Context, ids sgp.ClientIdentifier, osText string) (bridge.OpenResult, error)
	GetFormParams(ctx context.Context, ids sgp.ClientIdentifier) (sgp.FormParams, error)
	CreateOccurrenceVisually(ctx context.Context, sub sgp.OccurrenceSubmission) (browser.Tab, error)
	PendingFill(ctx context.Context) (*sgp.OccurrenceSubmission, error)
	ClearCache(ctx context.Context, cacheKey string) error
	SessionStatus(ctx context.Context) sgp.SessionStatus
}

// NewServer builds the HTTP handler: typed huma operations for every bridge
// action plus the websocket event feed.
func NewServer(svc Service, broker *relay.Broker) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("SGP Bridge API", "1.0.0")
	api := humachi.New(router, cfg)

	registerSgpHandlers(api, svc)
	router.Get("/api/v1/events", eventsHandler(broker))

	return router
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *sgp.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case sgp.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case sgp.CodeNotLoggedIn, sgp.CodeSessionExpired:
			return huma.Error401Unauthorized(coded.Message)
		case sgp.CodeClientNotFound:
			return huma.Error404NotFound(coded.Message)
		case sgp.CodeBusy:
			return huma.Error409Conflict(coded.Message)
		case sgp.CodeUnreachable, sgp.CodeTabUnavailable, sgp.CodeScrapeFailure:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
