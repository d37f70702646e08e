package sgp

import (
	"context"
	"log/slog"
	"time"
)

const dateLayout = "2006-01-02"

// StatusStore persists one SessionStatus across daemon restarts.
type StatusStore interface {
	LoadSessionStatus() (SessionStatus, bool, error)
	SaveSessionStatus(SessionStatus) error
	ClearSessionStatus() error
}

// StatusProber is the probe surface SessionCache depends on.
type StatusProber interface {
	Probe(ctx context.Context, baseURL string) (SessionStatus, error)
	CheckStatus(ctx context.Context) SessionStatus
}

// SessionCache memoizes the probed login status for the current calendar
// day. A same-day logged-in entry is still re-validated with one probe
// before it is trusted, since the server can expire the session at any time.
type SessionCache struct {
	store  StatusStore
	prober StatusProber
	now    func() time.Time
}

func NewSessionCache(store StatusStore, prober StatusProber) *SessionCache {
	return &SessionCache{store: store, prober: prober, now: time.Now}
}

// Status returns the effective session status, refreshing the persisted
// entry as needed. A logged-out result clears the persisted entry instead of
// overwriting it, so the next call always probes fresh.
func (s *SessionCache) Status(ctx context.Context) SessionStatus {
	today := s.now().Format(dateLayout)

	cached, ok, err := s.store.LoadSessionStatus()
	if err != nil {
		slog.Warn("session cache read failed", "error", err)
	}
	if ok && cached.Date == today && cached.IsLoggedIn {
		revalidated, probeErr := s.prober.Probe(ctx, cached.BaseURL)
		if probeErr == nil && revalidated.IsLoggedIn {
			revalidated.Date = today
			return revalidated
		}
		if probeErr != nil {
			slog.Warn("session cache revalidation failed", "base_url", cached.BaseURL, "error", probeErr)
		} else {
			slog.Info("cached sgp session no longer valid", "base_url", cached.BaseURL)
		}
		if clearErr := s.store.ClearSessionStatus(); clearErr != nil {
			slog.Warn("session cache clear failed", "error", clearErr)
		}
	}

	current := s.prober.CheckStatus(ctx)
	current.Date = today
	if current.IsLoggedIn {
		if saveErr := s.store.SaveSessionStatus(current); saveErr != nil {
			slog.Warn("session cache write failed", "error", saveErr)
		}
	} else if clearErr := s.store.ClearSessionStatus(); clearErr != nil {
		slog.Warn("session cache clear failed", "error", clearErr)
	}
	return current
}

// Invalidate drops the persisted entry. The form fetcher calls this when a
// page that should be authenticated comes back with a login form.
func (s *SessionCache) Invalidate() {
	if err := s.store.ClearSessionStatus(); err != nil {
		slog.Warn("session cache clear failed", "error", err)
	}
}
