package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/vituali/sgp_bridge/internal/relay"
)

// eventsHandler upgrades the connection and streams relay events as JSON
// text frames until the client goes away.
func eventsHandler(broker *relay.Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			slog.Warn("event feed upgrade failed", "error", err, "remote", r.RemoteAddr)
			return
		}

		id, events := broker.Subscribe()
		slog.Info("event feed client connected", "subscriber_id", id, "remote", r.RemoteAddr)

		go func() {
			defer func() {
				broker.Unsubscribe(id)
				_ = conn.Close()
				slog.Info("event feed client disconnected", "subscriber_id", id)
			}()

			// Drain reads so close frames from the client end the session.
			done := make(chan struct{})
			go func() {
				defer close(done)
				for {
					if _, err := wsutil.ReadClientText(conn); err != nil {
						return
					}
				}
			}()

			for {
				select {
				case evt, ok := <-events:
					if !ok {
						return
					}
					payload, err := json.Marshal(evt)
					if err != nil {
						slog.Warn("event encode failed", "action", evt.Action, "error", err)
						continue
					}
					if err := wsutil.WriteServerText(conn, payload); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()
	}
}
