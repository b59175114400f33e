package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/qrapi/internal/model"
)

// HandleFeed upgrades the connection and streams feed messages. The
// optional ?type= query parameter restricts the feed to one kind.
func HandleFeed(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var kind model.Kind
		if raw := r.URL.Query().Get("type"); raw != "" {
			k, ok := model.ParseKind(raw)
			if !ok {
				http.Error(w, "unsupported type", http.StatusBadRequest)
				return
			}
			kind = k
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // public read-only feed, any origin
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		NewClient(hub, conn, kind).Run(r.Context())
	}
}
