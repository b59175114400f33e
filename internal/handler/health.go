package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/dukerupert/qrapi/internal/websocket"
)

type HealthHandler struct {
	db      *sql.DB
	backend string
	hub     *websocket.Hub
}

func NewHealthHandler(db *sql.DB, backend string, hub *websocket.Hub) *HealthHandler {
	return &HealthHandler{db: db, backend: backend, hub: hub}
}

// Health reports liveness plus a database ping.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := map[string]any{
		"status":   "ok",
		"database": "ok",
		"storage":  h.backend,
	}
	if h.hub != nil {
		body["feed_clients"] = h.hub.ClientCount()
	}

	status := http.StatusOK
	if err := h.db.PingContext(ctx); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["database"] = "unreachable"
	}
	writeJSON(w, status, body)
}
