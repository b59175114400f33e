package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/qrapi/internal/model"
)

const entityQRCode = "qr_code"

// Message is a live feed notification about a generated code.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ID     int64          `json:"id"`
	Kind   model.Kind     `json:"kind"`
	At     time.Time      `json:"at"`
	Extra  map[string]any `json:"extra,omitempty"`
}

func newMessage(action string, id int64, kind model.Kind, extra map[string]any) Message {
	return Message{
		Type:   entityQRCode + "_" + action,
		Entity: entityQRCode,
		Action: action,
		ID:     id,
		Kind:   kind,
		At:     time.Now().UTC(),
		Extra:  extra,
	}
}

// CodeCreated announces a newly generated code.
func CodeCreated(c *model.QRCode) Message {
	return newMessage("created", c.ID, c.Kind, map[string]any{
		"size":             c.PixelSize,
		"error_correction": string(c.ErrorCorrection),
	})
}

// CodeScanned announces a download of a code's image.
func CodeScanned(c *model.QRCode, totalScans int) Message {
	return newMessage("scanned", c.ID, c.Kind, map[string]any{
		"total_scans": totalScans,
	})
}

// Hub fans feed messages out to connected clients, honouring each client's
// kind filter.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and closes its send channel. It is safe to
// call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast delivers msg to every client whose filter accepts its kind.
// Slow clients drop messages instead of blocking the caller.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for c := range h.clients {
		if !c.accepts(msg.Kind) {
			continue
		}
		select {
		case c.send <- data:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("feed message dropped", "type", msg.Type, "clients", dropped)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
