package server

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dukerupert/qrapi/internal/handler"
	"github.com/dukerupert/qrapi/internal/middleware"
	"github.com/dukerupert/qrapi/internal/model"
	"github.com/dukerupert/qrapi/internal/qrcode"
	"github.com/dukerupert/qrapi/internal/render"
	"github.com/dukerupert/qrapi/internal/response"
	"github.com/dukerupert/qrapi/internal/storage"
	"github.com/dukerupert/qrapi/internal/store"
	ws "github.com/dukerupert/qrapi/internal/websocket"
)

type Config struct {
	// PublicBaseURL prefixes image and download locators. Empty means
	// derive it from each request.
	PublicBaseURL  string
	MetricsEnabled bool
}

type Server struct {
	db      *sql.DB
	hub     *ws.Hub
	qrH     *handler.QRCodeHandler
	healthH *handler.HealthHandler
	cfg     Config
	logger  *slog.Logger
}

func New(db *sql.DB, images storage.Store, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	codeStore := store.NewQRCodeStore(db)
	gen := render.NewGenerator(images, logger.With("component", "render"))
	svc := qrcode.NewService(codeStore, images, gen, hub, logger.With("component", "qrcode"))

	return &Server{
		db:      db,
		hub:     hub,
		qrH:     handler.NewQRCodeHandler(svc, cfg.PublicBaseURL, logger.With("component", "qr_handler")),
		healthH: handler.NewHealthHandler(db, images.Backend(), hub),
		cfg:     cfg,
		logger:  logger,
	}
}

// Hub returns the live feed hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthH.Health)
	if s.cfg.MetricsEnabled {
		mux.Handle("GET /metrics", promhttp.Handler())
	}
	mux.HandleFunc("GET /ws", ws.HandleFeed(s.hub, s.logger.With("component", "websocket")))

	// QR code API routes
	mux.HandleFunc("POST /api/qr", s.qrH.Create)
	mux.HandleFunc("POST /api/qr/text", s.qrH.CreateKind(model.KindText))
	mux.HandleFunc("POST /api/qr/texto", s.qrH.CreateKind(model.KindText))
	mux.HandleFunc("POST /api/qr/url", s.qrH.CreateKind(model.KindURL))
	mux.HandleFunc("POST /api/qr/wifi", s.qrH.CreateKind(model.KindWiFi))
	mux.HandleFunc("POST /api/qr/geo", s.qrH.CreateKind(model.KindGeo))
	mux.HandleFunc("GET /api/qr", s.qrH.List)
	mux.HandleFunc("GET /api/qr/{id}", s.qrH.Get)
	mux.HandleFunc("GET /api/qr/{id}/download", s.qrH.Download)

	// Image locator target
	mux.HandleFunc("GET "+response.ImagePath+"{file}", s.qrH.Image)

	mux.HandleFunc("/", handler.NotFound)

	var h http.Handler = mux
	h = middleware.CORS(h)
	h = middleware.Recover(s.logger.With("component", "recover"))(h)
	return middleware.RequestLogger(s.logger.With("component", "http"))(h)
}
