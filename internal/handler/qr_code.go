package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/qrapi/internal/apperr"
	"github.com/dukerupert/qrapi/internal/metrics"
	"github.com/dukerupert/qrapi/internal/middleware"
	"github.com/dukerupert/qrapi/internal/model"
	"github.com/dukerupert/qrapi/internal/qrcode"
	"github.com/dukerupert/qrapi/internal/response"
	"github.com/dukerupert/qrapi/internal/storage"
)

const maxBodyBytes = 1 << 20

type QRCodeHandler struct {
	svc     *qrcode.Service
	baseURL string
	logger  *slog.Logger
}

// NewQRCodeHandler creates the QR code API handler. When baseURL is empty
// locators are built from the request's scheme and Host.
func NewQRCodeHandler(svc *qrcode.Service, baseURL string, logger *slog.Logger) *QRCodeHandler {
	return &QRCodeHandler{svc: svc, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

func (h *QRCodeHandler) assembler(r *http.Request) *response.Assembler {
	if h.baseURL != "" {
		return response.NewAssembler(h.baseURL)
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	host := r.Host
	if host == "" {
		host = "localhost"
	}
	return response.NewAssembler(scheme + "://" + host)
}

// flexString accepts a JSON string, number or boolean and keeps its text.
// Objects and arrays are rejected.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		return nil
	}
	if len(b) == 0 {
		return errors.New("empty value")
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	case '{', '[':
		return errors.New("expected a string, number or boolean")
	}
	*f = flexString(b)
	return nil
}

// createRequest holds every accepted field. The Spanish names are aliases
// kept for clients of the earlier API.
type createRequest struct {
	Type            flexString `json:"type"`
	Tipo            flexString `json:"tipo"`
	Content         flexString `json:"content"`
	Text            flexString `json:"text"`
	Texto           flexString `json:"texto"`
	URL             flexString `json:"url"`
	SSID            flexString `json:"ssid"`
	Password        flexString `json:"password"`
	Encryption      flexString `json:"encryption"`
	Latitude        flexString `json:"latitude"`
	Lat             flexString `json:"lat"`
	Latitud         flexString `json:"latitud"`
	Longitude       flexString `json:"longitude"`
	Lng             flexString `json:"lng"`
	Longitud        flexString `json:"longitud"`
	Size            flexString `json:"size"`
	Tamano          flexString `json:"tamano"`
	ErrorCorrection flexString `json:"error_correction"`
	Correccion      flexString `json:"correccion"`
	OwnerID         flexString `json:"owner_id"`
}

// mergeQuery fills fields the body left empty from the query string.
func (req *createRequest) mergeQuery(r *http.Request) {
	q := r.URL.Query()
	fields := map[string]*flexString{
		"type":             &req.Type,
		"tipo":             &req.Tipo,
		"content":          &req.Content,
		"text":             &req.Text,
		"texto":            &req.Texto,
		"url":              &req.URL,
		"ssid":             &req.SSID,
		"password":         &req.Password,
		"encryption":       &req.Encryption,
		"latitude":         &req.Latitude,
		"lat":              &req.Lat,
		"latitud":          &req.Latitud,
		"longitude":        &req.Longitude,
		"lng":              &req.Lng,
		"longitud":         &req.Longitud,
		"size":             &req.Size,
		"tamano":           &req.Tamano,
		"error_correction": &req.ErrorCorrection,
		"correccion":       &req.Correccion,
		"owner_id":         &req.OwnerID,
	}
	for name, field := range fields {
		if *field == "" && q.Has(name) {
			*field = flexString(q.Get(name))
		}
	}
}

func first(values ...flexString) string {
	for _, v := range values {
		if v != "" {
			return string(v)
		}
	}
	return ""
}

func (req *createRequest) toService() (qrcode.Request, error) {
	out := qrcode.Request{
		Kind:            first(req.Type, req.Tipo),
		Text:            first(req.Text, req.Texto),
		URL:             string(req.URL),
		Content:         string(req.Content),
		SSID:            string(req.SSID),
		Password:        string(req.Password),
		Encryption:      string(req.Encryption),
		Latitude:        first(req.Latitude, req.Lat, req.Latitud),
		Longitude:       first(req.Longitude, req.Lng, req.Longitud),
		Size:            first(req.Size, req.Tamano),
		ErrorCorrection: first(req.ErrorCorrection, req.Correccion),
	}
	if raw := strings.TrimSpace(string(req.OwnerID)); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return qrcode.Request{}, apperr.Validation("owner_id must be an integer")
		}
		out.OwnerID = &id
	}
	return out, nil
}

// decodeCreate reads an optional JSON object body and merges the query
// string under it.
func decodeCreate(w http.ResponseWriter, r *http.Request) (qrcode.Request, error) {
	var req createRequest
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return qrcode.Request{}, apperr.TooLarge(fmt.Sprintf("request body must not exceed %d bytes", tooBig.Limit))
		}
		return qrcode.Request{}, apperr.MalformedBody(err)
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			return qrcode.Request{}, apperr.MalformedBody(err)
		}
	}
	req.mergeQuery(r)
	return req.toService()
}

func (h *QRCodeHandler) respondCreated(w http.ResponseWriter, r *http.Request, out *qrcode.Created) {
	writeJSON(w, http.StatusCreated, h.assembler(r).Created(out.Code, out.Extras))
}

// Create handles POST /api/qr, dispatching on the "type" field.
func (h *QRCodeHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCreate(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.respondCreated(w, r, out)
}

// CreateKind returns a handler for POST /api/qr/<kind>.
func (h *QRCodeHandler) CreateKind(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeCreate(w, r)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		out, err := h.svc.CreateKind(r.Context(), kind, req)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		h.respondCreated(w, r, out)
	}
}

func (h *QRCodeHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rawLimit := q.Get("limit")
	if rawLimit == "" {
		rawLimit = q.Get("limite")
	}
	limit, err := strconv.Atoi(strings.TrimSpace(rawLimit))
	if err != nil {
		limit = 0
	}
	kind := q.Get("type")
	if kind == "" {
		kind = q.Get("tipo")
	}

	codes, err := h.svc.List(kind, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.assembler(r).List(codes))
}

// parseID reads the {id} path value. Anything but a positive integer is a
// missing route, not a bad request.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.NotFound("endpoint not found")
	}
	return id, nil
}

func (h *QRCodeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	code, scans, err := h.svc.Detail(id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.assembler(r).Detail(code, scans))
}

// Download streams the code's image as an attachment and records a scan.
func (h *QRCodeHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	code, obj, err := h.svc.Download(r.Context(), id, qrcode.Scanner{
		IP:        middleware.RealIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer obj.Body.Close()

	w.Header().Set("Content-Disposition", `attachment; filename="qr_`+strconv.FormatInt(code.ID, 10)+`.png"`)
	w.Header().Set("Cache-Control", "no-cache")
	h.stream(w, obj)
}

// Image serves a stored image by file reference.
func (h *QRCodeHandler) Image(w http.ResponseWriter, r *http.Request) {
	obj, err := h.svc.Image(r.Context(), r.PathValue("file"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer obj.Body.Close()

	w.Header().Set("Cache-Control", "public, max-age=86400")
	h.stream(w, obj)
}

func (h *QRCodeHandler) stream(w http.ResponseWriter, obj *storage.Object) {
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "image/png"
	}
	w.Header().Set("Content-Type", contentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	n, err := io.Copy(w, obj.Body)
	metrics.DownloadedBytesTotal.Add(float64(n))
	if err != nil {
		h.logger.Warn("image stream interrupted", "bytes", n, "error", err)
	}
}
