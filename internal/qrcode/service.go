// Package qrcode runs the generation pipeline (validate, encode, render,
// persist) and the lookup, listing and download flows over stored codes.
package qrcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/qrapi/internal/apperr"
	"github.com/dukerupert/qrapi/internal/metrics"
	"github.com/dukerupert/qrapi/internal/model"
	"github.com/dukerupert/qrapi/internal/payload"
	"github.com/dukerupert/qrapi/internal/storage"
	"github.com/dukerupert/qrapi/internal/store"
	"github.com/dukerupert/qrapi/internal/validate"
	"github.com/dukerupert/qrapi/internal/websocket"
)

const (
	DefaultSize            = "300"
	DefaultErrorCorrection = "M"
)

// Request carries the raw client fields for every kind. Fields that do not
// apply to the requested kind are ignored.
type Request struct {
	Kind            string
	Text            string
	URL             string
	Content         string // alias for Text or URL
	SSID            string
	Password        string
	Encryption      string
	Latitude        string
	Longitude       string
	Size            string
	ErrorCorrection string
	OwnerID         *int64
}

// Created is the outcome of a successful generation.
type Created struct {
	Code   *model.QRCode
	Extras map[string]any
}

type imageGenerator interface {
	Generate(ctx context.Context, payload string, pixelSize int, lvl model.ECLevel) (string, error)
}

type Service struct {
	codes  *store.QRCodeStore
	images storage.Store
	gen    imageGenerator
	hub    *websocket.Hub
	logger *slog.Logger
}

// NewService wires the pipeline. hub may be nil.
func NewService(codes *store.QRCodeStore, images storage.Store, gen imageGenerator, hub *websocket.Hub, logger *slog.Logger) *Service {
	return &Service{codes: codes, images: images, gen: gen, hub: hub, logger: logger}
}

func (s *Service) broadcast(msg websocket.Message) {
	if s.hub != nil {
		s.hub.Broadcast(msg)
	}
}

// Create resolves the kind named in req and generates a code for it.
func (s *Service) Create(ctx context.Context, req Request) (*Created, error) {
	kind, ok := model.ParseKind(req.Kind)
	if !ok {
		return nil, apperr.UnsupportedKind("invalid type, options: text, url, wifi, geo")
	}
	return s.CreateKind(ctx, kind, req)
}

// CreateKind generates a code of the given kind. Validation happens before
// any side effect. The image is written before the record is inserted; if
// the insert fails the image is left behind as an orphan.
func (s *Service) CreateKind(ctx context.Context, kind model.Kind, req Request) (_ *Created, err error) {
	start := time.Now()
	defer func() {
		metrics.GenerationsTotal.WithLabelValues(string(kind), generationStatus(err)).Inc()
		if err == nil {
			metrics.GenerationDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
		}
	}()

	content, err := buildContent(kind, req)
	if err != nil {
		return nil, err
	}

	rawSize := req.Size
	if rawSize == "" {
		rawSize = DefaultSize
	}
	size, err := validate.Size(rawSize)
	if err != nil {
		return nil, err
	}

	rawEC := req.ErrorCorrection
	if rawEC == "" {
		rawEC = DefaultErrorCorrection
	}
	ec, err := validate.ErrorCorrection(rawEC)
	if err != nil {
		return nil, err
	}

	text := content.Payload()
	if err := validate.Capacity(text, ec); err != nil {
		return nil, err
	}

	fileRef, err := s.gen.Generate(ctx, text, size, ec)
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return nil, err
		}
		return nil, apperr.Generation(err)
	}

	code, err := s.codes.Create(kind, text, size, ec, fileRef, req.OwnerID)
	if err != nil {
		s.logger.Error("record insert failed after image write", "file", fileRef, "error", err)
		return nil, apperr.Store(err)
	}

	s.logger.Info("qr code generated", "id", code.ID, "kind", string(kind), "size", size, "error_correction", string(ec))
	s.broadcast(websocket.CodeCreated(code))

	return &Created{Code: code, Extras: content.Extras()}, nil
}

func generationStatus(err error) string {
	if err == nil {
		return "ok"
	}
	if e, ok := apperr.As(err); ok {
		return string(e.Class)
	}
	return "error"
}

// buildContent validates the fields for kind and returns the matching
// payload variant.
func buildContent(kind model.Kind, req Request) (payload.Content, error) {
	switch kind {
	case model.KindText:
		v, err := validate.Text(firstNonEmpty(req.Text, req.Content))
		if err != nil {
			return nil, err
		}
		return payload.Text{Value: v}, nil
	case model.KindURL:
		v, err := validate.URL(firstNonEmpty(req.URL, req.Content))
		if err != nil {
			return nil, err
		}
		return payload.URL{Value: v}, nil
	case model.KindWiFi:
		creds, err := validate.WiFi(validate.WiFiInput{
			SSID:       req.SSID,
			Password:   req.Password,
			Encryption: req.Encryption,
		})
		if err != nil {
			return nil, err
		}
		return payload.WiFi{WiFiCredentials: creds}, nil
	case model.KindGeo:
		coords, err := validate.Geo(req.Latitude, req.Longitude)
		if err != nil {
			return nil, err
		}
		return payload.Geo{Coordinates: coords}, nil
	}
	return nil, apperr.UnsupportedKind(fmt.Sprintf("unsupported type %q", kind))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Get returns the code with the given id or a not-found error.
func (s *Service) Get(id int64) (*model.QRCode, error) {
	code, err := s.codes.GetByID(id)
	if err != nil {
		return nil, apperr.Store(err)
	}
	if code == nil {
		return nil, apperr.NotFound("no qr code exists with that id")
	}
	return code, nil
}

// Detail returns the code and its scan count.
func (s *Service) Detail(id int64) (*model.QRCode, int, error) {
	code, err := s.Get(id)
	if err != nil {
		return nil, 0, err
	}
	n, err := s.codes.CountScans(id)
	if err != nil {
		return nil, 0, apperr.Store(err)
	}
	return code, n, nil
}

// List returns the newest codes, optionally filtered by a kind name.
func (s *Service) List(rawKind string, limit int) ([]model.QRCode, error) {
	var kind model.Kind
	if rawKind != "" {
		k, ok := model.ParseKind(rawKind)
		if !ok {
			return nil, apperr.UnsupportedKind("invalid type filter, options: text, url, wifi, geo")
		}
		kind = k
	}
	codes, err := s.codes.List(kind, limit)
	if err != nil {
		return nil, apperr.Store(err)
	}
	return codes, nil
}

// Scanner identifies who downloaded a code.
type Scanner struct {
	IP        string
	UserAgent string
}

// Download opens the image for a code and records a scan event. A failure
// to record the scan is logged and never fails the download. The caller
// must close the returned object's Body.
func (s *Service) Download(ctx context.Context, id int64, who Scanner) (*model.QRCode, *storage.Object, error) {
	code, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}

	obj, err := s.Image(ctx, code.FileRef)
	if err != nil {
		return nil, nil, err
	}

	if err := s.codes.RecordScan(code.ID, who.IP, who.UserAgent); err != nil {
		metrics.ScanFailuresTotal.Inc()
		s.logger.Warn("record scan failed", "id", code.ID, "error", err)
		return code, obj, nil
	}
	metrics.ScansTotal.Inc()

	if s.hub != nil {
		if n, err := s.codes.CountScans(code.ID); err == nil {
			s.broadcast(websocket.CodeScanned(code, n))
		}
	}
	return code, obj, nil
}

// Image opens a stored image by file reference. Only the base name of ref
// is used.
func (s *Service) Image(ctx context.Context, ref string) (*storage.Object, error) {
	obj, err := s.images.Open(ctx, ref)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidName) {
			return nil, apperr.NotFound("the image file does not exist on the server")
		}
		return nil, fmt.Errorf("open image: %w", err)
	}
	return obj, nil
}
