// Package render rasterises payloads into PNG images and writes them to
// image storage under a fresh, collision-resistant name.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log/slog"
	"math"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/dukerupert/qrapi/internal/apperr"
	"github.com/dukerupert/qrapi/internal/model"
	"github.com/dukerupert/qrapi/internal/storage"
)

const (
	// Margin is the quiet zone width in modules.
	Margin = 1
	// nominalModules approximates the module count of a mid-capacity symbol
	// and converts a requested pixel size into pixels per module.
	nominalModules = 37
	minDensity     = 2

	ContentType = "image/png"
)

var levels = map[model.ECLevel]qr.ErrorCorrectionLevel{
	model.ECLow:      qr.L,
	model.ECMedium:   qr.M,
	model.ECQuartile: qr.Q,
	model.ECHigh:     qr.H,
}

// Density returns the pixels per module for a requested image size. The
// resulting image only approximates pixelSize: its true side is
// (modules + 2*Margin) * density.
func Density(pixelSize int) int {
	d := int(math.Round(float64(pixelSize) / nominalModules))
	return max(minDensity, d)
}

// Generator renders codes into a storage.Store.
type Generator struct {
	store  storage.Store
	logger *slog.Logger
}

func NewGenerator(store storage.Store, logger *slog.Logger) *Generator {
	return &Generator{store: store, logger: logger}
}

// Generate renders payload and stores it, returning the file reference
// (a bare file name). Every failure is an apperr generation error; nothing
// is retried.
func (g *Generator) Generate(ctx context.Context, payload string, pixelSize int, lvl model.ECLevel) (string, error) {
	density := Density(pixelSize)
	data, err := Rasterize(payload, lvl, density, Margin)
	if err != nil {
		return "", apperr.Generation(err)
	}

	name := NewFileName()
	if err := g.store.Put(ctx, name, data, ContentType); err != nil {
		return "", apperr.Generation(fmt.Errorf("store image: %w", err))
	}

	if err := g.verify(ctx, name); err != nil {
		return "", apperr.Generation(err)
	}

	g.logger.Debug("qr image rendered",
		"file", name,
		"level", string(lvl),
		"density", density,
		"bytes", len(data),
		"backend", g.store.Backend(),
	)
	return name, nil
}

// verify re-opens the stored image and checks it is readable as a PNG.
func (g *Generator) verify(ctx context.Context, name string) error {
	obj, err := g.store.Open(ctx, name)
	if err != nil {
		return fmt.Errorf("image not readable after write: %w", err)
	}
	defer obj.Body.Close()

	mt, err := mimetype.DetectReader(obj.Body)
	if err != nil {
		return fmt.Errorf("read stored image: %w", err)
	}
	if !mt.Is(ContentType) {
		return fmt.Errorf("stored image has type %s, want %s", mt.String(), ContentType)
	}
	return nil
}

// NewFileName returns a unique file name for a rendered image.
func NewFileName() string {
	return "qr_" + uuid.NewString() + ".png"
}

// Rasterize encodes payload as a QR symbol and returns it as PNG bytes with
// density pixels per module and a white quiet zone of margin modules.
func Rasterize(payload string, lvl model.ECLevel, density, margin int) ([]byte, error) {
	level, ok := levels[lvl]
	if !ok {
		level = qr.M
	}

	code, err := qr.Encode(payload, level, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	modules := code.Bounds().Dx()
	inner := modules * density
	scaled, err := barcode.Scale(code, inner, inner)
	if err != nil {
		return nil, fmt.Errorf("scale qr: %w", err)
	}

	side := inner + 2*margin*density
	canvas := image.NewGray(image.Rect(0, 0, side, side))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	offset := margin * density
	draw.Draw(canvas, image.Rect(offset, offset, offset+inner, offset+inner), scaled, scaled.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
