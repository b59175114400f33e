// Package response projects stored codes into the views returned to
// clients. It performs no I/O and no validation.
package response

import (
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/qrapi/internal/model"
	"github.com/dukerupert/qrapi/internal/storage"
)

// ImagePath is the route prefix under which stored images are served.
const ImagePath = "/images/"

// Record is the projection of a stored code.
type Record struct {
	ID              int64         `json:"id"`
	OwnerID         *int64        `json:"owner_id"`
	Kind            model.Kind    `json:"type"`
	Content         string        `json:"content"`
	Size            int           `json:"size"`
	ErrorCorrection model.ECLevel `json:"error_correction"`
	FilePath        string        `json:"file_path"`
	CreatedAt       string        `json:"created_at"`
	ExpiresAt       string        `json:"expires_at"`
	Expired         bool          `json:"expired"`
	ImageURL        string        `json:"image_url"`
	DownloadURL     string        `json:"download_url"`
}

// Detail is a Record plus its scan count.
type Detail struct {
	Record
	TotalScans int `json:"total_scans"`
}

// List is the listing envelope.
type List struct {
	Total   int      `json:"total"`
	Records []Record `json:"records"`
}

// Assembler builds absolute locators from a public base URL such as
// "https://qr.example.com".
type Assembler struct {
	baseURL string
	now     func() time.Time
}

func NewAssembler(baseURL string) *Assembler {
	return &Assembler{baseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

// ImageURL is the base location joined with the file reference's base name.
func (a *Assembler) ImageURL(fileRef string) string {
	base, err := storage.BaseName(fileRef)
	if err != nil {
		base = ""
	}
	return a.baseURL + ImagePath + base
}

// DownloadURL is the base location joined with /api/qr/{id}/download.
func (a *Assembler) DownloadURL(id int64) string {
	return a.baseURL + "/api/qr/" + strconv.FormatInt(id, 10) + "/download"
}

func (a *Assembler) Record(c *model.QRCode) Record {
	base, err := storage.BaseName(c.FileRef)
	if err != nil {
		base = c.FileRef
	}
	return Record{
		ID:              c.ID,
		OwnerID:         c.OwnerID,
		Kind:            c.Kind,
		Content:         c.Content,
		Size:            c.PixelSize,
		ErrorCorrection: c.ErrorCorrection,
		FilePath:        base,
		CreatedAt:       formatTime(c.CreatedAt),
		ExpiresAt:       formatTime(c.ExpiresAt),
		Expired:         c.Expired(a.now()),
		ImageURL:        a.ImageURL(c.FileRef),
		DownloadURL:     a.DownloadURL(c.ID),
	}
}

func (a *Assembler) Detail(c *model.QRCode, totalScans int) Detail {
	return Detail{Record: a.Record(c), TotalScans: totalScans}
}

func (a *Assembler) List(codes []model.QRCode) List {
	records := make([]Record, 0, len(codes))
	for i := range codes {
		records = append(records, a.Record(&codes[i]))
	}
	return List{Total: len(records), Records: records}
}

// Created is the creation response: a fixed set of fields merged with the
// kind-specific extras.
func (a *Assembler) Created(c *model.QRCode, extras map[string]any) map[string]any {
	out := map[string]any{
		"success":          true,
		"id":               c.ID,
		"type":             c.Kind,
		"size":             c.PixelSize,
		"error_correction": c.ErrorCorrection,
		"image_url":        a.ImageURL(c.FileRef),
		"download_url":     a.DownloadURL(c.ID),
		"expires_at":       formatTime(c.ExpiresAt),
	}
	for k, v := range extras {
		if _, taken := out[k]; !taken {
			out[k] = v
		}
	}
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
