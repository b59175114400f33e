package response

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dukerupert/qrapi/internal/model"
)

func sampleCode() *model.QRCode {
	created := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)
	return &model.QRCode{
		ID:              42,
		Kind:            model.KindGeo,
		Content:         "geo:40.4168,-3.7038",
		PixelSize:       300,
		ErrorCorrection: model.ECHigh,
		FileRef:         "qr_abc.png",
		CreatedAt:       created,
		ExpiresAt:       created.Add(model.Lifetime),
	}
}

func TestLocators(t *testing.T) {
	a := NewAssembler("https://qr.example.com/")

	if got, want := a.ImageURL("qr_abc.png"), "https://qr.example.com/images/qr_abc.png"; got != want {
		t.Errorf("ImageURL = %q, want %q", got, want)
	}
	if got, want := a.ImageURL("../../etc/qr_abc.png"), "https://qr.example.com/images/qr_abc.png"; got != want {
		t.Errorf("ImageURL with directories = %q, want %q", got, want)
	}
	if got, want := a.DownloadURL(42), "https://qr.example.com/api/qr/42/download"; got != want {
		t.Errorf("DownloadURL = %q, want %q", got, want)
	}
}

func TestRecordAndDetail(t *testing.T) {
	a := NewAssembler("http://localhost:8080")
	d := a.Detail(sampleCode(), 3)

	if d.TotalScans != 3 {
		t.Errorf("total_scans = %d, want 3", d.TotalScans)
	}
	if d.ExpiresAt != "2026-05-05T10:30:00Z" {
		t.Errorf("expires_at = %q", d.ExpiresAt)
	}
	if d.CreatedAt != "2026-05-04T10:30:00Z" {
		t.Errorf("created_at = %q", d.CreatedAt)
	}

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"id", "type", "content", "size", "error_correction", "image_url", "download_url", "expires_at", "total_scans"} {
		if _, ok := m[key]; !ok {
			t.Errorf("detail JSON missing %q", key)
		}
	}
}

func TestCreatedMergesExtras(t *testing.T) {
	a := NewAssembler("http://localhost:8080")
	out := a.Created(sampleCode(), map[string]any{
		"latitude":  40.4168,
		"longitude": -3.7038,
		"id":        "must not override",
	})

	if out["success"] != true {
		t.Error("success should be true")
	}
	if out["id"] != int64(42) {
		t.Errorf("id = %v, extras must not override fixed fields", out["id"])
	}
	if out["latitude"] != 40.4168 || out["longitude"] != -3.7038 {
		t.Errorf("extras missing: %v", out)
	}
	if out["expires_at"] != "2026-05-05T10:30:00Z" {
		t.Errorf("expires_at = %v", out["expires_at"])
	}
}

func TestListEnvelope(t *testing.T) {
	a := NewAssembler("http://localhost:8080")

	empty := a.List(nil)
	if empty.Total != 0 || empty.Records == nil {
		t.Errorf("empty list = %+v, want zero total and non-nil records", empty)
	}

	codes := []model.QRCode{*sampleCode(), *sampleCode()}
	codes[1].ID = 43
	l := a.List(codes)
	if l.Total != 2 {
		t.Errorf("total = %d, want 2", l.Total)
	}
	if l.Records[1].DownloadURL != "http://localhost:8080/api/qr/43/download" {
		t.Errorf("download_url = %q", l.Records[1].DownloadURL)
	}
}

func TestRecordExpiredFlag(t *testing.T) {
	a := NewAssembler("http://localhost:8080")
	c := sampleCode()

	a.now = func() time.Time { return c.CreatedAt.Add(time.Hour) }
	if a.Record(c).Expired {
		t.Error("code should not be expired one hour after creation")
	}

	a.now = func() time.Time { return c.ExpiresAt }
	if !a.Record(c).Expired {
		t.Error("code should be expired at expires_at")
	}
}
