package store

import (
	"testing"
	"time"

	"github.com/dukerupert/qrapi/internal/database"
	"github.com/dukerupert/qrapi/internal/model"
)

func setupQRCodeTestDB(t *testing.T) *QRCodeStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewQRCodeStore(db)
}

// fixedClock makes each call return a time one second later than the last.
func fixedClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		t := current
		current = current.Add(time.Second)
		return t
	}
}

func TestQRCodeCreateAndGet(t *testing.T) {
	s := setupQRCodeTestDB(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return created }

	owner := int64(7)
	code, err := s.Create(model.KindWiFi, "WIFI:T:WPA2;S:Home;P:secret123;;", 300, model.ECMedium, "qr_a.png", &owner)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if code.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if !code.ExpiresAt.Equal(created.Add(24 * time.Hour)) {
		t.Errorf("expires_at = %v, want %v", code.ExpiresAt, created.Add(24*time.Hour))
	}

	got, err := s.GetByID(code.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected code, got nil")
	}
	if got.Kind != model.KindWiFi {
		t.Errorf("kind = %q, want %q", got.Kind, model.KindWiFi)
	}
	if got.Content != "WIFI:T:WPA2;S:Home;P:secret123;;" {
		t.Errorf("content = %q", got.Content)
	}
	if got.PixelSize != 300 {
		t.Errorf("size = %d, want 300", got.PixelSize)
	}
	if got.ErrorCorrection != model.ECMedium {
		t.Errorf("error_correction = %q, want M", got.ErrorCorrection)
	}
	if got.FileRef != "qr_a.png" {
		t.Errorf("file = %q, want qr_a.png", got.FileRef)
	}
	if got.OwnerID == nil || *got.OwnerID != 7 {
		t.Errorf("owner_id = %v, want 7", got.OwnerID)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, created)
	}
	if !got.ExpiresAt.Equal(created.Add(model.Lifetime)) {
		t.Errorf("expires_at = %v, want %v", got.ExpiresAt, created.Add(model.Lifetime))
	}
	if got.Expired(created) || !got.Expired(created.Add(model.Lifetime)) {
		t.Error("Expired should flip exactly at expires_at")
	}
}

func TestQRCodeWithoutOwner(t *testing.T) {
	s := setupQRCodeTestDB(t)

	code, err := s.Create(model.KindText, "hello", 100, model.ECLow, "qr_b.png", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := s.GetByID(code.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.OwnerID != nil {
		t.Errorf("owner_id = %v, want nil", *got.OwnerID)
	}
}

func TestQRCodeNotFound(t *testing.T) {
	s := setupQRCodeTestDB(t)

	got, err := s.GetByID(999)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("expected nil for non-existent code")
	}
}

func TestQRCodeRejectsInvalidRow(t *testing.T) {
	s := setupQRCodeTestDB(t)

	if _, err := s.Create(model.Kind("vcard"), "x", 300, model.ECMedium, "qr.png", nil); err == nil {
		t.Error("expected check constraint failure for unknown kind")
	}
	if _, err := s.Create(model.KindText, "x", 5000, model.ECMedium, "qr.png", nil); err == nil {
		t.Error("expected check constraint failure for size")
	}
}

func TestQRCodeListOrderingAndFilter(t *testing.T) {
	s := setupQRCodeTestDB(t)
	s.now = fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	kinds := []model.Kind{model.KindText, model.KindURL, model.KindText, model.KindGeo, model.KindText}
	for i, k := range kinds {
		if _, err := s.Create(k, "c", 300, model.ECMedium, "f.png", nil); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	all, err := s.List("", 50)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != len(kinds) {
		t.Fatalf("got %d codes, want %d", len(all), len(kinds))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Errorf("codes not newest first at %d: %v after %v", i, all[i].CreatedAt, all[i-1].CreatedAt)
		}
	}
	if all[0].Kind != model.KindText || all[1].Kind != model.KindGeo {
		t.Errorf("unexpected head of list: %q, %q", all[0].Kind, all[1].Kind)
	}

	texts, err := s.List(model.KindText, 50)
	if err != nil {
		t.Fatalf("list text: %v", err)
	}
	if len(texts) != 3 {
		t.Fatalf("got %d text codes, want 3", len(texts))
	}
	for _, c := range texts {
		if c.Kind != model.KindText {
			t.Errorf("filtered list contains %q", c.Kind)
		}
	}

	wifi, err := s.List(model.KindWiFi, 50)
	if err != nil {
		t.Fatalf("list wifi: %v", err)
	}
	if len(wifi) != 0 {
		t.Errorf("got %d wifi codes, want 0", len(wifi))
	}
}

func TestQRCodeListSameTimestampTiebreak(t *testing.T) {
	s := setupQRCodeTestDB(t)
	same := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return same }

	var ids []int64
	for i := 0; i < 3; i++ {
		c, err := s.Create(model.KindText, "c", 300, model.ECMedium, "f.png", nil)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, c.ID)
	}

	list, err := s.List("", 10)
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range list {
		if want := ids[len(ids)-1-i]; c.ID != want {
			t.Errorf("position %d id = %d, want %d", i, c.ID, want)
		}
	}
}

func TestQRCodeListLimitClamp(t *testing.T) {
	s := setupQRCodeTestDB(t)
	s.now = fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	for i := 0; i < MaxListLimit+5; i++ {
		if _, err := s.Create(model.KindText, "c", 300, model.ECMedium, "f.png", nil); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	tests := []struct {
		limit int
		want  int
	}{
		{99999, MaxListLimit},
		{MaxListLimit, MaxListLimit},
		{5, 5},
		{0, DefaultListLimit},
		{-1, DefaultListLimit},
	}
	for _, tt := range tests {
		list, err := s.List("", tt.limit)
		if err != nil {
			t.Fatalf("list(%d): %v", tt.limit, err)
		}
		if len(list) != tt.want {
			t.Errorf("list(%d) returned %d, want %d", tt.limit, len(list), tt.want)
		}
	}
}

func TestScanCounting(t *testing.T) {
	s := setupQRCodeTestDB(t)

	a, _ := s.Create(model.KindText, "a", 300, model.ECMedium, "a.png", nil)
	b, _ := s.Create(model.KindText, "b", 300, model.ECMedium, "b.png", nil)

	n, err := s.CountScans(a.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("initial count = %d, want 0", n)
	}

	for i := 1; i <= 3; i++ {
		if err := s.RecordScan(a.ID, "203.0.113.9", "test-agent"); err != nil {
			t.Fatalf("record scan: %v", err)
		}
		n, err := s.CountScans(a.ID)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != i {
			t.Errorf("count after %d scans = %d", i, n)
		}
	}

	if n, _ := s.CountScans(b.ID); n != 0 {
		t.Errorf("other code count = %d, want 0", n)
	}

	var ip, ua string
	var occurred time.Time
	err = s.db.QueryRow(`SELECT ip_address, user_agent, scanned_at FROM qr_scans WHERE qr_id = ? LIMIT 1`, a.ID).Scan(&ip, &ua, &occurred)
	if err != nil {
		t.Fatalf("read scan row: %v", err)
	}
	if ip != "203.0.113.9" || ua != "test-agent" {
		t.Errorf("scan row = %q, %q", ip, ua)
	}
	if occurred.IsZero() {
		t.Error("scanned_at should be assigned by the store")
	}
}

func TestClampLimit(t *testing.T) {
	tests := map[int]int{-5: 20, 0: 20, 1: 1, 20: 20, 100: 100, 101: 100, 99999: 100}
	for in, want := range tests {
		if got := ClampLimit(in); got != want {
			t.Errorf("ClampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
