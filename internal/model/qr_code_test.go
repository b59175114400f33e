package model

import (
	"testing"
	"time"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"text", KindText, true},
		{" URL ", KindURL, true},
		{"WiFi", KindWiFi, true},
		{"geo", KindGeo, true},
		{"texto", KindText, true},
		{"Geolocalizacion", KindGeo, true},
		{"vcard", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseKind(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseKind(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestExpired(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &QRCode{CreatedAt: created, ExpiresAt: created.Add(Lifetime)}

	if c.Expired(created.Add(Lifetime - time.Second)) {
		t.Error("expired before expires_at")
	}
	if !c.Expired(created.Add(Lifetime)) {
		t.Error("not expired at expires_at")
	}
}
