package model

import (
	"strings"
	"time"
)

// Kind is the closed set of content categories a code can carry.
type Kind string

const (
	KindText Kind = "text"
	KindURL  Kind = "url"
	KindWiFi Kind = "wifi"
	KindGeo  Kind = "geo"
)

// Kinds lists every supported kind in a stable order.
var Kinds = []Kind{KindText, KindURL, KindWiFi, KindGeo}

// kindAliases maps legacy Spanish names onto kinds.
var kindAliases = map[string]Kind{
	"texto":           KindText,
	"geolocalizacion": KindGeo,
}

// ParseKind normalizes s and reports whether it names a supported kind.
func ParseKind(s string) (Kind, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if k, ok := kindAliases[norm]; ok {
		return k, true
	}
	k := Kind(norm)
	switch k {
	case KindText, KindURL, KindWiFi, KindGeo:
		return k, true
	}
	return "", false
}

// ECLevel is a QR error-correction level.
type ECLevel string

const (
	ECLow      ECLevel = "L"
	ECMedium   ECLevel = "M"
	ECQuartile ECLevel = "Q"
	ECHigh     ECLevel = "H"
)

// Lifetime is the fixed offset between CreatedAt and ExpiresAt.
const Lifetime = 24 * time.Hour

type QRCode struct {
	ID              int64     `json:"id"`
	OwnerID         *int64    `json:"owner_id"`
	Kind            Kind      `json:"type"`
	Content         string    `json:"content"`
	PixelSize       int       `json:"size"`
	ErrorCorrection ECLevel   `json:"error_correction"`
	FileRef         string    `json:"file_path"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// Expired reports whether the code is past its advisory expiry at t.
// Nothing in the service denies access to expired codes.
func (c *QRCode) Expired(t time.Time) bool {
	return !t.Before(c.ExpiresAt)
}

type ScanEvent struct {
	ID         int64     `json:"id"`
	CodeID     int64     `json:"qr_id"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	OccurredAt time.Time `json:"occurred_at"`
}
