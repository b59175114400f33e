// Package payload turns validated request fields into the exact text that
// is embedded in a QR symbol and persisted as the record's content.
package payload

import (
	"strconv"
	"strings"

	"github.com/dukerupert/qrapi/internal/model"
	"github.com/dukerupert/qrapi/internal/validate"
)

// Content is one of Text, URL, WiFi or Geo. The set is closed: only this
// package can add variants.
type Content interface {
	Kind() model.Kind
	Payload() string
	// Extras are the kind-specific fields echoed back on creation.
	Extras() map[string]any
	sealed()
}

type Text struct{ Value string }

func (Text) Kind() model.Kind       { return model.KindText }
func (t Text) Payload() string      { return t.Value }
func (Text) Extras() map[string]any { return nil }
func (Text) sealed()                {}

type URL struct{ Value string }

func (URL) Kind() model.Kind       { return model.KindURL }
func (u URL) Payload() string      { return u.Value }
func (URL) Extras() map[string]any { return nil }
func (URL) sealed()                {}

type WiFi struct {
	validate.WiFiCredentials
}

func (WiFi) Kind() model.Kind { return model.KindWiFi }

// Payload renders the Wi-Fi provisioning string
// WIFI:T:<enc>;S:<ssid>;P:<password>;; where open networks use "nopass".
func (w WiFi) Payload() string {
	enc := string(w.Encryption)
	if w.Encryption == validate.EncNoPass {
		enc = "nopass"
	}
	var b strings.Builder
	b.WriteString("WIFI:T:")
	b.WriteString(enc)
	b.WriteString(";S:")
	b.WriteString(escapeWiFi(w.SSID))
	b.WriteString(";P:")
	b.WriteString(escapeWiFi(w.Password))
	b.WriteString(";;")
	return b.String()
}

func (w WiFi) Extras() map[string]any {
	return map[string]any{
		"ssid":       w.SSID,
		"encryption": string(w.Encryption),
	}
}

func (WiFi) sealed() {}

var wifiEscaper = strings.NewReplacer(
	`\`, `\\`,
	`;`, `\;`,
	`,`, `\,`,
	`:`, `\:`,
	`"`, `\"`,
)

// escapeWiFi backslash-escapes the characters the provisioning format
// reserves as delimiters.
func escapeWiFi(s string) string {
	return wifiEscaper.Replace(s)
}

type Geo struct {
	validate.Coordinates
}

func (Geo) Kind() model.Kind { return model.KindGeo }

// Payload renders a geo URI using the shortest decimal form of each float.
func (g Geo) Payload() string {
	return "geo:" + formatFloat(g.Latitude) + "," + formatFloat(g.Longitude)
}

func (g Geo) Extras() map[string]any {
	return map[string]any{
		"latitude":  g.Latitude,
		"longitude": g.Longitude,
	}
}

func (Geo) sealed() {}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
