// Package validate checks and normalizes client input before any file or
// record is touched. Every failure is an *apperr.Error.
package validate

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/dukerupert/qrapi/internal/apperr"
	"github.com/dukerupert/qrapi/internal/model"
)

const (
	MinSize = 100
	MaxSize = 1000

	// MaxContentBytes is the byte-mode capacity of a version 40 symbol at
	// level L, the roomiest configuration offered.
	MaxContentBytes = 2953

	MaxSSIDBytes     = 32
	MaxPasswordBytes = 63
)

// capacity is the byte-mode capacity of a version 40 symbol per level.
var capacity = map[model.ECLevel]int{
	model.ECLow:      2953,
	model.ECMedium:   2331,
	model.ECQuartile: 1663,
	model.ECHigh:     1273,
}

// Size coerces v to an integer pixel size within [MinSize, MaxSize].
// Fractional values are truncated.
func Size(v string) (int, error) {
	v = strings.TrimSpace(v)
	n, err := strconv.Atoi(v)
	if err != nil {
		f, ferr := parseNumber(v)
		if ferr != nil {
			return 0, sizeError()
		}
		f = math.Trunc(f)
		if f < MinSize || f > MaxSize {
			return 0, sizeError()
		}
		n = int(f)
	}
	if n < MinSize || n > MaxSize {
		return 0, sizeError()
	}
	return n, nil
}

func sizeError() error {
	return apperr.Validation(fmt.Sprintf("size must be between %d and %d pixels", MinSize, MaxSize))
}

// ErrorCorrection normalizes v to one of L, M, Q, H.
func ErrorCorrection(v string) (model.ECLevel, error) {
	lvl := model.ECLevel(strings.ToUpper(strings.TrimSpace(v)))
	if _, ok := capacity[lvl]; !ok {
		return "", apperr.Validation("invalid error correction level, allowed values: L, M, Q, H")
	}
	return lvl, nil
}

// Text trims v and checks it is non-empty and fits the symbol.
func Text(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", apperr.Validation("field 'text' must not be empty")
	}
	if len(v) > MaxContentBytes {
		return "", apperr.TooLarge(fmt.Sprintf("content exceeds the maximum qr capacity (%d characters)", MaxContentBytes))
	}
	return v, nil
}

// URL trims v and checks it is an absolute URL with scheme and host.
func URL(v string) (string, error) {
	v = strings.TrimSpace(v)
	if !wellFormedURL(v) {
		return "", apperr.Validation("invalid url, include the scheme: http:// or https://")
	}
	if len(v) > MaxContentBytes {
		return "", apperr.TooLarge("url exceeds the maximum qr capacity")
	}
	return v, nil
}

func wellFormedURL(v string) bool {
	if v == "" || strings.ContainsAny(v, " \t\r\n") {
		return false
	}
	u, err := url.Parse(v)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

// Encryption is a Wi-Fi authentication type.
type Encryption string

const (
	EncWPA    Encryption = "WPA"
	EncWPA2   Encryption = "WPA2"
	EncWEP    Encryption = "WEP"
	EncNoPass Encryption = "NOPASS"
)

// WiFiInput holds the raw Wi-Fi fields from the request.
type WiFiInput struct {
	SSID       string
	Password   string
	Encryption string
}

// WiFiCredentials is the normalized form of WiFiInput.
type WiFiCredentials struct {
	SSID       string
	Password   string
	Encryption Encryption
}

// WiFi validates network credentials. Encryption defaults to WPA2; a
// password is required unless the network is open.
func WiFi(in WiFiInput) (WiFiCredentials, error) {
	ssid := strings.TrimSpace(in.SSID)
	if ssid == "" {
		return WiFiCredentials{}, apperr.Validation("field 'ssid' is required for wifi codes")
	}
	if len(ssid) > MaxSSIDBytes {
		return WiFiCredentials{}, apperr.Validation(fmt.Sprintf("ssid must not exceed %d characters", MaxSSIDBytes))
	}

	enc := Encryption(strings.ToUpper(strings.TrimSpace(in.Encryption)))
	if enc == "" {
		enc = EncWPA2
	}
	switch enc {
	case EncWPA, EncWPA2, EncWEP, EncNoPass:
	default:
		return WiFiCredentials{}, apperr.Validation("invalid encryption type, allowed values: WPA, WPA2, WEP, nopass")
	}

	password := strings.TrimSpace(in.Password)
	if enc != EncNoPass && password == "" {
		return WiFiCredentials{}, apperr.Validation(fmt.Sprintf("a password is required for encryption type '%s'", enc))
	}
	if len(password) > MaxPasswordBytes {
		return WiFiCredentials{}, apperr.Validation(fmt.Sprintf("wifi password must not exceed %d characters", MaxPasswordBytes))
	}

	return WiFiCredentials{SSID: ssid, Password: password, Encryption: enc}, nil
}

// Coordinates is a validated latitude/longitude pair.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Geo parses and range-checks a latitude/longitude pair.
func Geo(lat, lng string) (Coordinates, error) {
	la, err := parseNumber(lat)
	if err != nil || la < -90 || la > 90 {
		return Coordinates{}, apperr.Validation("invalid latitude, must be a number between -90 and 90")
	}
	lo, err := parseNumber(lng)
	if err != nil || lo < -180 || lo > 180 {
		return Coordinates{}, apperr.Validation("invalid longitude, must be a number between -180 and 180")
	}
	return Coordinates{Latitude: la, Longitude: lo}, nil
}

// Capacity rejects a payload that cannot fit a symbol at the given level.
func Capacity(payload string, lvl model.ECLevel) error {
	max, ok := capacity[lvl]
	if !ok {
		max = capacity[model.ECMedium]
	}
	if len(payload) > max {
		return apperr.TooLarge(fmt.Sprintf("content exceeds the maximum qr capacity for error correction %s (%d bytes)", lvl, max))
	}
	return nil
}

// parseNumber accepts plain decimal notation only: no hex floats, NaN or Inf.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "xXpP_") {
		return 0, strconv.ErrSyntax
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrSyntax
	}
	return f, nil
}
