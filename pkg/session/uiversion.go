package session

import (
	"encoding/json"
	"strings"
	"time"
)

// Layouts accepted for the server's uiVersion marker. Builds stamp
// RFC 3339 UTC timestamps; the rest are ISO 8601 shapes seen in the wild.
var uiVersionLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseUIVersion parses a uiVersion marker as a timestamp
func ParseUIVersion(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range uiVersionLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// uiVersionOf extracts result.uiVersion. ok is false when the result is not
// an object, lacks the field or the field is not a valid timestamp.
func uiVersionOf(result json.RawMessage) (string, bool) {
	var marker struct {
		UIVersion *string `json:"uiVersion"`
	}
	if len(result) == 0 {
		return "", false
	}
	if err := json.Unmarshal(result, &marker); err != nil || marker.UIVersion == nil {
		return "", false
	}
	if _, ok := ParseUIVersion(*marker.UIVersion); !ok {
		return "", false
	}
	return *marker.UIVersion, true
}
