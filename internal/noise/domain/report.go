package domain

import (
	"strings"
	"time"
)

// NoiseReport is a single geolocated decibel measurement.
// Reports are immutable after creation; only the reporter may delete one.
type NoiseReport struct {
	ID           string
	ReporterID   string
	City         string
	Latitude     float64
	Longitude    float64
	DecibelLevel Decibel
	Category     NoiseCategory
	Source       string
	Description  string
	Timestamp    time.Time
	CreatedAt    time.Time
}

// Anonymous reports have no reporter.
func (r NoiseReport) Anonymous() bool {
	return r.ReporterID == ""
}

// OwnedBy reports whether userID submitted the report.
func (r NoiseReport) OwnedBy(userID string) bool {
	return !r.Anonymous() && r.ReporterID == userID
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts ISO-8601 event times. The offset is kept when
// present; values without one are read as UTC wall clock.
func ParseTimestamp(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, Invalid("timestamp", "is required")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}
	return time.Time{}, Invalid("timestamp", "must be an ISO-8601 date-time")
}

// FormatTimestamp is the storage and wire form of an event time.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
