package domain

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestNewCoordinates(t *testing.T) {
	cases := []struct {
		lat, lon float64
		field    string
	}{
		{11.0168, 76.9558, ""},
		{90, 180, ""},
		{-90, -180, ""},
		{90.0001, 0, "latitude"},
		{-91, 0, "latitude"},
		{0, 180.5, "longitude"},
		{math.NaN(), 0, "latitude"},
	}
	for _, tc := range cases {
		_, err := NewCoordinates(tc.lat, tc.lon)
		if tc.field == "" {
			if err != nil {
				t.Errorf("(%v,%v): unexpected error %v", tc.lat, tc.lon, err)
			}
			continue
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("(%v,%v): expected validation error, got %v", tc.lat, tc.lon, err)
		}
		if verr.Field != tc.field {
			t.Errorf("(%v,%v): field = %q, want %q", tc.lat, tc.lon, verr.Field, tc.field)
		}
		if !errors.Is(err, ErrValidation) {
			t.Errorf("validation error should match ErrValidation")
		}
	}
}

func TestNewDecibelBounds(t *testing.T) {
	for _, v := range []int{0, 85, 150} {
		if _, err := NewDecibel(v); err != nil {
			t.Errorf("NewDecibel(%d): %v", v, err)
		}
	}
	for _, v := range []int{-1, 151} {
		if _, err := NewDecibel(v); err == nil {
			t.Errorf("NewDecibel(%d) should fail", v)
		}
	}
}

func TestNewRatingValueBounds(t *testing.T) {
	for v := 1; v <= 5; v++ {
		if _, err := NewRatingValue(v); err != nil {
			t.Errorf("NewRatingValue(%d): %v", v, err)
		}
	}
	for _, v := range []int{0, 6} {
		if _, err := NewRatingValue(v); err == nil {
			t.Errorf("NewRatingValue(%d) should fail", v)
		}
	}
}

func TestNewNoiseCategoryAndZoneType(t *testing.T) {
	if c, err := NewNoiseCategory(" High "); err != nil || c != CategoryHigh {
		t.Fatalf("NewNoiseCategory: %v %v", c, err)
	}
	if _, err := NewNoiseCategory("deafening"); err == nil {
		t.Fatal("unknown category should fail")
	}
	if z, err := NewZoneType("library"); err != nil || z != ZoneLibrary {
		t.Fatalf("NewZoneType: %v %v", z, err)
	}
	if _, err := NewZoneType("mall"); err == nil {
		t.Fatal("unknown zone type should fail")
	}
}

func TestNewAmenityList(t *testing.T) {
	got := NewAmenityList([]string{"WiFi", " ", "Parking", "WiFi", "Benches"})
	want := []string{"WiFi", "Parking", "Benches"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2024-03-05T08:30:00+05:30")
	if err != nil {
		t.Fatal(err)
	}
	if ts.Hour() != 8 {
		t.Errorf("offset should be kept, hour = %d", ts.Hour())
	}

	ts, err = ParseTimestamp("2024-03-05T21:15:00")
	if err != nil {
		t.Fatal(err)
	}
	if ts.Location() != time.UTC || ts.Hour() != 21 {
		t.Errorf("zone-less timestamp should be UTC wall clock, got %v", ts)
	}

	if _, err := ParseTimestamp("yesterday"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestReportOwnership(t *testing.T) {
	r := NoiseReport{ReporterID: "u1"}
	if !r.OwnedBy("u1") || r.OwnedBy("u2") {
		t.Fatal("ownership check failed")
	}
	anon := NoiseReport{}
	if anon.OwnedBy("") {
		t.Fatal("anonymous report must not be owned by an empty id")
	}
}

func TestMeanRating(t *testing.T) {
	if MeanRating(nil) != 0 {
		t.Fatal("empty mean should be 0")
	}
	if got := MeanRating([]int{2, 5}); got != 3.5 {
		t.Fatalf("mean = %v", got)
	}
}
