package geo

import (
	"math"
	"testing"
)

func TestDistanceKmIdenticalPoints(t *testing.T) {
	points := []Point{
		{11.0168, 76.9558},
		{0, 0},
		{-90, 180},
		{51.5074, -0.1278},
	}
	for _, p := range points {
		if d := DistanceKm(p.Latitude, p.Longitude, p.Latitude, p.Longitude); d != 0 {
			t.Fatalf("distance of %v to itself = %v, want 0", p, d)
		}
	}
}

func TestDistanceKmSymmetricAndNonNegative(t *testing.T) {
	pairs := [][2]Point{
		{{11.0168, 76.9558}, {13.0827, 80.2707}},
		{{-33.8688, 151.2093}, {40.7128, -74.0060}},
		{{0, 179.9}, {0, -179.9}},
		{{89.9, 0}, {-89.9, 180}},
	}
	for _, pair := range pairs {
		a, b := pair[0], pair[1]
		ab := Between(a, b)
		ba := Between(b, a)
		if ab < 0 {
			t.Fatalf("negative distance %v for %v -> %v", ab, a, b)
		}
		if math.Abs(ab-ba) > 1e-9 {
			t.Fatalf("asymmetric distance %v vs %v", ab, ba)
		}
	}
}

func TestDistanceKmKnownValue(t *testing.T) {
	// Coimbatore to Chennai is roughly 420 km as the crow flies.
	d := DistanceKm(11.0168, 76.9558, 13.0827, 80.2707)
	if d < 400 || d > 440 {
		t.Fatalf("unexpected distance %v", d)
	}

	// one degree of latitude is ~111.19 km with R=6371
	d = DistanceKm(0, 0, 1, 0)
	if math.Abs(d-111.19) > 0.01 {
		t.Fatalf("one degree latitude = %v", d)
	}
}

type spot struct {
	name string
	p    Point
}

func TestNearbyFiltersAndSorts(t *testing.T) {
	center := Point{11.0168, 76.9558}
	items := []spot{
		{"far", Point{11.10, 76.95}},
		{"here", Point{11.0168, 76.9558}},
		{"mid", Point{11.02, 76.96}},
		{"out", Point{13.08, 80.27}},
		{"here-again", Point{11.0168, 76.9558}},
	}

	got := Nearby(center, 10, items, func(s spot) Point { return s.p })
	if len(got) != 4 {
		t.Fatalf("expected 4 results, got %d", len(got))
	}
	for i, r := range got {
		if r.DistanceKm > 10 {
			t.Errorf("result %s outside radius: %v", r.Item.name, r.DistanceKm)
		}
		if i > 0 && got[i-1].DistanceKm > r.DistanceKm {
			t.Errorf("results not sorted at %d", i)
		}
	}
	if got[0].Item.name != "here" || got[1].Item.name != "here-again" {
		t.Errorf("ties should keep input order, got %s, %s", got[0].Item.name, got[1].Item.name)
	}
}

func TestNearbyEmpty(t *testing.T) {
	got := Nearby(Point{}, 5, []spot{}, func(s spot) Point { return s.p })
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}
