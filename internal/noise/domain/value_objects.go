package domain

import (
	"math"
	"strings"
)

const (
	MinDecibel = 0
	MaxDecibel = 150
	MinRating  = 1
	MaxRating  = 5
)

type NoiseCategory string

const (
	CategoryLow     NoiseCategory = "low"
	CategoryMedium  NoiseCategory = "medium"
	CategoryHigh    NoiseCategory = "high"
	CategoryExtreme NoiseCategory = "extreme"
)

var noiseCategories = []NoiseCategory{CategoryLow, CategoryMedium, CategoryHigh, CategoryExtreme}

func NewNoiseCategory(value string) (NoiseCategory, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return "", Invalid("noise_category", "is required")
	}
	for _, c := range noiseCategories {
		if string(c) == trimmed {
			return c, nil
		}
	}
	return "", Invalid("noise_category", "must be one of low, medium, high, extreme")
}

func (c NoiseCategory) String() string {
	return string(c)
}

type ZoneType string

const (
	ZonePark      ZoneType = "park"
	ZoneLibrary   ZoneType = "library"
	ZoneCafe      ZoneType = "cafe"
	ZoneWorkspace ZoneType = "workspace"
	ZoneNature    ZoneType = "nature"
)

var zoneTypes = []ZoneType{ZonePark, ZoneLibrary, ZoneCafe, ZoneWorkspace, ZoneNature}

func NewZoneType(value string) (ZoneType, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return "", Invalid("type", "is required")
	}
	for _, t := range zoneTypes {
		if string(t) == trimmed {
			return t, nil
		}
	}
	return "", Invalid("type", "must be one of park, library, cafe, workspace, nature")
}

func (t ZoneType) String() string {
	return string(t)
}

// Coordinates is a validated latitude/longitude pair.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

func NewCoordinates(lat, lon float64) (Coordinates, error) {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return Coordinates{}, Invalid("latitude", "must be between -90 and 90")
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return Coordinates{}, Invalid("longitude", "must be between -180 and 180")
	}
	return Coordinates{Latitude: lat, Longitude: lon}, nil
}

type Decibel int

func NewDecibel(value int) (Decibel, error) {
	if value < MinDecibel || value > MaxDecibel {
		return 0, Invalid("decibel_level", "must be between %d and %d", MinDecibel, MaxDecibel)
	}
	return Decibel(value), nil
}

func (d Decibel) Int() int {
	return int(d)
}

type RatingValue int

func NewRatingValue(value int) (RatingValue, error) {
	if value < MinRating || value > MaxRating {
		return 0, Invalid("rating", "must be between %d and %d", MinRating, MaxRating)
	}
	return RatingValue(value), nil
}

func (r RatingValue) Int() int {
	return int(r)
}

// AmenityList keeps the caller's order and drops blanks and duplicates.
type AmenityList []string

func NewAmenityList(values []string) AmenityList {
	if len(values) == 0 {
		return AmenityList{}
	}
	result := make([]string, 0, len(values))
	seen := make(map[string]struct{})
	for _, raw := range values {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return AmenityList(result)
}

func (l AmenityList) Strings() []string {
	return append([]string{}, l...)
}

// City normalises a city key, falling back when blank.
func City(value, fallback string) string {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return fallback
	}
	return trimmed
}
