package domain

import "time"

// QuietZone is a curated low-noise place. Rating is always the mean of
// the zone's ZoneRatings, or 0 when it has none.
type QuietZone struct {
	ID          string
	Name        string
	Type        ZoneType
	City        string
	Latitude    float64
	Longitude   float64
	AvgDecibels *int
	Rating      float64
	Description string
	Amenities   AmenityList
	BestTime    string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ZoneRating is one user's score for a zone. (ZoneID, UserID) is unique.
type ZoneRating struct {
	ID        string
	ZoneID    string
	UserID    string
	Rating    RatingValue
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MeanRating averages rating values; 0 for none.
func MeanRating(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}
