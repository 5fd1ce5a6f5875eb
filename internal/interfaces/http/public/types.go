package public

import (
	"time"

	"github.com/sngm3741/hushmap-services/api/internal/noise/application"
	"github.com/sngm3741/hushmap-services/api/internal/noise/domain"
)

// ReportResponse is the wire form of a noise report. Optional columns are
// null rather than omitted so the map client can rely on the keys.
type ReportResponse struct {
	ID            string  `json:"id"`
	UserID        *string `json:"user_id"`
	City          string  `json:"city"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	DecibelLevel  int     `json:"decibel_level"`
	NoiseCategory string  `json:"noise_category"`
	NoiseSource   *string `json:"noise_source"`
	Description   *string `json:"description"`
	Timestamp     string  `json:"timestamp"`
	CreatedAt     string  `json:"created_at"`
}

type nearbyReportResponse struct {
	ReportResponse
	DistanceKm float64 `json:"distanceKm"`
}

type reportCreateRequest struct {
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	DecibelLevel  *int     `json:"decibel_level"`
	NoiseCategory string   `json:"noise_category"`
	NoiseSource   string   `json:"noise_source"`
	Description   string   `json:"description"`
	Timestamp     string   `json:"timestamp"`
	City          string   `json:"city"`
}

type reportCreateResponse struct {
	Message string         `json:"message"`
	Report  ReportResponse `json:"report"`
}

type reportListResponse struct {
	Reports []ReportResponse `json:"reports"`
	Total   int              `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

type reportNearbyResponse struct {
	Reports  []nearbyReportResponse `json:"reports"`
	RadiusKm float64                `json:"radiusKm"`
}

type reportDetailResponse struct {
	Report ReportResponse `json:"report"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type zoneResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	City        string   `json:"city"`
	Type        string   `json:"type"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	AvgDecibels *int     `json:"avg_decibels"`
	Rating      float64  `json:"rating"`
	Description *string  `json:"description"`
	Amenities   []string `json:"amenities"`
	BestTime    *string  `json:"best_time"`
	CreatedBy   *string  `json:"created_by"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

type nearbyZoneResponse struct {
	zoneResponse
	DistanceKm float64 `json:"distanceKm"`
}

type zoneCreateRequest struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	City        string   `json:"city"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	AvgDecibels *int     `json:"avg_decibels"`
	Description string   `json:"description"`
	Amenities   []string `json:"amenities"`
	BestTime    string   `json:"best_time"`
}

type zoneRateRequest struct {
	Rating  *int   `json:"rating"`
	Comment string `json:"comment"`
}

type zoneRateResponse struct {
	Message       string  `json:"message"`
	AverageRating float64 `json:"averageRating"`
}

type zoneListResponse struct {
	Zones []zoneResponse `json:"zones"`
}

type zoneNearbyResponse struct {
	Zones    []nearbyZoneResponse `json:"zones"`
	RadiusKm float64              `json:"radiusKm"`
}

type zoneDetailResponse struct {
	Zone zoneResponse `json:"zone"`
}

type zoneCreateResponse struct {
	Message string       `json:"message"`
	Zone    zoneResponse `json:"zone"`
}

type ratingResponse struct {
	ID        string  `json:"id"`
	ZoneID    string  `json:"zone_id"`
	UserID    string  `json:"user_id"`
	Rating    int     `json:"rating"`
	Comment   *string `json:"comment"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type ratingListResponse struct {
	Ratings []ratingResponse `json:"ratings"`
}

type hourlyResponse struct {
	Hour        string  `json:"hour"`
	AvgDecibels float64 `json:"avg_decibels"`
	ReportCount int     `json:"report_count"`
}

type weeklyResponse struct {
	Day         string  `json:"day"`
	AvgDecibels float64 `json:"avg_decibels"`
	ReportCount int     `json:"report_count"`
}

type sourceResponse struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type hotspotResponse struct {
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	AvgDecibels   float64 `json:"avg_decibels"`
	ReportCount   int     `json:"report_count"`
	NoiseCategory string  `json:"noise_category"`
}

type cityStatsResponse struct {
	TotalReports    int    `json:"totalReports"`
	AvgCityNoise    int    `json:"avgCityNoise"`
	QuietZonesFound int    `json:"quietZonesFound"`
	QuietestTime    string `json:"quietestTime"`
	WeeklyReports   int    `json:"weeklyReports"`
	WeeklyChange    string `json:"weeklyChange"`
}

type dataResponse[T any] struct {
	Data []T `json:"data"`
}

type hotspotListResponse struct {
	Hotspots []hotspotResponse `json:"hotspots"`
}

type cityStatsEnvelope struct {
	Stats cityStatsResponse `json:"stats"`
}

// PresentReport converts a report into its wire form. The live broadcaster
// uses it so WebSocket events carry the same shape as the REST API.
func PresentReport(r domain.NoiseReport) ReportResponse {
	return ReportResponse{
		ID:            r.ID,
		UserID:        nullable(r.ReporterID),
		City:          r.City,
		Latitude:      r.Latitude,
		Longitude:     r.Longitude,
		DecibelLevel:  r.DecibelLevel.Int(),
		NoiseCategory: r.Category.String(),
		NoiseSource:   nullable(r.Source),
		Description:   nullable(r.Description),
		Timestamp:     domain.FormatTimestamp(r.Timestamp),
		CreatedAt:     formatTime(r.CreatedAt),
	}
}

func presentReports(reports []domain.NoiseReport) []ReportResponse {
	items := make([]ReportResponse, 0, len(reports))
	for _, r := range reports {
		items = append(items, PresentReport(r))
	}
	return items
}

func presentNearbyReports(found []application.NearbyReport) []nearbyReportResponse {
	items := make([]nearbyReportResponse, 0, len(found))
	for _, n := range found {
		items = append(items, nearbyReportResponse{ReportResponse: PresentReport(n.Report), DistanceKm: n.DistanceKm})
	}
	return items
}

func presentZone(z domain.QuietZone) zoneResponse {
	amenities := z.Amenities.Strings()
	if amenities == nil {
		amenities = []string{}
	}
	return zoneResponse{
		ID:          z.ID,
		Name:        z.Name,
		City:        z.City,
		Type:        z.Type.String(),
		Latitude:    z.Latitude,
		Longitude:   z.Longitude,
		AvgDecibels: z.AvgDecibels,
		Rating:      z.Rating,
		Description: nullable(z.Description),
		Amenities:   amenities,
		BestTime:    nullable(z.BestTime),
		CreatedBy:   nullable(z.CreatedBy),
		CreatedAt:   formatTime(z.CreatedAt),
		UpdatedAt:   formatTime(z.UpdatedAt),
	}
}

func presentZones(zones []domain.QuietZone) []zoneResponse {
	items := make([]zoneResponse, 0, len(zones))
	for _, z := range zones {
		items = append(items, presentZone(z))
	}
	return items
}

func presentNearbyZones(found []application.NearbyZone) []nearbyZoneResponse {
	items := make([]nearbyZoneResponse, 0, len(found))
	for _, n := range found {
		items = append(items, nearbyZoneResponse{zoneResponse: presentZone(n.Zone), DistanceKm: n.DistanceKm})
	}
	return items
}

func presentRatings(ratings []domain.ZoneRating) []ratingResponse {
	items := make([]ratingResponse, 0, len(ratings))
	for _, r := range ratings {
		items = append(items, ratingResponse{
			ID:        r.ID,
			ZoneID:    r.ZoneID,
			UserID:    r.UserID,
			Rating:    r.Rating.Int(),
			Comment:   nullable(r.Comment),
			CreatedAt: formatTime(r.CreatedAt),
			UpdatedAt: formatTime(r.UpdatedAt),
		})
	}
	return items
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
