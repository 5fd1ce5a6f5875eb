package application

import (
	"context"
	"time"

	"github.com/sngm3741/hushmap-services/api/internal/noise/domain"
)

const (
	DefaultReportRadiusKm = 5.0
	DefaultZoneRadiusKm   = 10.0
	MinRadiusKm           = 0.1
	MaxRadiusKm           = 100.0

	DefaultReportLimit = 100
	MaxReportLimit     = 1000
	DefaultZoneLimit   = 50
	MaxZoneLimit       = 100
)

// ReportRepository はノイズレポートを永続化するポート。
type ReportRepository interface {
	Create(ctx context.Context, report *domain.NoiseReport) error
	FindByID(ctx context.Context, id string) (*domain.NoiseReport, error)
	// Find returns one page ordered by timestamp desc plus the filtered total.
	Find(ctx context.Context, filter ReportFilter, paging Paging) ([]domain.NoiseReport, int, error)
	// All returns every matching report in the store's insertion order.
	All(ctx context.Context, filter ReportFilter) ([]domain.NoiseReport, error)
	Delete(ctx context.Context, id string) error
}

// ZoneRepository は静かなスポットと評価を扱うポート。
type ZoneRepository interface {
	Create(ctx context.Context, zone *domain.QuietZone) error
	FindByID(ctx context.Context, id string) (*domain.QuietZone, error)
	// Find returns zones ordered by rating desc, at most filter.Limit rows.
	Find(ctx context.Context, filter ZoneFilter) ([]domain.QuietZone, error)
	All(ctx context.Context, city string) ([]domain.QuietZone, error)
	Count(ctx context.Context, city string) (int, error)
	// UpsertRating writes the (zone, user) rating and refreshes the zone mean
	// in one transaction, returning the new mean. domain.ErrNotFound when the
	// zone does not exist.
	UpsertRating(ctx context.Context, rating *domain.ZoneRating) (float64, error)
	ListRatings(ctx context.Context, zoneID string) ([]domain.ZoneRating, error)
}

// ReportNotifier receives every report right after it is persisted.
type ReportNotifier interface {
	ReportCreated(report domain.NoiseReport)
}

// ReportFilter expresses search criteria for reports.
type ReportFilter struct {
	City     string
	Category domain.NoiseCategory
	// Source matches as a case-insensitive substring.
	Source string
	Since  *time.Time
}

// ZoneFilter expresses search criteria for quiet zones.
type ZoneFilter struct {
	City  string
	Type  domain.ZoneType
	Limit int
}

// Paging controls offset pagination.
type Paging struct {
	Limit  int
	Offset int
}

// NearbyQuery is a radius search around a point. A nil RadiusKm uses the
// per-collection default.
type NearbyQuery struct {
	Latitude  float64
	Longitude float64
	RadiusKm  *float64
	City      string
}

// NearbyReport is a report annotated with its distance from the query point.
type NearbyReport struct {
	Report     domain.NoiseReport
	DistanceKm float64
}

// NearbyZone is a zone annotated with its distance from the query point.
type NearbyZone struct {
	Zone       domain.QuietZone
	DistanceKm float64
}

// ReportPage is a page of reports with the filtered total.
type ReportPage struct {
	Reports []domain.NoiseReport
	Total   int
	Limit   int
	Offset  int
}

// ReportCommandService handles report write use-cases.
type ReportCommandService interface {
	Submit(ctx context.Context, cmd SubmitReportCommand) (*domain.NoiseReport, error)
	Delete(ctx context.Context, id, callerID string) error
}

// ReportQueryService handles report read use-cases.
type ReportQueryService interface {
	List(ctx context.Context, filter ReportFilter, paging Paging) (ReportPage, error)
	Detail(ctx context.Context, id string) (*domain.NoiseReport, error)
	Nearby(ctx context.Context, q NearbyQuery) ([]NearbyReport, float64, error)
}

// ZoneQueryService handles quiet zone read use-cases.
type ZoneQueryService interface {
	List(ctx context.Context, filter ZoneFilter) ([]domain.QuietZone, error)
	Detail(ctx context.Context, id string) (*domain.QuietZone, error)
	Nearby(ctx context.Context, q NearbyQuery) ([]NearbyZone, float64, error)
	Ratings(ctx context.Context, zoneID string) ([]domain.ZoneRating, error)
}

// ZoneCommandService handles quiet zone write use-cases.
type ZoneCommandService interface {
	Create(ctx context.Context, cmd CreateZoneCommand) (*domain.QuietZone, error)
	Rate(ctx context.Context, cmd RateZoneCommand) (RateResult, error)
}

// SubmitReportCommand captures raw report input. Pointer fields are
// required and reported as validation errors when nil.
type SubmitReportCommand struct {
	ReporterID   string
	City         string
	Latitude     *float64
	Longitude    *float64
	DecibelLevel *int
	Category     string
	Source       string
	Description  string
	Timestamp    string
}

// CreateZoneCommand captures raw quiet zone input.
type CreateZoneCommand struct {
	CreatorID   string
	Name        string
	Type        string
	City        string
	Latitude    *float64
	Longitude   *float64
	AvgDecibels *int
	Description string
	Amenities   []string
	BestTime    string
}

// RateZoneCommand is one user's rating for a zone.
type RateZoneCommand struct {
	ZoneID  string
	UserID  string
	Rating  int
	Comment string
}

// RateResult carries the zone mean after the rating was applied.
type RateResult struct {
	AverageRating float64
}
