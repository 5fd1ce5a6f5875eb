package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sngm3741/hushmap-services/api/internal/geo"
	"github.com/sngm3741/hushmap-services/api/internal/noise/domain"
)

// NewZoneQueryService wires the quiet zone read use-cases.
func NewZoneQueryService(repo ZoneRepository) ZoneQueryService {
	return &zoneQueryService{repo: repo}
}

type zoneQueryService struct {
	repo ZoneRepository
}

func (s *zoneQueryService) List(ctx context.Context, filter ZoneFilter) ([]domain.QuietZone, error) {
	if filter.Limit == 0 {
		filter.Limit = DefaultZoneLimit
	}
	if filter.Limit < 1 || filter.Limit > MaxZoneLimit {
		return nil, domain.Invalid("limit", "must be between 1 and %d", MaxZoneLimit)
	}
	zones, err := s.repo.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find zones: %w", err)
	}
	return zones, nil
}

func (s *zoneQueryService) Detail(ctx context.Context, id string) (*domain.QuietZone, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrNotFound
	}
	return s.repo.FindByID(ctx, id)
}

func (s *zoneQueryService) Nearby(ctx context.Context, q NearbyQuery) ([]NearbyZone, float64, error) {
	center, radius, err := validateNearby(q, DefaultZoneRadiusKm)
	if err != nil {
		return nil, 0, err
	}

	zones, err := s.repo.All(ctx, q.City)
	if err != nil {
		return nil, 0, fmt.Errorf("load zones: %w", err)
	}

	located := geo.Nearby(center, radius, zones, func(z domain.QuietZone) geo.Point {
		return geo.Point{Latitude: z.Latitude, Longitude: z.Longitude}
	})
	result := make([]NearbyZone, 0, len(located))
	for _, l := range located {
		result = append(result, NearbyZone{Zone: l.Item, DistanceKm: l.DistanceKm})
	}
	return result, radius, nil
}

func (s *zoneQueryService) Ratings(ctx context.Context, zoneID string) ([]domain.ZoneRating, error) {
	if _, err := s.Detail(ctx, zoneID); err != nil {
		return nil, err
	}
	return s.repo.ListRatings(ctx, zoneID)
}

// NewZoneCommandService wires the quiet zone write use-cases.
func NewZoneCommandService(repo ZoneRepository, defaultCity string) ZoneCommandService {
	return &zoneCommandService{
		repo:        repo,
		defaultCity: domain.City(defaultCity, "coimbatore"),
		now:         time.Now,
	}
}

type zoneCommandService struct {
	repo        ZoneRepository
	defaultCity string
	now         func() time.Time
}

func (s *zoneCommandService) Create(ctx context.Context, cmd CreateZoneCommand) (*domain.QuietZone, error) {
	if strings.TrimSpace(cmd.CreatorID) == "" {
		return nil, domain.ErrUnauthenticated
	}
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return nil, domain.Invalid("name", "is required")
	}
	zoneType, err := domain.NewZoneType(cmd.Type)
	if err != nil {
		return nil, err
	}
	if cmd.Latitude == nil {
		return nil, domain.Invalid("latitude", "is required")
	}
	if cmd.Longitude == nil {
		return nil, domain.Invalid("longitude", "is required")
	}
	coords, err := domain.NewCoordinates(*cmd.Latitude, *cmd.Longitude)
	if err != nil {
		return nil, err
	}
	var avg *int
	if cmd.AvgDecibels != nil {
		v, err := domain.NewDecibel(*cmd.AvgDecibels)
		if err != nil {
			return nil, domain.Invalid("avg_decibels", "must be between %d and %d", domain.MinDecibel, domain.MaxDecibel)
		}
		n := v.Int()
		avg = &n
	}

	now := s.now().UTC()
	zone := &domain.QuietZone{
		ID:          uuid.NewString(),
		Name:        name,
		Type:        zoneType,
		City:        domain.City(cmd.City, s.defaultCity),
		Latitude:    coords.Latitude,
		Longitude:   coords.Longitude,
		AvgDecibels: avg,
		Rating:      0,
		Description: strings.TrimSpace(cmd.Description),
		Amenities:   domain.NewAmenityList(cmd.Amenities),
		BestTime:    strings.TrimSpace(cmd.BestTime),
		CreatedBy:   cmd.CreatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, zone); err != nil {
		return nil, fmt.Errorf("create zone: %w", err)
	}
	return zone, nil
}

// Rate は (zone, user) ごとに最大1件の評価を書き込み、ゾーンの平均評価を再計算して返す。
// 書き込みと平均の更新はリポジトリ側の単一トランザクションで行われる。
func (s *zoneCommandService) Rate(ctx context.Context, cmd RateZoneCommand) (RateResult, error) {
	if strings.TrimSpace(cmd.UserID) == "" {
		return RateResult{}, domain.ErrUnauthenticated
	}
	value, err := domain.NewRatingValue(cmd.Rating)
	if err != nil {
		return RateResult{}, err
	}
	if strings.TrimSpace(cmd.ZoneID) == "" {
		return RateResult{}, domain.ErrNotFound
	}

	now := s.now().UTC()
	rating := &domain.ZoneRating{
		ID:        uuid.NewString(),
		ZoneID:    cmd.ZoneID,
		UserID:    cmd.UserID,
		Rating:    value,
		Comment:   strings.TrimSpace(cmd.Comment),
		CreatedAt: now,
		UpdatedAt: now,
	}
	avg, err := s.repo.UpsertRating(ctx, rating)
	if err != nil {
		return RateResult{}, err
	}
	return RateResult{AverageRating: avg}, nil
}
