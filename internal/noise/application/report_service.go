package application

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sngm3741/hushmap-services/api/internal/geo"
	"github.com/sngm3741/hushmap-services/api/internal/noise/domain"
)

// NewReportCommandService wires the report write use-cases. notifier may be nil.
func NewReportCommandService(repo ReportRepository, notifier ReportNotifier, defaultCity string, logger *log.Logger) ReportCommandService {
	return &reportCommandService{
		repo:        repo,
		notifier:    notifier,
		defaultCity: domain.City(defaultCity, "coimbatore"),
		logger:      logger,
		now:         time.Now,
	}
}

type reportCommandService struct {
	repo        ReportRepository
	notifier    ReportNotifier
	defaultCity string
	logger      *log.Logger
	now         func() time.Time
}

func (s *reportCommandService) Submit(ctx context.Context, cmd SubmitReportCommand) (*domain.NoiseReport, error) {
	report, err := s.buildReport(cmd)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}

	if s.notifier != nil {
		go s.notify(*report)
	}
	return report, nil
}

func (s *reportCommandService) buildReport(cmd SubmitReportCommand) (*domain.NoiseReport, error) {
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
	if cmd.DecibelLevel == nil {
		return nil, domain.Invalid("decibel_level", "is required")
	}
	db, err := domain.NewDecibel(*cmd.DecibelLevel)
	if err != nil {
		return nil, err
	}
	category, err := domain.NewNoiseCategory(cmd.Category)
	if err != nil {
		return nil, err
	}
	ts, err := domain.ParseTimestamp(cmd.Timestamp)
	if err != nil {
		return nil, err
	}

	return &domain.NoiseReport{
		ID:           uuid.NewString(),
		ReporterID:   strings.TrimSpace(cmd.ReporterID),
		City:         domain.City(cmd.City, s.defaultCity),
		Latitude:     coords.Latitude,
		Longitude:    coords.Longitude,
		DecibelLevel: db,
		Category:     category,
		Source:       strings.TrimSpace(cmd.Source),
		Description:  strings.TrimSpace(cmd.Description),
		Timestamp:    ts,
		CreatedAt:    s.now().UTC(),
	}, nil
}

// notify runs detached from the request; a failing notifier must not take the process down.
func (s *reportCommandService) notify(report domain.NoiseReport) {
	defer func() {
		if r := recover(); r != nil && s.logger != nil {
			s.logger.Printf("report notification panicked id=%s: %v", report.ID, r)
		}
	}()
	s.notifier.ReportCreated(report)
}

func (s *reportCommandService) Delete(ctx context.Context, id, callerID string) error {
	if strings.TrimSpace(callerID) == "" {
		return domain.ErrUnauthenticated
	}
	report, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !report.OwnedBy(callerID) {
		return domain.ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}

// NewReportQueryService wires the report read use-cases.
func NewReportQueryService(repo ReportRepository) ReportQueryService {
	return &reportQueryService{repo: repo}
}

type reportQueryService struct {
	repo ReportRepository
}

func (s *reportQueryService) List(ctx context.Context, filter ReportFilter, paging Paging) (ReportPage, error) {
	paging, err := normalisePaging(paging, DefaultReportLimit, MaxReportLimit)
	if err != nil {
		return ReportPage{}, err
	}
	reports, total, err := s.repo.Find(ctx, filter, paging)
	if err != nil {
		return ReportPage{}, fmt.Errorf("find reports: %w", err)
	}
	return ReportPage{Reports: reports, Total: total, Limit: paging.Limit, Offset: paging.Offset}, nil
}

func (s *reportQueryService) Detail(ctx context.Context, id string) (*domain.NoiseReport, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrNotFound
	}
	return s.repo.FindByID(ctx, id)
}

func (s *reportQueryService) Nearby(ctx context.Context, q NearbyQuery) ([]NearbyReport, float64, error) {
	center, radius, err := validateNearby(q, DefaultReportRadiusKm)
	if err != nil {
		return nil, 0, err
	}

	reports, err := s.repo.All(ctx, ReportFilter{City: q.City})
	if err != nil {
		return nil, 0, fmt.Errorf("load reports: %w", err)
	}

	located := geo.Nearby(center, radius, reports, func(r domain.NoiseReport) geo.Point {
		return geo.Point{Latitude: r.Latitude, Longitude: r.Longitude}
	})
	result := make([]NearbyReport, 0, len(located))
	for _, l := range located {
		result = append(result, NearbyReport{Report: l.Item, DistanceKm: l.DistanceKm})
	}
	return result, radius, nil
}

func validateNearby(q NearbyQuery, defaultRadius float64) (geo.Point, float64, error) {
	coords, err := domain.NewCoordinates(q.Latitude, q.Longitude)
	if err != nil {
		return geo.Point{}, 0, err
	}
	radius := defaultRadius
	if q.RadiusKm != nil {
		radius = *q.RadiusKm
		if !(radius > MinRadiusKm && radius <= MaxRadiusKm) {
			return geo.Point{}, 0, domain.Invalid("radius", "must be greater than %g and at most %g km", MinRadiusKm, MaxRadiusKm)
		}
	}
	return geo.Point{Latitude: coords.Latitude, Longitude: coords.Longitude}, radius, nil
}

func normalisePaging(p Paging, def, maxLimit int) (Paging, error) {
	if p.Limit == 0 {
		p.Limit = def
	}
	if p.Limit < 1 || p.Limit > maxLimit {
		return Paging{}, domain.Invalid("limit", "must be between 1 and %d", maxLimit)
	}
	if p.Offset < 0 {
		return Paging{}, domain.Invalid("offset", "must be >= 0")
	}
	return p, nil
}
