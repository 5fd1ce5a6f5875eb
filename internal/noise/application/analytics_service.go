package application

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sngm3741/hushmap-services/api/internal/noise/domain"
)

const (
	hotspotPrecision = 1000.0
	hotspotLimit     = 10
	trailingWindow   = 7 * 24 * time.Hour
)

var weekdayLabels = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// AnalyticsFilter scopes every aggregation to one city when City is set.
type AnalyticsFilter struct {
	City string
}

type HourlyBucket struct {
	Hour        string
	AvgDecibels float64
	ReportCount int
}

type WeekdayBucket struct {
	Day         string
	AvgDecibels float64
	ReportCount int
}

type SourceCount struct {
	Name  string
	Value int
}

// Hotspot is a 0.001° grid cell with more than one report. Category is the
// category of the first report seen in the cell, not an aggregate.
type Hotspot struct {
	Latitude    float64
	Longitude   float64
	AvgDecibels float64
	ReportCount int
	Category    domain.NoiseCategory
}

type CityStats struct {
	TotalReports    int
	AvgCityNoise    int
	QuietZonesFound int
	QuietestTime    string
	WeeklyReports   int
	WeeklyChange    string
}

// AnalyticsService derives read-only summaries from stored reports.
type AnalyticsService interface {
	HourlyPattern(ctx context.Context, filter AnalyticsFilter) ([]HourlyBucket, error)
	WeeklyPattern(ctx context.Context, filter AnalyticsFilter) ([]WeekdayBucket, error)
	SourceDistribution(ctx context.Context, filter AnalyticsFilter) ([]SourceCount, error)
	Hotspots(ctx context.Context, filter AnalyticsFilter) ([]Hotspot, error)
	CityStats(ctx context.Context, filter AnalyticsFilter) (CityStats, error)
}

// NewAnalyticsService builds the aggregator. now may be nil for the wall clock.
func NewAnalyticsService(reports ReportRepository, zones ZoneRepository, now func() time.Time) AnalyticsService {
	if now == nil {
		now = time.Now
	}
	return &analyticsService{reports: reports, zones: zones, now: now}
}

type analyticsService struct {
	reports ReportRepository
	zones   ZoneRepository
	now     func() time.Time
}

type accumulator struct {
	sum   int
	count int
}

func (a *accumulator) add(v int) {
	a.sum += v
	a.count++
}

func (a accumulator) mean() float64 {
	if a.count == 0 {
		return 0
	}
	return float64(a.sum) / float64(a.count)
}

func (s *analyticsService) load(ctx context.Context, filter ReportFilter) ([]domain.NoiseReport, error) {
	reports, err := s.reports.All(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load reports: %w", err)
	}
	return reports, nil
}

func (s *analyticsService) lastWeek(ctx context.Context, city string) ([]domain.NoiseReport, error) {
	since := s.now().Add(-trailingWindow)
	return s.load(ctx, ReportFilter{City: city, Since: &since})
}

func (s *analyticsService) HourlyPattern(ctx context.Context, filter AnalyticsFilter) ([]HourlyBucket, error) {
	reports, err := s.lastWeek(ctx, filter.City)
	if err != nil {
		return nil, err
	}

	var hours [24]accumulator
	for _, r := range reports {
		hours[r.Timestamp.Hour()].add(r.DecibelLevel.Int())
	}

	result := make([]HourlyBucket, 0)
	for h, acc := range hours {
		if acc.count == 0 {
			continue
		}
		result = append(result, HourlyBucket{
			Hour:        fmt.Sprintf("%02d", h),
			AvgDecibels: acc.mean(),
			ReportCount: acc.count,
		})
	}
	return result, nil
}

func (s *analyticsService) WeeklyPattern(ctx context.Context, filter AnalyticsFilter) ([]WeekdayBucket, error) {
	reports, err := s.lastWeek(ctx, filter.City)
	if err != nil {
		return nil, err
	}

	var days [7]accumulator
	for _, r := range reports {
		days[r.Timestamp.Weekday()].add(r.DecibelLevel.Int())
	}

	result := make([]WeekdayBucket, 0)
	for d, acc := range days {
		if acc.count == 0 {
			continue
		}
		result = append(result, WeekdayBucket{
			Day:         weekdayLabels[d],
			AvgDecibels: acc.mean(),
			ReportCount: acc.count,
		})
	}
	return result, nil
}

func (s *analyticsService) SourceDistribution(ctx context.Context, filter AnalyticsFilter) ([]SourceCount, error) {
	reports, err := s.load(ctx, ReportFilter{City: filter.City})
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, r := range reports {
		if r.Source == "" {
			continue
		}
		counts[r.Source]++
	}

	result := make([]SourceCount, 0, len(counts))
	for name, n := range counts {
		result = append(result, SourceCount{Name: name, Value: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Value != result[j].Value {
			return result[i].Value > result[j].Value
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

type cell struct {
	lat, lng float64
}

func (s *analyticsService) Hotspots(ctx context.Context, filter AnalyticsFilter) ([]Hotspot, error) {
	reports, err := s.load(ctx, ReportFilter{City: filter.City})
	if err != nil {
		return nil, err
	}

	order := make([]cell, 0)
	groups := make(map[cell]*accumulator)
	categories := make(map[cell]domain.NoiseCategory)
	for _, r := range reports {
		key := cell{lat: roundCell(r.Latitude), lng: roundCell(r.Longitude)}
		acc, ok := groups[key]
		if !ok {
			acc = &accumulator{}
			groups[key] = acc
			categories[key] = r.Category
			order = append(order, key)
		}
		acc.add(r.DecibelLevel.Int())
	}

	result := make([]Hotspot, 0)
	for _, key := range order {
		acc := groups[key]
		if acc.count <= 1 {
			continue
		}
		result = append(result, Hotspot{
			Latitude:    key.lat,
			Longitude:   key.lng,
			AvgDecibels: acc.mean(),
			ReportCount: acc.count,
			Category:    categories[key],
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].AvgDecibels > result[j].AvgDecibels
	})
	if len(result) > hotspotLimit {
		result = result[:hotspotLimit]
	}
	return result, nil
}

func roundCell(v float64) float64 {
	return math.Round(v*hotspotPrecision) / hotspotPrecision
}

func (s *analyticsService) CityStats(ctx context.Context, filter AnalyticsFilter) (CityStats, error) {
	reports, err := s.load(ctx, ReportFilter{City: filter.City})
	if err != nil {
		return CityStats{}, err
	}
	zoneCount, err := s.zones.Count(ctx, filter.City)
	if err != nil {
		return CityStats{}, fmt.Errorf("count zones: %w", err)
	}

	now := s.now()
	currentStart := now.Add(-trailingWindow)
	previousStart := now.Add(-2 * trailingWindow)

	var (
		all             accumulator
		hours           [24]accumulator
		hourSeen        []int
		current, before int
	)
	for _, r := range reports {
		db := r.DecibelLevel.Int()
		all.add(db)
		h := r.Timestamp.Hour()
		if hours[h].count == 0 {
			hourSeen = append(hourSeen, h)
		}
		hours[h].add(db)

		switch {
		case !r.Timestamp.Before(currentStart):
			current++
		case !r.Timestamp.Before(previousStart):
			before++
		}
	}

	quietest := "N/A"
	best := -1
	for _, h := range hourSeen {
		if best < 0 || hours[h].mean() < hours[best].mean() {
			best = h
		}
	}
	if best >= 0 {
		quietest = fmt.Sprintf("%02d:00", best)
	}

	return CityStats{
		TotalReports:    all.count,
		AvgCityNoise:    int(math.Round(all.mean())),
		QuietZonesFound: zoneCount,
		QuietestTime:    quietest,
		WeeklyReports:   current,
		WeeklyChange:    WeeklyChange(current, before),
	}, nil
}

// WeeklyChange formats the week-over-week change. A previous count of zero
// yields "0%" rather than an infinite change.
func WeeklyChange(current, previous int) string {
	if previous <= 0 {
		return "0%"
	}
	change := float64(current-previous) / float64(previous) * 100
	return fmt.Sprintf("%.1f%%", change)
}
