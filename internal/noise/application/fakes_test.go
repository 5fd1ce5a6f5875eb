package application

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/sngm3741/hushmap-services/api/internal/noise/domain"
)

var errStoreDown = errors.New("store unavailable")

type fakeReports struct {
	mu      sync.Mutex
	items   []domain.NoiseReport
	failAll bool
	failNew bool
	allHits int
}

func (f *fakeReports) Create(_ context.Context, r *domain.NoiseReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNew {
		return errStoreDown
	}
	f.items = append(f.items, *r)
	return nil
}

func (f *fakeReports) FindByID(_ context.Context, id string) (*domain.NoiseReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.items {
		if r.ID == id {
			found := r
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeReports) match(filter ReportFilter, r domain.NoiseReport) bool {
	if filter.City != "" && r.City != filter.City {
		return false
	}
	if filter.Category != "" && r.Category != filter.Category {
		return false
	}
	if filter.Source != "" && !strings.Contains(strings.ToLower(r.Source), strings.ToLower(filter.Source)) {
		return false
	}
	if filter.Since != nil && r.Timestamp.Before(*filter.Since) {
		return false
	}
	return true
}

func (f *fakeReports) Find(_ context.Context, filter ReportFilter, paging Paging) ([]domain.NoiseReport, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := make([]domain.NoiseReport, 0)
	for _, r := range f.items {
		if f.match(filter, r) {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Timestamp.After(matched[j].Timestamp) })
	total := len(matched)
	start := paging.Offset
	if start > total {
		start = total
	}
	end := start + paging.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (f *fakeReports) All(_ context.Context, filter ReportFilter) ([]domain.NoiseReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allHits++
	if f.failAll {
		return nil, errStoreDown
	}
	matched := make([]domain.NoiseReport, 0)
	for _, r := range f.items {
		if f.match(filter, r) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

func (f *fakeReports) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.items {
		if r.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

type fakeZones struct {
	mu      sync.Mutex
	zones   []domain.QuietZone
	ratings []domain.ZoneRating
	allHits int
}

func (f *fakeZones) Create(_ context.Context, z *domain.QuietZone) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.zones = append(f.zones, *z)
	return nil
}

func (f *fakeZones) FindByID(_ context.Context, id string) (*domain.QuietZone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, z := range f.zones {
		if z.ID == id {
			found := z
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeZones) Find(_ context.Context, filter ZoneFilter) ([]domain.QuietZone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.QuietZone, 0)
	for _, z := range f.zones {
		if filter.City != "" && z.City != filter.City {
			continue
		}
		if filter.Type != "" && z.Type != filter.Type {
			continue
		}
		out = append(out, z)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeZones) All(_ context.Context, city string) ([]domain.QuietZone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allHits++
	out := make([]domain.QuietZone, 0)
	for _, z := range f.zones {
		if city == "" || z.City == city {
			out = append(out, z)
		}
	}
	return out, nil
}

func (f *fakeZones) Count(ctx context.Context, city string) (int, error) {
	zones, err := f.All(ctx, city)
	return len(zones), err
}

func (f *fakeZones) UpsertRating(_ context.Context, rating *domain.ZoneRating) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := -1
	for i, z := range f.zones {
		if z.ID == rating.ZoneID {
			idx = i
		}
	}
	if idx < 0 {
		return 0, domain.ErrNotFound
	}
	replaced := false
	for i, r := range f.ratings {
		if r.ZoneID == rating.ZoneID && r.UserID == rating.UserID {
			f.ratings[i].Rating = rating.Rating
			f.ratings[i].Comment = rating.Comment
			replaced = true
		}
	}
	if !replaced {
		f.ratings = append(f.ratings, *rating)
	}
	values := make([]int, 0)
	for _, r := range f.ratings {
		if r.ZoneID == rating.ZoneID {
			values = append(values, r.Rating.Int())
		}
	}
	f.zones[idx].Rating = domain.MeanRating(values)
	return f.zones[idx].Rating, nil
}

func (f *fakeZones) ListRatings(_ context.Context, zoneID string) ([]domain.ZoneRating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.ZoneRating, 0)
	for _, r := range f.ratings {
		if r.ZoneID == zoneID {
			out = append(out, r)
		}
	}
	return out, nil
}

type recordingNotifier struct {
	ch chan domain.NoiseReport
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{ch: make(chan domain.NoiseReport, 8)}
}

func (n *recordingNotifier) ReportCreated(r domain.NoiseReport) {
	n.ch <- r
}

type panickingNotifier struct {
	done chan struct{}
}

func (n *panickingNotifier) ReportCreated(domain.NoiseReport) {
	defer close(n.done)
	panic("boom")
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
