package application

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/sngm3741/hushmap-services/api/internal/noise/domain"
)

func validSubmit() SubmitReportCommand {
	return SubmitReportCommand{
		Latitude:     floatPtr(11.0168),
		Longitude:    floatPtr(76.9558),
		DecibelLevel: intPtr(85),
		Category:     "high",
		Source:       "Traffic",
		Timestamp:    "2024-03-05T18:30:00+05:30",
	}
}

func TestSubmitPersistsAndNotifies(t *testing.T) {
	repo := &fakeReports{}
	notifier := newRecordingNotifier()
	svc := NewReportCommandService(repo, notifier, "Coimbatore", nil)

	report, err := svc.Submit(context.Background(), validSubmit())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if report.ID == "" || report.CreatedAt.IsZero() {
		t.Fatalf("server fields not assigned: %+v", report)
	}
	if report.City != "coimbatore" {
		t.Errorf("default city = %q", report.City)
	}
	if len(repo.items) != 1 {
		t.Fatalf("expected 1 stored report, got %d", len(repo.items))
	}

	select {
	case got := <-notifier.ch:
		if got.ID != report.ID {
			t.Errorf("notified %s, want %s", got.ID, report.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("notifier was not called")
	}
}

func TestSubmitValidationSkipsStoreAndNotifier(t *testing.T) {
	cases := map[string]func(*SubmitReportCommand){
		"latitude":       func(c *SubmitReportCommand) { c.Latitude = floatPtr(91) },
		"longitude":      func(c *SubmitReportCommand) { c.Longitude = nil },
		"decibel_level":  func(c *SubmitReportCommand) { c.DecibelLevel = intPtr(151) },
		"noise_category": func(c *SubmitReportCommand) { c.Category = "loud" },
		"timestamp":      func(c *SubmitReportCommand) { c.Timestamp = "" },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			repo := &fakeReports{}
			notifier := newRecordingNotifier()
			svc := NewReportCommandService(repo, notifier, "", nil)

			cmd := validSubmit()
			mutate(&cmd)
			_, err := svc.Submit(context.Background(), cmd)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) || verr.Field != field {
				t.Fatalf("expected validation error on %s, got %v", field, err)
			}
			if len(repo.items) != 0 {
				t.Fatal("invalid report must not be stored")
			}
			select {
			case <-notifier.ch:
				t.Fatal("notifier must not fire on invalid input")
			case <-time.After(20 * time.Millisecond):
			}
		})
	}
}

func TestSubmitStoreFailureDoesNotNotify(t *testing.T) {
	repo := &fakeReports{failNew: true}
	notifier := newRecordingNotifier()
	svc := NewReportCommandService(repo, notifier, "", nil)

	if _, err := svc.Submit(context.Background(), validSubmit()); !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error, got %v", err)
	}
	select {
	case <-notifier.ch:
		t.Fatal("notifier fired for a failed insert")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestSubmitSurvivesPanickingNotifier(t *testing.T) {
	repo := &fakeReports{}
	notifier := &panickingNotifier{done: make(chan struct{})}
	svc := NewReportCommandService(repo, notifier, "", nil)

	if _, err := svc.Submit(context.Background(), validSubmit()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	select {
	case <-notifier.done:
	case <-time.After(time.Second):
		t.Fatal("notifier never ran")
	}
}

func TestDeleteOwnership(t *testing.T) {
	repo := &fakeReports{items: []domain.NoiseReport{
		{ID: "r1", ReporterID: "alice"},
		{ID: "r2"},
	}}
	svc := NewReportCommandService(repo, nil, "", nil)
	ctx := context.Background()

	if err := svc.Delete(ctx, "r1", ""); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("anonymous delete: %v", err)
	}
	if err := svc.Delete(ctx, "r1", "bob"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("foreign delete: %v", err)
	}
	if err := svc.Delete(ctx, "r2", "bob"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("anonymous report delete: %v", err)
	}
	if err := svc.Delete(ctx, "missing", "bob"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing delete: %v", err)
	}
	if err := svc.Delete(ctx, "r1", "alice"); err != nil {
		t.Errorf("owner delete: %v", err)
	}
	if len(repo.items) != 1 {
		t.Errorf("expected 1 remaining report, got %d", len(repo.items))
	}
}

func TestNearbyReportsOrderedWithinRadius(t *testing.T) {
	repo := &fakeReports{items: []domain.NoiseReport{
		{ID: "far", City: "coimbatore", Latitude: 11.045, Longitude: 76.975},
		{ID: "near", City: "coimbatore", Latitude: 11.0170, Longitude: 76.9560},
		{ID: "chennai", City: "chennai", Latitude: 13.0827, Longitude: 80.2707},
		{ID: "mid", City: "coimbatore", Latitude: 11.03, Longitude: 76.96},
	}}
	svc := NewReportQueryService(repo)

	got, radius, err := svc.Nearby(context.Background(), NearbyQuery{Latitude: 11.0168, Longitude: 76.9558})
	if err != nil {
		t.Fatal(err)
	}
	if radius != DefaultReportRadiusKm {
		t.Errorf("radius = %v, want default %v", radius, DefaultReportRadiusKm)
	}
	want := []string{"near", "mid", "far"}
	if len(got) != len(want) {
		t.Fatalf("got %d results, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].Report.ID != id {
			t.Errorf("result %d = %s, want %s", i, got[i].Report.ID, id)
		}
		if got[i].DistanceKm > radius {
			t.Errorf("%s outside radius", got[i].Report.ID)
		}
	}
}

func TestNearbyRejectsBadInputBeforeStoreAccess(t *testing.T) {
	cases := []NearbyQuery{
		{Latitude: 95, Longitude: 0},
		{Latitude: 0, Longitude: -181},
		{Latitude: 0, Longitude: 0, RadiusKm: floatPtr(0.1)},
		{Latitude: 0, Longitude: 0, RadiusKm: floatPtr(0)},
		{Latitude: 0, Longitude: 0, RadiusKm: floatPtr(100.5)},
	}
	for _, q := range cases {
		repo := &fakeReports{}
		svc := NewReportQueryService(repo)
		if _, _, err := svc.Nearby(context.Background(), q); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("query %+v: expected validation error, got %v", q, err)
		}
		if repo.allHits != 0 {
			t.Errorf("query %+v touched the store", q)
		}
	}

	repo := &fakeReports{}
	if _, r, err := NewReportQueryService(repo).Nearby(context.Background(), NearbyQuery{RadiusKm: floatPtr(100)}); err != nil || r != 100 {
		t.Errorf("radius 100 should be accepted: %v %v", r, err)
	}
}

func TestSubmitThenNearbyFindsReport(t *testing.T) {
	repo := &fakeReports{}
	cmds := NewReportCommandService(repo, nil, "", nil)
	queries := NewReportQueryService(repo)
	ctx := context.Background()

	report, err := cmds.Submit(ctx, validSubmit())
	if err != nil {
		t.Fatal(err)
	}
	got, _, err := queries.Nearby(ctx, NearbyQuery{Latitude: 11.0168, Longitude: 76.9558, RadiusKm: floatPtr(1)})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Report.ID != report.ID {
		t.Fatalf("submitted report not found: %+v", got)
	}
	if math.Abs(got[0].DistanceKm) > 1e-9 {
		t.Errorf("distance = %v, want ~0", got[0].DistanceKm)
	}
}

func TestListPagingValidation(t *testing.T) {
	repo := &fakeReports{}
	svc := NewReportQueryService(repo)
	ctx := context.Background()

	page, err := svc.List(ctx, ReportFilter{}, Paging{})
	if err != nil {
		t.Fatal(err)
	}
	if page.Limit != DefaultReportLimit || page.Offset != 0 {
		t.Errorf("defaults not applied: %+v", page)
	}
	if _, err := svc.List(ctx, ReportFilter{}, Paging{Limit: 1001}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("limit over max: %v", err)
	}
	if _, err := svc.List(ctx, ReportFilter{}, Paging{Limit: 10, Offset: -1}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("negative offset: %v", err)
	}
}
