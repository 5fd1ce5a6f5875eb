package public

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sngm3741/hushmap-services/api/internal/infrastructure/sqlstore"
	"github.com/sngm3741/hushmap-services/api/internal/interfaces/http/common"
	"github.com/sngm3741/hushmap-services/api/internal/noise/application"
	"github.com/sngm3741/hushmap-services/api/internal/noise/domain"
)

// testAuth trusts the X-User header so handler tests do not need signed tokens.
func testAuth(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := r.Header.Get("X-User")
			if user == "" {
				if required {
					common.WriteJSON(nil, w, http.StatusUnauthorized, common.ErrorResponse{Error: "authentication required"})
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			ctx := common.ContextWithIdentity(r.Context(), common.Identity{ID: user})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := sqlstore.Open(context.Background(), sqlstore.Config{Driver: sqlstore.DriverSQLite, DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := log.New(io.Discard, "", 0)
	reports := store.Reports()
	zones := store.Zones()
	handler := NewHandler(Config{
		Logger:         logger,
		ReportQueries:  application.NewReportQueryService(reports),
		ReportCommands: application.NewReportCommandService(reports, nil, "coimbatore", logger),
		ZoneQueries:    application.NewZoneQueryService(zones),
		ZoneCommands:   application.NewZoneCommandService(zones, "coimbatore"),
		Analytics:      application.NewAnalyticsService(reports, zones, nil),
		PublicBaseURL:  "https://hushmap.example/",
	})

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		handler.Register(r, testAuth(true), testAuth(false))
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, user string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User", user)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func submitReport(t *testing.T, srv *httptest.Server, user string, lat, lng float64, db int, category string) ReportResponse {
	t.Helper()
	resp, body := doJSON(t, srv, http.MethodPost, "/api/reports", user, map[string]any{
		"latitude":       lat,
		"longitude":      lng,
		"decibel_level":  db,
		"noise_category": category,
		"noise_source":   "Traffic",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit status = %d body=%s", resp.StatusCode, body)
	}
	var created reportCreateResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatal(err)
	}
	return created.Report
}

func TestSubmitThenNearbyFindsReport(t *testing.T) {
	srv := newTestServer(t)
	created := submitReport(t, srv, "", 11.0168, 76.9558, 85, "high")
	if created.UserID != nil || created.City != "coimbatore" {
		t.Fatalf("anonymous report should have null user and default city: %+v", created)
	}

	resp, body := doJSON(t, srv, http.MethodGet, "/api/reports/nearby?latitude=11.0168&longitude=76.9558&radius=1", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("nearby status = %d body=%s", resp.StatusCode, body)
	}
	var got struct {
		Reports []struct {
			ID         string  `json:"id"`
			DistanceKm float64 `json:"distanceKm"`
		} `json:"reports"`
		RadiusKm float64 `json:"radiusKm"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got.RadiusKm != 1 || len(got.Reports) != 1 || got.Reports[0].ID != created.ID {
		t.Fatalf("unexpected nearby result: %s", body)
	}
	if got.Reports[0].DistanceKm > 1e-6 {
		t.Errorf("distance = %v, want ~0", got.Reports[0].DistanceKm)
	}
}

func TestNearbyValidation(t *testing.T) {
	srv := newTestServer(t)
	cases := []struct {
		path   string
		status int
	}{
		{"/api/reports/nearby?latitude=11&longitude=76&radius=0.1", http.StatusBadRequest},
		{"/api/reports/nearby?latitude=11&longitude=76&radius=100.5", http.StatusBadRequest},
		{"/api/reports/nearby?latitude=11&longitude=76&radius=100", http.StatusOK},
		{"/api/reports/nearby?longitude=76", http.StatusBadRequest},
		{"/api/reports/nearby?latitude=91&longitude=76", http.StatusBadRequest},
		{"/api/reports/nearby?latitude=abc&longitude=76", http.StatusBadRequest},
		{"/api/zones/nearby?latitude=11&longitude=181", http.StatusBadRequest},
		{"/api/zones/nearby?latitude=11&longitude=76", http.StatusOK},
	}
	for _, tc := range cases {
		resp, body := doJSON(t, srv, http.MethodGet, tc.path, "", nil)
		if resp.StatusCode != tc.status {
			t.Errorf("%s: status = %d, want %d (body=%s)", tc.path, resp.StatusCode, tc.status, body)
		}
	}
}

func TestSubmitValidation(t *testing.T) {
	srv := newTestServer(t)
	resp, body := doJSON(t, srv, http.MethodPost, "/api/reports", "", map[string]any{
		"latitude":       11.0,
		"longitude":      76.9,
		"decibel_level":  151,
		"noise_category": "high",
		"timestamp":      "2024-03-05T10:00:00Z",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var errBody common.ErrorResponse
	if err := json.Unmarshal(body, &errBody); err != nil {
		t.Fatal(err)
	}
	if errBody.Field != "decibel_level" {
		t.Errorf("field = %q, want decibel_level", errBody.Field)
	}

	resp, _ = doJSON(t, srv, http.MethodPost, "/api/reports", "", map[string]any{"latitude": "north"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("wrong type status = %d", resp.StatusCode)
	}
}

func TestReportListAndDeleteOwnership(t *testing.T) {
	srv := newTestServer(t)
	mine := submitReport(t, srv, "alice", 11.0, 76.9, 60, "medium")
	submitReport(t, srv, "", 11.1, 76.8, 40, "low")

	resp, body := doJSON(t, srv, http.MethodGet, "/api/reports?category=medium&limit=10", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var page reportListResponse
	if err := json.Unmarshal(body, &page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || len(page.Reports) != 1 || page.Limit != 10 || page.Reports[0].ID != mine.ID {
		t.Fatalf("unexpected page: %s", body)
	}

	if resp, _ := doJSON(t, srv, http.MethodGet, "/api/reports?limit=0", "", nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("limit=0 status = %d", resp.StatusCode)
	}
	if resp, _ := doJSON(t, srv, http.MethodGet, "/api/reports?limit=1001", "", nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("limit=1001 status = %d", resp.StatusCode)
	}

	if resp, _ := doJSON(t, srv, http.MethodDelete, "/api/reports/"+mine.ID, "", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous delete status = %d", resp.StatusCode)
	}
	if resp, _ := doJSON(t, srv, http.MethodDelete, "/api/reports/"+mine.ID, "mallory", nil); resp.StatusCode != http.StatusForbidden {
		t.Errorf("foreign delete status = %d", resp.StatusCode)
	}
	if resp, _ := doJSON(t, srv, http.MethodDelete, "/api/reports/"+mine.ID, "alice", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("owner delete status = %d", resp.StatusCode)
	}
	if resp, _ := doJSON(t, srv, http.MethodGet, "/api/reports/"+mine.ID, "", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("detail after delete status = %d", resp.StatusCode)
	}
}

func createZone(t *testing.T, srv *httptest.Server) zoneResponse {
	t.Helper()
	resp, body := doJSON(t, srv, http.MethodPost, "/api/zones", "creator", map[string]any{
		"name":         "Race Course Walk",
		"type":         "park",
		"latitude":     11.0005,
		"longitude":    76.977,
		"avg_decibels": 38,
		"amenities":    []string{"Benches", "Walking Track"},
		"best_time":    "6-8 AM",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create zone status = %d body=%s", resp.StatusCode, body)
	}
	var created zoneCreateResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatal(err)
	}
	return created.Zone
}

func TestZoneCreateAndRate(t *testing.T) {
	srv := newTestServer(t)

	if resp, _ := doJSON(t, srv, http.MethodPost, "/api/zones", "", map[string]any{"name": "x"}); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous create status = %d", resp.StatusCode)
	}
	zone := createZone(t, srv)
	if zone.CreatedBy == nil || *zone.CreatedBy != "creator" || len(zone.Amenities) != 2 || zone.Rating != 0 {
		t.Fatalf("unexpected zone: %+v", zone)
	}

	rate := func(user string, value int) (int, zoneRateResponse) {
		resp, body := doJSON(t, srv, http.MethodPost, "/api/zones/"+zone.ID+"/rate", user, map[string]any{"rating": value})
		var out zoneRateResponse
		_ = json.Unmarshal(body, &out)
		return resp.StatusCode, out
	}

	if status, out := rate("alice", 4); status != http.StatusOK || out.AverageRating != 4 {
		t.Fatalf("first rating: %d %+v", status, out)
	}
	if status, out := rate("alice", 2); status != http.StatusOK || out.AverageRating != 2 {
		t.Fatalf("overwrite: %d %+v", status, out)
	}
	if status, out := rate("bob", 5); status != http.StatusOK || out.AverageRating != 3.5 {
		t.Fatalf("second user: %d %+v", status, out)
	}
	if status, _ := rate("bob", 6); status != http.StatusBadRequest {
		t.Errorf("rating 6 status = %d", status)
	}

	resp, body := doJSON(t, srv, http.MethodGet, "/api/zones/"+zone.ID+"/ratings", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ratings status = %d", resp.StatusCode)
	}
	var ratings ratingListResponse
	if err := json.Unmarshal(body, &ratings); err != nil {
		t.Fatal(err)
	}
	if len(ratings.Ratings) != 2 {
		t.Errorf("expected one rating per user, got %d", len(ratings.Ratings))
	}

	resp, body = doJSON(t, srv, http.MethodGet, "/api/zones/"+zone.ID, "", nil)
	var detail zoneDetailResponse
	if err := json.Unmarshal(body, &detail); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("detail: %d %v", resp.StatusCode, err)
	}
	if detail.Zone.Rating != 3.5 {
		t.Errorf("stored rating = %v, want 3.5", detail.Zone.Rating)
	}

	resp, _ = doJSON(t, srv, http.MethodPost, "/api/zones/missing/rate", "alice", map[string]any{"rating": 3})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing zone status = %d", resp.StatusCode)
	}
}

func TestZoneQRCode(t *testing.T) {
	srv := newTestServer(t)
	zone := createZone(t, srv)

	resp, body := doJSON(t, srv, http.MethodGet, "/api/zones/"+zone.ID+"/qr.png?size=50", "", nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("qr status = %d type=%s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}
	if resp, _ := doJSON(t, srv, http.MethodGet, "/api/zones/nope/qr.png", "", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing zone qr status = %d", resp.StatusCode)
	}
}

func TestAnalyticsEndpoints(t *testing.T) {
	srv := newTestServer(t)
	submitReport(t, srv, "", 11.0168, 76.9558, 60, "medium")
	submitReport(t, srv, "", 11.0169, 76.9559, 80, "high")
	createZone(t, srv)

	resp, body := doJSON(t, srv, http.MethodGet, "/api/analytics/hotspots", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("hotspots status = %d", resp.StatusCode)
	}
	var hot hotspotListResponse
	if err := json.Unmarshal(body, &hot); err != nil {
		t.Fatal(err)
	}
	if len(hot.Hotspots) != 1 || hot.Hotspots[0].ReportCount != 2 || hot.Hotspots[0].AvgDecibels != 70 || hot.Hotspots[0].NoiseCategory != "medium" {
		t.Fatalf("unexpected hotspots: %s", body)
	}

	resp, body = doJSON(t, srv, http.MethodGet, "/api/analytics/city-stats", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("city-stats status = %d", resp.StatusCode)
	}
	var stats cityStatsEnvelope
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatal(err)
	}
	want := cityStatsResponse{TotalReports: 2, AvgCityNoise: 70, QuietZonesFound: 1, WeeklyReports: 2, WeeklyChange: "0%"}
	got := stats.Stats
	got.QuietestTime = ""
	if got != want {
		t.Errorf("stats = %+v, want %+v", stats.Stats, want)
	}

	resp, body = doJSON(t, srv, http.MethodGet, "/api/analytics/sources", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `{"name":"Traffic","value":2}`) {
		t.Errorf("sources: %d %s", resp.StatusCode, body)
	}

	for _, path := range []string{"/api/analytics/hourly", "/api/analytics/weekly"} {
		resp, body := doJSON(t, srv, http.MethodGet, path, "", nil)
		var out struct {
			Data []struct {
				ReportCount int `json:"report_count"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &out); err != nil || resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: %d %v", path, resp.StatusCode, err)
		}
		total := 0
		for _, b := range out.Data {
			total += b.ReportCount
		}
		if total != 2 {
			t.Errorf("%s counted %d reports, want 2", path, total)
		}
	}
}

func TestPresentReportNullsOptionalFields(t *testing.T) {
	r := PresentReport(domain.NoiseReport{
		ID:           "r1",
		DecibelLevel: 50,
		Category:     domain.CategoryMedium,
		Timestamp:    time.Date(2024, 3, 5, 8, 0, 0, 0, time.FixedZone("", 19800)),
	})
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	for _, want := range []string{`"user_id":null`, `"noise_source":null`, `"description":null`, `"timestamp":"2024-03-05T08:00:00+05:30"`} {
		if !strings.Contains(s, want) {
			t.Errorf("%s missing %s", s, want)
		}
	}
}
