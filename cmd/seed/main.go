package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sngm3741/hushmap-services/api/internal/config"
	"github.com/sngm3741/hushmap-services/api/internal/noise/application"
	"github.com/sngm3741/hushmap-services/api/internal/server"
)

type seedOptions struct {
	dataFile     string
	extraReports int
	raters       int
	dropData     bool
	randomSeed   int64
}

type seedData struct {
	Zones   []seedZone   `yaml:"zones"`
	Reports []seedReport `yaml:"reports"`
}

type seedZone struct {
	Name        string   `yaml:"name"`
	City        string   `yaml:"city"`
	Type        string   `yaml:"type"`
	Latitude    float64  `yaml:"latitude"`
	Longitude   float64  `yaml:"longitude"`
	AvgDecibels int      `yaml:"avg_decibels"`
	Rating      float64  `yaml:"rating"`
	Description string   `yaml:"description"`
	Amenities   []string `yaml:"amenities"`
	BestTime    string   `yaml:"best_time"`
}

type seedReport struct {
	City         string  `yaml:"city"`
	Latitude     float64 `yaml:"latitude"`
	Longitude    float64 `yaml:"longitude"`
	DecibelLevel int     `yaml:"decibel_level"`
	Category     string  `yaml:"noise_category"`
	Source       string  `yaml:"noise_source"`
	Description  string  `yaml:"description"`
	Timestamp    string  `yaml:"timestamp"`
}

func main() {
	opts := parseFlags()

	data := defaultData()
	if opts.dataFile != "" {
		loaded, err := loadData(opts.dataFile)
		if err != nil {
			log.Fatalf("シードファイルの読み込みに失敗しました: %v", err)
		}
		data = loaded
	}

	cfg := config.Config{
		StoreDriver:      strings.ToLower(envOrDefault("STORE_DRIVER", "sqlite")),
		DatabasePath:     envOrDefault("DATABASE_PATH", "data/hushmap.db"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		MongoURI:         envOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:    envOrDefault("MONGO_DB", "hushmap"),
		ReportCollection: envOrDefault("REPORT_COLLECTION", "noise_reports"),
		ZoneCollection:   envOrDefault("ZONE_COLLECTION", "quiet_zones"),
		RatingCollection: envOrDefault("RATING_COLLECTION", "zone_ratings"),
		DefaultCity:      strings.ToLower(envOrDefault("DEFAULT_CITY", "coimbatore")),
	}
	logger := log.New(os.Stdout, "[hushmap-seed] ", log.LstdFlags)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	backend, err := server.OpenBackend(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("ストア接続に失敗しました: %v", err)
	}
	defer func() {
		_ = backend.Close()
	}()

	if opts.dropData {
		if err := backend.DropAll(ctx); err != nil {
			log.Fatalf("既存データの削除に失敗しました: %v", err)
		}
		log.Printf("既存データを削除しました")
	}

	reports := application.NewReportCommandService(backend.Reports, nil, cfg.DefaultCity, logger)
	zones := application.NewZoneCommandService(backend.Zones, cfg.DefaultCity)
	rng := rand.New(rand.NewSource(opts.randomSeed))

	zoneCount, ratingCount := 0, 0
	for _, z := range data.Zones {
		lat, lng := z.Latitude, z.Longitude
		var avg *int
		if z.AvgDecibels > 0 {
			v := z.AvgDecibels
			avg = &v
		}
		zone, err := zones.Create(ctx, application.CreateZoneCommand{
			CreatorID:   "seed",
			Name:        z.Name,
			Type:        z.Type,
			City:        z.City,
			Latitude:    &lat,
			Longitude:   &lng,
			AvgDecibels: avg,
			Description: z.Description,
			Amenities:   z.Amenities,
			BestTime:    z.BestTime,
		})
		if err != nil {
			log.Fatalf("スポット %q の作成に失敗しました: %v", z.Name, err)
		}
		zoneCount++

		for i, score := range spreadRating(z.Rating, opts.raters) {
			if _, err := zones.Rate(ctx, application.RateZoneCommand{
				ZoneID: zone.ID,
				UserID: fmt.Sprintf("seed-user-%d", i+1),
				Rating: score,
			}); err != nil {
				log.Fatalf("スポット %q の評価に失敗しました: %v", z.Name, err)
			}
			ratingCount++
		}
	}

	reportCount := 0
	for _, r := range data.Reports {
		if err := submit(ctx, reports, r); err != nil {
			log.Fatalf("レポートの投入に失敗しました: %v", err)
		}
		reportCount++
	}

	for _, r := range generateReports(rng, data.Reports, opts.extraReports, time.Now()) {
		if err := submit(ctx, reports, r); err != nil {
			log.Fatalf("追加レポートの投入に失敗しました: %v", err)
		}
		reportCount++
	}

	log.Printf("Seed 完了: zones=%d ratings=%d reports=%d", zoneCount, ratingCount, reportCount)
	log.Printf("Store: %s (seed=%d)", backend.Name, opts.randomSeed)
}

func parseFlags() seedOptions {
	var opts seedOptions
	flag.StringVar(&opts.dataFile, "file", "", "シードデータの YAML ファイル (未指定なら組み込みデータ)")
	flag.IntVar(&opts.extraReports, "reports", 200, "直近 2 週間に散らして生成する追加レポート数")
	flag.IntVar(&opts.raters, "raters", 5, "スポットごとの評価ユーザー数")
	flag.BoolVar(&opts.dropData, "drop", true, "既存データを削除してから投入する")
	defaultSeed := time.Now().UnixNano()
	flag.Int64Var(&opts.randomSeed, "seed", defaultSeed, "乱数シード（再現用）")
	flag.Parse()

	if opts.extraReports < 0 {
		opts.extraReports = 0
	}
	if opts.raters < 0 {
		opts.raters = 0
	}
	return opts
}

func loadData(path string) (seedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return seedData{}, err
	}
	var data seedData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return seedData{}, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

func submit(ctx context.Context, svc application.ReportCommandService, r seedReport) error {
	lat, lng, db := r.Latitude, r.Longitude, r.DecibelLevel
	_, err := svc.Submit(ctx, application.SubmitReportCommand{
		City:         r.City,
		Latitude:     &lat,
		Longitude:    &lng,
		DecibelLevel: &db,
		Category:     r.Category,
		Source:       r.Source,
		Description:  r.Description,
		Timestamp:    r.Timestamp,
	})
	return err
}

// spreadRating returns n integer scores whose mean is as close to target as 1..5 allows.
func spreadRating(target float64, n int) []int {
	if n == 0 || target <= 0 {
		return nil
	}
	total := int(math.Round(target * float64(n)))
	if total < n {
		total = n
	}
	if total > 5*n {
		total = 5 * n
	}
	scores := make([]int, n)
	for i := range scores {
		scores[i] = total / n
	}
	for i := 0; i < total%n; i++ {
		scores[i]++
	}
	return scores
}

// generateReports jitters the base reports around their location and spreads
// them over the last 14 days so that hourly and weekly analytics have data.
func generateReports(rng *rand.Rand, base []seedReport, count int, now time.Time) []seedReport {
	if len(base) == 0 || count == 0 {
		return nil
	}
	out := make([]seedReport, 0, count)
	for i := 0; i < count; i++ {
		src := base[rng.Intn(len(base))]
		db := src.DecibelLevel + rng.Intn(21) - 10
		if db < 20 {
			db = 20
		}
		if db > 120 {
			db = 120
		}
		at := now.Add(-time.Duration(rng.Int63n(int64(14 * 24 * time.Hour))))
		out = append(out, seedReport{
			City:         src.City,
			Latitude:     src.Latitude + (rng.Float64()-0.5)*0.01,
			Longitude:    src.Longitude + (rng.Float64()-0.5)*0.01,
			DecibelLevel: db,
			Category:     categoryFor(db),
			Source:       src.Source,
			Timestamp:    at.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func categoryFor(db int) string {
	switch {
	case db < 50:
		return "low"
	case db < 70:
		return "medium"
	case db < 85:
		return "high"
	default:
		return "extreme"
	}
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func defaultData() seedData {
	return seedData{
		Zones: []seedZone{
			{"VOC Park & Zoo", "coimbatore", "park", 11.0074, 76.9618, 35, 4.8, "A peaceful park with greenery, perfect for morning walks and relaxation.", []string{"Walking paths", "Benches", "Zoo nearby"}, "6-9 AM"},
			{"Coimbatore Public Library", "coimbatore", "library", 11.0168, 76.9558, 30, 4.9, "Quiet study rooms with excellent facilities for students and researchers.", []string{"WiFi", "Power outlets", "AC", "Study rooms"}, "10 AM - 8 PM"},
			{"Brookefields Mall Food Court", "coimbatore", "cafe", 11.0271, 76.9969, 55, 4.2, "Modern mall with designated quiet cafes for remote workers.", []string{"WiFi", "Coffee", "Food", "AC"}, "10 AM - 2 PM"},
			{"Singanallur Lake", "coimbatore", "nature", 11.0045, 77.0285, 38, 4.7, "Serene lake with walking paths, away from city traffic noise.", []string{"Walking paths", "Scenic views", "Benches"}, "Early morning"},
			{"RS Puram Quiet Workspace", "coimbatore", "workspace", 11.0050, 76.9550, 40, 4.6, "Professional coworking space with strict noise policies.", []string{"WiFi", "Meeting rooms", "Coffee", "Parking"}, "9 AM - 6 PM"},
			{"Botanical Gardens", "coimbatore", "nature", 11.0510, 76.9040, 32, 4.9, "Expansive gardens with numerous quiet spots among native flora.", []string{"Walking paths", "Benches", "Restrooms", "Café"}, "Weekday mornings"},
			{"Connemara Public Library", "chennai", "library", 13.0569, 80.2497, 28, 4.9, "Historic library with excellent reading rooms and research facilities.", []string{"WiFi", "AC", "Study rooms", "Archives"}, "9 AM - 8 PM"},
			{"Guindy National Park", "chennai", "park", 13.0067, 80.2350, 35, 4.7, "Urban forest with peaceful trails and bird watching spots.", []string{"Walking trails", "Bird watching", "Benches"}, "Weekday mornings"},
			{"Cubbon Park", "bangalore", "park", 12.9762, 77.5929, 38, 4.8, "Large urban park with shaded walking paths and quiet corners.", []string{"Walking paths", "Benches", "Gardens", "Restrooms"}, "Early morning"},
			{"Lalbagh Botanical Garden", "bangalore", "nature", 12.9507, 77.5848, 33, 4.8, "Historic botanical garden with serene walking paths.", []string{"Walking paths", "Gardens", "Lake", "Benches"}, "6-9 AM"},
			{"Asiatic Society Library", "mumbai", "library", 18.9272, 72.8311, 32, 4.8, "Historic library with peaceful reading rooms.", []string{"WiFi", "AC", "Study rooms", "Archives"}, "10 AM - 6 PM"},
			{"Bandra Quiet Workspace", "mumbai", "workspace", 19.0596, 72.8295, 45, 4.4, "Professional coworking space in Bandra.", []string{"WiFi", "Meeting rooms", "Coffee", "AC"}, "9 AM - 8 PM"},
		},
		Reports: []seedReport{
			{"coimbatore", 11.0168, 76.9558, 85, "high", "Construction", "Metro construction work ongoing", "2024-01-15T10:30:00"},
			{"coimbatore", 11.0074, 76.9618, 42, "low", "Park", "Peaceful park area", "2024-01-15T11:00:00"},
			{"coimbatore", 11.0271, 76.9969, 75, "high", "Traffic", "Heavy traffic on Avinashi Road", "2024-01-15T09:15:00"},
			{"coimbatore", 11.0050, 76.9550, 48, "low", "Residential", "Quiet residential area in RS Puram", "2024-01-14T20:00:00"},
			{"coimbatore", 10.9900, 76.9610, 65, "medium", "Market", "Town Hall market area", "2024-01-15T14:00:00"},
			{"coimbatore", 11.0100, 76.9700, 90, "extreme", "Industrial", "Industrial area near Peelamedu", "2024-01-15T15:00:00"},
			{"chennai", 13.0827, 80.2707, 78, "high", "Traffic", "Heavy traffic on Anna Salai", "2024-01-15T09:00:00"},
			{"chennai", 13.0878, 80.2785, 88, "extreme", "Construction", "Metro construction at T Nagar", "2024-01-15T14:00:00"},
			{"bangalore", 12.9716, 77.5946, 82, "high", "Traffic", "MG Road traffic congestion", "2024-01-15T18:00:00"},
			{"bangalore", 12.9698, 77.7499, 92, "extreme", "Airport", "Near airport area", "2024-01-15T12:00:00"},
			{"mumbai", 19.0760, 72.8777, 85, "high", "Traffic", "CST area heavy traffic", "2024-01-15T09:30:00"},
		},
	}
}
