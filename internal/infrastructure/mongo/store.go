package mongo

import (
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Config は MongoDB バックエンドの接続設定。
type Config struct {
	URI              string
	Database         string
	ReportCollection string
	ZoneCollection   string
	RatingCollection string
	Logger           *log.Logger
}

// Store は MongoDB クライアントとリポジトリ群をまとめる。
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	cfg    Config
}

// Open は MongoDB に接続し、必要なインデックスを作成する。
func Open(ctx context.Context, cfg Config) (*Store, error) {
	clientOptions := options.Client().ApplyURI(cfg.URI).SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("MongoDB 接続に失敗しました: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("MongoDB ping に失敗しました: %w", err)
	}

	s := &Store{client: client, db: client.Database(cfg.Database), cfg: cfg}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	if cfg.Logger != nil {
		cfg.Logger.Printf("MongoDB に接続しました: db=%s", cfg.Database)
	}
	return s, nil
}

func (s *Store) Reports() *ReportRepository {
	return NewReportRepository(s.db, s.cfg.ReportCollection)
}

func (s *Store) Zones() *ZoneRepository {
	return NewZoneRepository(s.db, s.cfg.ZoneCollection, s.cfg.RatingCollection)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// EnsureIndexes は検索用インデックスと評価の一意インデックスを作成する。
func (s *Store) EnsureIndexes(ctx context.Context) error {
	reportIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "city", Value: 1}, {Key: "occurredAt", Value: -1}},
			Options: options.Index().SetName("idx_report_city_occurred"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("idx_report_created"),
		},
	}
	if _, err := s.db.Collection(s.cfg.ReportCollection).Indexes().CreateMany(ctx, reportIndexes); err != nil {
		return fmt.Errorf("report indexes: %w", err)
	}

	zoneIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "city", Value: 1}, {Key: "rating", Value: -1}},
			Options: options.Index().SetName("idx_zone_city_rating"),
		},
	}
	if _, err := s.db.Collection(s.cfg.ZoneCollection).Indexes().CreateMany(ctx, zoneIndexes); err != nil {
		return fmt.Errorf("zone indexes: %w", err)
	}

	if _, err := s.db.Collection(s.cfg.RatingCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "zoneId", Value: 1}, {Key: "userId", Value: 1}},
		Options: options.Index().SetName("uniq_zone_rating").SetUnique(true),
	}); err != nil {
		return fmt.Errorf("rating index: %w", err)
	}
	return nil
}

// DropAll はシード投入前にコレクションを削除する。
func (s *Store) DropAll(ctx context.Context) error {
	for _, name := range []string{s.cfg.ReportCollection, s.cfg.ZoneCollection, s.cfg.RatingCollection} {
		if err := s.db.Collection(name).Drop(ctx); err != nil {
			return fmt.Errorf("drop %s: %w", name, err)
		}
	}
	return nil
}
