package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sngm3741/hushmap-services/api/internal/noise/application"
	"github.com/sngm3741/hushmap-services/api/internal/noise/domain"
)

// ZoneRepository は静かなスポットと評価を MongoDB で扱う実装リポジトリ。
type ZoneRepository struct {
	client  *mongo.Client
	zones   *mongo.Collection
	ratings *mongo.Collection
}

var _ application.ZoneRepository = (*ZoneRepository)(nil)

func NewZoneRepository(db *mongo.Database, zoneCollection, ratingCollection string) *ZoneRepository {
	return &ZoneRepository{
		client:  db.Client(),
		zones:   db.Collection(zoneCollection),
		ratings: db.Collection(ratingCollection),
	}
}

func (r *ZoneRepository) Create(ctx context.Context, zone *domain.QuietZone) error {
	if _, err := r.zones.InsertOne(ctx, zoneToDocument(zone)); err != nil {
		return fmt.Errorf("insert zone %s: %w", zone.ID, err)
	}
	return nil
}

func (r *ZoneRepository) FindByID(ctx context.Context, id string) (*domain.QuietZone, error) {
	var doc QuietZoneDocument
	err := r.zones.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	zone := mapZoneDocument(doc)
	return &zone, nil
}

func (r *ZoneRepository) Find(ctx context.Context, filter application.ZoneFilter) ([]domain.QuietZone, error) {
	mongoFilter := bson.M{}
	if filter.City != "" {
		mongoFilter["city"] = filter.City
	}
	if filter.Type != "" {
		mongoFilter["type"] = filter.Type.String()
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "rating", Value: -1}, {Key: "name", Value: 1}}).
		SetLimit(int64(filter.Limit))
	return r.find(ctx, mongoFilter, opts)
}

func (r *ZoneRepository) All(ctx context.Context, city string) ([]domain.QuietZone, error) {
	mongoFilter := bson.M{}
	if city != "" {
		mongoFilter["city"] = city
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	return r.find(ctx, mongoFilter, opts)
}

func (r *ZoneRepository) Count(ctx context.Context, city string) (int, error) {
	mongoFilter := bson.M{}
	if city != "" {
		mongoFilter["city"] = city
	}
	n, err := r.zones.CountDocuments(ctx, mongoFilter)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// UpsertRating は (zoneId, userId) 単位で評価を上書きし、ゾーン平均を再計算する。
// レプリカセットではトランザクション内で実行し、単体サーバーでは一意インデックスに頼って逐次実行する。
func (r *ZoneRepository) UpsertRating(ctx context.Context, rating *domain.ZoneRating) (float64, error) {
	session, err := r.client.StartSession()
	if err != nil {
		return 0, err
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return r.upsertRating(sc, rating)
	})
	if isTransactionUnsupported(err) {
		return r.upsertRating(ctx, rating)
	}
	if err != nil {
		return 0, err
	}
	return result.(float64), nil
}

func (r *ZoneRepository) upsertRating(ctx context.Context, rating *domain.ZoneRating) (float64, error) {
	if err := r.zones.FindOne(ctx, bson.M{"_id": rating.ZoneID}).Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}

	filter := bson.M{"zoneId": rating.ZoneID, "userId": rating.UserID}
	update := bson.M{
		"$set": bson.M{
			"rating":    rating.Rating.Int(),
			"comment":   rating.Comment,
			"updatedAt": rating.UpdatedAt.UTC(),
		},
		"$setOnInsert": bson.M{
			"_id":       rating.ID,
			"createdAt": rating.CreatedAt.UTC(),
		},
	}
	if _, err := r.ratings.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return 0, fmt.Errorf("upsert rating: %w", err)
	}

	avg, err := r.recalculateZoneRating(ctx, rating.ZoneID, rating.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return avg, nil
}

// recalculateZoneRating は対象ゾーンの評価を集計し、平均値を QuietZone に反映する。
func (r *ZoneRepository) recalculateZoneRating(ctx context.Context, zoneID string, at time.Time) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"zoneId": zoneID}}},
		{{Key: "$group", Value: bson.M{
			"_id":       nil,
			"avgRating": bson.M{"$avg": "$rating"},
		}}},
	}

	cursor, err := r.ratings.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var stats struct {
		AvgRating float64 `bson:"avgRating"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&stats); err != nil {
			return 0, err
		}
	}
	if err := cursor.Err(); err != nil {
		return 0, err
	}

	update := bson.M{"$set": bson.M{"rating": stats.AvgRating, "updatedAt": at.UTC()}}
	if _, err := r.zones.UpdateByID(ctx, zoneID, update); err != nil {
		return 0, fmt.Errorf("update zone rating: %w", err)
	}
	return stats.AvgRating, nil
}

func (r *ZoneRepository) ListRatings(ctx context.Context, zoneID string) ([]domain.ZoneRating, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := r.ratings.Find(ctx, bson.M{"zoneId": zoneID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	ratings := make([]domain.ZoneRating, 0)
	for cursor.Next(ctx) {
		var doc ZoneRatingDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ratings = append(ratings, mapRatingDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return ratings, nil
}

func (r *ZoneRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.QuietZone, error) {
	cursor, err := r.zones.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	zones := make([]domain.QuietZone, 0)
	for cursor.Next(ctx) {
		var doc QuietZoneDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		zones = append(zones, mapZoneDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return zones, nil
}

// IllegalOperation(20) は単体サーバーでトランザクションを開始した場合に返る。
func isTransactionUnsupported(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == 20
	}
	return false
}
