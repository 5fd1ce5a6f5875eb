package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sngm3741/hushmap-services/api/internal/noise/application"
	"github.com/sngm3741/hushmap-services/api/internal/noise/domain"
)

// ReportRepository はノイズレポートを MongoDB で扱う実装リポジトリ。
type ReportRepository struct {
	collection *mongo.Collection
}

var _ application.ReportRepository = (*ReportRepository)(nil)

func NewReportRepository(db *mongo.Database, collectionName string) *ReportRepository {
	return &ReportRepository{collection: db.Collection(collectionName)}
}

func (r *ReportRepository) Create(ctx context.Context, report *domain.NoiseReport) error {
	if _, err := r.collection.InsertOne(ctx, reportToDocument(report)); err != nil {
		return fmt.Errorf("insert report %s: %w", report.ID, err)
	}
	return nil
}

func (r *ReportRepository) FindByID(ctx context.Context, id string) (*domain.NoiseReport, error) {
	var doc NoiseReportDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	report := mapReportDocument(doc)
	return &report, nil
}

// Find は timestamp 降順で1ページ分を取得し、同じ条件での総件数も返す。
func (r *ReportRepository) Find(ctx context.Context, filter application.ReportFilter, paging application.Paging) ([]domain.NoiseReport, int, error) {
	mongoFilter := buildReportFilter(filter)

	total, err := r.collection.CountDocuments(ctx, mongoFilter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "occurredAt", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(paging.Offset)).
		SetLimit(int64(paging.Limit))
	reports, err := r.find(ctx, mongoFilter, opts)
	if err != nil {
		return nil, 0, err
	}
	return reports, int(total), nil
}

func (r *ReportRepository) All(ctx context.Context, filter application.ReportFilter) ([]domain.NoiseReport, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	return r.find(ctx, buildReportFilter(filter), opts)
}

func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ReportRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.NoiseReport, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	reports := make([]domain.NoiseReport, 0)
	for cursor.Next(ctx) {
		var doc NoiseReportDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		reports = append(reports, mapReportDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

func buildReportFilter(filter application.ReportFilter) bson.M {
	mongoFilter := bson.M{}
	if filter.City != "" {
		mongoFilter["city"] = filter.City
	}
	if filter.Category != "" {
		mongoFilter["noiseCategory"] = filter.Category.String()
	}
	if filter.Source != "" {
		mongoFilter["noiseSource"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.Source), Options: "i"}
	}
	if filter.Since != nil {
		mongoFilter["occurredAt"] = bson.M{"$gte": filter.Since.UTC()}
	}
	return mongoFilter
}
