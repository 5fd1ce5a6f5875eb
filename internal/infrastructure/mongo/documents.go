package mongo

import (
	"time"

	"github.com/sngm3741/hushmap-services/api/internal/noise/domain"
)

// NoiseReportDocument は MongoDB 上のノイズレポートのスキーマ。
// timestamp は投稿者のオフセットを保持した文字列、occurredAt は範囲検索用の UTC 時刻。
type NoiseReportDocument struct {
	ID            string    `bson:"_id"`
	UserID        string    `bson:"userId,omitempty"`
	City          string    `bson:"city"`
	Latitude      float64   `bson:"latitude"`
	Longitude     float64   `bson:"longitude"`
	DecibelLevel  int       `bson:"decibelLevel"`
	NoiseCategory string    `bson:"noiseCategory"`
	NoiseSource   string    `bson:"noiseSource,omitempty"`
	Description   string    `bson:"description,omitempty"`
	Timestamp     string    `bson:"timestamp"`
	OccurredAt    time.Time `bson:"occurredAt"`
	CreatedAt     time.Time `bson:"createdAt"`
}

// QuietZoneDocument は静かなスポットのスキーマ。rating は zone_ratings の平均を反映する。
type QuietZoneDocument struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	City        string    `bson:"city"`
	Type        string    `bson:"type"`
	Latitude    float64   `bson:"latitude"`
	Longitude   float64   `bson:"longitude"`
	AvgDecibels *int      `bson:"avgDecibels,omitempty"`
	Rating      float64   `bson:"rating"`
	Description string    `bson:"description,omitempty"`
	Amenities   []string  `bson:"amenities"`
	BestTime    string    `bson:"bestTime,omitempty"`
	CreatedBy   string    `bson:"createdBy,omitempty"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

// ZoneRatingDocument は (zoneId, userId) で一意な評価ドキュメント。
type ZoneRatingDocument struct {
	ID        string    `bson:"_id"`
	ZoneID    string    `bson:"zoneId"`
	UserID    string    `bson:"userId"`
	Rating    int       `bson:"rating"`
	Comment   string    `bson:"comment,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func reportToDocument(r *domain.NoiseReport) NoiseReportDocument {
	return NoiseReportDocument{
		ID:            r.ID,
		UserID:        r.ReporterID,
		City:          r.City,
		Latitude:      r.Latitude,
		Longitude:     r.Longitude,
		DecibelLevel:  r.DecibelLevel.Int(),
		NoiseCategory: r.Category.String(),
		NoiseSource:   r.Source,
		Description:   r.Description,
		Timestamp:     domain.FormatTimestamp(r.Timestamp),
		OccurredAt:    r.Timestamp.UTC(),
		CreatedAt:     r.CreatedAt.UTC(),
	}
}

func mapReportDocument(doc NoiseReportDocument) domain.NoiseReport {
	ts, err := domain.ParseTimestamp(doc.Timestamp)
	if err != nil {
		ts = doc.OccurredAt
	}
	return domain.NoiseReport{
		ID:           doc.ID,
		ReporterID:   doc.UserID,
		City:         doc.City,
		Latitude:     doc.Latitude,
		Longitude:    doc.Longitude,
		DecibelLevel: domain.Decibel(doc.DecibelLevel),
		Category:     domain.NoiseCategory(doc.NoiseCategory),
		Source:       doc.NoiseSource,
		Description:  doc.Description,
		Timestamp:    ts,
		CreatedAt:    doc.CreatedAt.UTC(),
	}
}

func zoneToDocument(z *domain.QuietZone) QuietZoneDocument {
	amenities := z.Amenities.Strings()
	return QuietZoneDocument{
		ID:          z.ID,
		Name:        z.Name,
		City:        z.City,
		Type:        z.Type.String(),
		Latitude:    z.Latitude,
		Longitude:   z.Longitude,
		AvgDecibels: z.AvgDecibels,
		Rating:      z.Rating,
		Description: z.Description,
		Amenities:   amenities,
		BestTime:    z.BestTime,
		CreatedBy:   z.CreatedBy,
		CreatedAt:   z.CreatedAt.UTC(),
		UpdatedAt:   z.UpdatedAt.UTC(),
	}
}

func mapZoneDocument(doc QuietZoneDocument) domain.QuietZone {
	return domain.QuietZone{
		ID:          doc.ID,
		Name:        doc.Name,
		Type:        domain.ZoneType(doc.Type),
		City:        doc.City,
		Latitude:    doc.Latitude,
		Longitude:   doc.Longitude,
		AvgDecibels: doc.AvgDecibels,
		Rating:      doc.Rating,
		Description: doc.Description,
		Amenities:   domain.NewAmenityList(doc.Amenities),
		BestTime:    doc.BestTime,
		CreatedBy:   doc.CreatedBy,
		CreatedAt:   doc.CreatedAt.UTC(),
		UpdatedAt:   doc.UpdatedAt.UTC(),
	}
}

func mapRatingDocument(doc ZoneRatingDocument) domain.ZoneRating {
	return domain.ZoneRating{
		ID:        doc.ID,
		ZoneID:    doc.ZoneID,
		UserID:    doc.UserID,
		Rating:    domain.RatingValue(doc.Rating),
		Comment:   doc.Comment,
		CreatedAt: doc.CreatedAt.UTC(),
		UpdatedAt: doc.UpdatedAt.UTC(),
	}
}
