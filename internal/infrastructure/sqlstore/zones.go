package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sngm3741/hushmap-services/api/internal/noise/application"
	"github.com/sngm3741/hushmap-services/api/internal/noise/domain"
)

const zoneColumns = `id, name, city, type, latitude, longitude, avg_decibels, rating,
	description, amenities, best_time, created_by, created_unix, updated_unix`

// ZoneRepository implements application.ZoneRepository on SQL.
type ZoneRepository struct {
	store *Store
}

var _ application.ZoneRepository = (*ZoneRepository)(nil)

func (r *ZoneRepository) Create(ctx context.Context, zone *domain.QuietZone) error {
	amenities, err := encodeAmenities(zone.Amenities)
	if err != nil {
		return err
	}
	query := r.store.rebind(`INSERT INTO quiet_zones (
		id, name, city, type, latitude, longitude, avg_decibels, rating,
		description, amenities, best_time, created_by, created_unix, updated_unix
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = r.store.db.ExecContext(ctx, query,
		zone.ID,
		zone.Name,
		zone.City,
		zone.Type.String(),
		zone.Latitude,
		zone.Longitude,
		nullInt(zone.AvgDecibels),
		zone.Rating,
		nullString(zone.Description),
		amenities,
		nullString(zone.BestTime),
		nullString(zone.CreatedBy),
		zone.CreatedAt.UnixNano(),
		zone.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert zone %s: %w", zone.ID, err)
	}
	return nil
}

func (r *ZoneRepository) FindByID(ctx context.Context, id string) (*domain.QuietZone, error) {
	query := r.store.rebind(`SELECT ` + zoneColumns + ` FROM quiet_zones WHERE id = ?`)
	zone, err := scanZone(r.store.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select zone %s: %w", id, err)
	}
	return &zone, nil
}

func (r *ZoneRepository) Find(ctx context.Context, filter application.ZoneFilter) ([]domain.QuietZone, error) {
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 3)
	if filter.City != "" {
		clauses = append(clauses, "city = ?")
		args = append(args, filter.City)
	}
	if filter.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, filter.Type.String())
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}
	query := r.store.rebind(`SELECT ` + zoneColumns + ` FROM quiet_zones` + where + ` ORDER BY rating DESC, name LIMIT ?`)
	return r.query(ctx, query, append(args, filter.Limit)...)
}

func (r *ZoneRepository) All(ctx context.Context, city string) ([]domain.QuietZone, error) {
	if city == "" {
		return r.query(ctx, `SELECT `+zoneColumns+` FROM quiet_zones ORDER BY created_unix, id`)
	}
	query := r.store.rebind(`SELECT ` + zoneColumns + ` FROM quiet_zones WHERE city = ? ORDER BY created_unix, id`)
	return r.query(ctx, query, city)
}

func (r *ZoneRepository) Count(ctx context.Context, city string) (int, error) {
	var (
		n   int
		err error
	)
	if city == "" {
		err = r.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quiet_zones`).Scan(&n)
	} else {
		err = r.store.db.QueryRowContext(ctx, r.store.rebind(`SELECT COUNT(*) FROM quiet_zones WHERE city = ?`), city).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count zones: %w", err)
	}
	return n, nil
}

// UpsertRating は評価の挿入/上書きとゾーン平均の再計算を1トランザクションで行う。
// PostgreSQL ではゾーン行を FOR UPDATE でロックし、同一ゾーンへの並行評価を直列化する。
func (r *ZoneRepository) UpsertRating(ctx context.Context, rating *domain.ZoneRating) (float64, error) {
	var avg float64
	err := r.store.withTx(ctx, func(tx *sql.Tx) error {
		lock := `SELECT id FROM quiet_zones WHERE id = ?`
		if r.store.postgres {
			lock += ` FOR UPDATE`
		}
		var zoneID string
		if err := tx.QueryRowContext(ctx, r.store.rebind(lock), rating.ZoneID).Scan(&zoneID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("lock zone %s: %w", rating.ZoneID, err)
		}

		upsert := r.store.rebind(`INSERT INTO zone_ratings (id, zone_id, user_id, rating, comment, created_unix, updated_unix)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (zone_id, user_id) DO UPDATE SET
				rating = excluded.rating,
				comment = excluded.comment,
				updated_unix = excluded.updated_unix`)
		if _, err := tx.ExecContext(ctx, upsert,
			rating.ID,
			rating.ZoneID,
			rating.UserID,
			rating.Rating.Int(),
			nullString(rating.Comment),
			rating.CreatedAt.UnixNano(),
			rating.UpdatedAt.UnixNano(),
		); err != nil {
			return fmt.Errorf("upsert rating: %w", err)
		}

		var mean sql.NullFloat64
		avgQuery := r.store.rebind(`SELECT AVG(CAST(rating AS DOUBLE PRECISION)) FROM zone_ratings WHERE zone_id = ?`)
		if err := tx.QueryRowContext(ctx, avgQuery, rating.ZoneID).Scan(&mean); err != nil {
			return fmt.Errorf("average rating: %w", err)
		}
		avg = mean.Float64

		update := r.store.rebind(`UPDATE quiet_zones SET rating = ?, updated_unix = ? WHERE id = ?`)
		if _, err := tx.ExecContext(ctx, update, avg, rating.UpdatedAt.UnixNano(), rating.ZoneID); err != nil {
			return fmt.Errorf("update zone rating: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return avg, nil
}

func (r *ZoneRepository) ListRatings(ctx context.Context, zoneID string) ([]domain.ZoneRating, error) {
	query := r.store.rebind(`SELECT id, zone_id, user_id, rating, comment, created_unix, updated_unix
		FROM zone_ratings WHERE zone_id = ? ORDER BY updated_unix DESC, id`)
	rows, err := r.store.db.QueryContext(ctx, query, zoneID)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer rows.Close()

	ratings := make([]domain.ZoneRating, 0)
	for rows.Next() {
		var (
			rt          domain.ZoneRating
			value       int
			comment     sql.NullString
			createdUnix int64
			updatedUnix int64
		)
		if err := rows.Scan(&rt.ID, &rt.ZoneID, &rt.UserID, &value, &comment, &createdUnix, &updatedUnix); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		rt.Rating = domain.RatingValue(value)
		rt.Comment = comment.String
		rt.CreatedAt = fromUnixNano(createdUnix)
		rt.UpdatedAt = fromUnixNano(updatedUnix)
		ratings = append(ratings, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}
	return ratings, nil
}

func (r *ZoneRepository) query(ctx context.Context, query string, args ...any) ([]domain.QuietZone, error) {
	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query zones: %w", err)
	}
	defer rows.Close()

	zones := make([]domain.QuietZone, 0)
	for rows.Next() {
		zone, err := scanZone(rows)
		if err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		zones = append(zones, zone)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate zones: %w", err)
	}
	return zones, nil
}

func scanZone(row rowScanner) (domain.QuietZone, error) {
	var (
		zone        domain.QuietZone
		zoneType    string
		avg         sql.NullInt64
		description sql.NullString
		amenities   sql.NullString
		bestTime    sql.NullString
		createdBy   sql.NullString
		createdUnix int64
		updatedUnix int64
	)
	if err := row.Scan(
		&zone.ID,
		&zone.Name,
		&zone.City,
		&zoneType,
		&zone.Latitude,
		&zone.Longitude,
		&avg,
		&zone.Rating,
		&description,
		&amenities,
		&bestTime,
		&createdBy,
		&createdUnix,
		&updatedUnix,
	); err != nil {
		return domain.QuietZone{}, err
	}

	list, err := decodeAmenities(amenities.String)
	if err != nil {
		return domain.QuietZone{}, fmt.Errorf("zone %s amenities: %w", zone.ID, err)
	}
	zone.Type = domain.ZoneType(zoneType)
	if avg.Valid {
		v := int(avg.Int64)
		zone.AvgDecibels = &v
	}
	zone.Description = description.String
	zone.Amenities = list
	zone.BestTime = bestTime.String
	zone.CreatedBy = createdBy.String
	zone.CreatedAt = fromUnixNano(createdUnix)
	zone.UpdatedAt = fromUnixNano(updatedUnix)
	return zone, nil
}

// amenities are stored as a JSON array in a TEXT column.
func encodeAmenities(list domain.AmenityList) (string, error) {
	if len(list) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(list.Strings())
	if err != nil {
		return "", fmt.Errorf("encode amenities: %w", err)
	}
	return string(b), nil
}

func decodeAmenities(raw string) (domain.AmenityList, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.AmenityList{}, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, err
	}
	return domain.AmenityList(list), nil
}
