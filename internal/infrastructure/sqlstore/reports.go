package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sngm3741/hushmap-services/api/internal/noise/application"
	"github.com/sngm3741/hushmap-services/api/internal/noise/domain"
)

const reportColumns = `id, user_id, city, latitude, longitude, decibel_level, noise_category,
	noise_source, description, occurred_at, created_unix`

// ReportRepository implements application.ReportRepository on SQL.
type ReportRepository struct {
	store *Store
}

var _ application.ReportRepository = (*ReportRepository)(nil)

func (r *ReportRepository) Create(ctx context.Context, report *domain.NoiseReport) error {
	query := r.store.rebind(`INSERT INTO noise_reports (
		id, user_id, city, latitude, longitude, decibel_level, noise_category,
		noise_source, description, occurred_at, occurred_unix, created_unix
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.store.db.ExecContext(ctx, query,
		report.ID,
		nullString(report.ReporterID),
		report.City,
		report.Latitude,
		report.Longitude,
		report.DecibelLevel.Int(),
		report.Category.String(),
		nullString(report.Source),
		nullString(report.Description),
		domain.FormatTimestamp(report.Timestamp),
		report.Timestamp.UnixNano(),
		report.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert report %s: %w", report.ID, err)
	}
	return nil
}

func (r *ReportRepository) FindByID(ctx context.Context, id string) (*domain.NoiseReport, error) {
	query := r.store.rebind(`SELECT ` + reportColumns + ` FROM noise_reports WHERE id = ?`)
	report, err := scanReport(r.store.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select report %s: %w", id, err)
	}
	return &report, nil
}

func (r *ReportRepository) Find(ctx context.Context, filter application.ReportFilter, paging application.Paging) ([]domain.NoiseReport, int, error) {
	where, args := reportWhere(filter)

	var total int
	countQuery := r.store.rebind(`SELECT COUNT(*) FROM noise_reports` + where)
	if err := r.store.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}

	query := r.store.rebind(`SELECT ` + reportColumns + ` FROM noise_reports` + where +
		` ORDER BY occurred_unix DESC, id LIMIT ? OFFSET ?`)
	reports, err := r.query(ctx, query, append(args, paging.Limit, paging.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func (r *ReportRepository) All(ctx context.Context, filter application.ReportFilter) ([]domain.NoiseReport, error) {
	where, args := reportWhere(filter)
	query := r.store.rebind(`SELECT ` + reportColumns + ` FROM noise_reports` + where + ` ORDER BY created_unix, id`)
	return r.query(ctx, query, args...)
}

func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	res, err := r.store.db.ExecContext(ctx, r.store.rebind(`DELETE FROM noise_reports WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete report %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete report %s: %w", id, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ReportRepository) query(ctx context.Context, query string, args ...any) ([]domain.NoiseReport, error) {
	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	reports := make([]domain.NoiseReport, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

func reportWhere(filter application.ReportFilter) (string, []any) {
	clauses := make([]string, 0, 4)
	args := make([]any, 0, 4)
	if filter.City != "" {
		clauses = append(clauses, "city = ?")
		args = append(args, filter.City)
	}
	if filter.Category != "" {
		clauses = append(clauses, "noise_category = ?")
		args = append(args, filter.Category.String())
	}
	if filter.Source != "" {
		clauses = append(clauses, `LOWER(noise_source) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(filter.Source))
	}
	if filter.Since != nil {
		clauses = append(clauses, "occurred_unix >= ?")
		args = append(args, filter.Since.UnixNano())
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (domain.NoiseReport, error) {
	var (
		report      domain.NoiseReport
		userID      sql.NullString
		source      sql.NullString
		description sql.NullString
		decibel     int
		category    string
		occurredAt  string
		createdUnix int64
	)
	if err := row.Scan(
		&report.ID,
		&userID,
		&report.City,
		&report.Latitude,
		&report.Longitude,
		&decibel,
		&category,
		&source,
		&description,
		&occurredAt,
		&createdUnix,
	); err != nil {
		return domain.NoiseReport{}, err
	}

	ts, err := domain.ParseTimestamp(occurredAt)
	if err != nil {
		return domain.NoiseReport{}, fmt.Errorf("report %s has unreadable timestamp %q: %w", report.ID, occurredAt, err)
	}
	report.ReporterID = userID.String
	report.Source = source.String
	report.Description = description.String
	report.DecibelLevel = domain.Decibel(decibel)
	report.Category = domain.NoiseCategory(category)
	report.Timestamp = ts
	report.CreatedAt = fromUnixNano(createdUnix)
	return report, nil
}
