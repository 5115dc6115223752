package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/policy"
)

// AreaStatistic pairs a statistic row with its user's area.
type AreaStatistic struct {
	Area domain.Area
	domain.UserStatistic
}

// StatisticRepository stores per-user monthly aggregates.
type StatisticRepository interface {
	Upsert(ctx context.Context, stat *domain.UserStatistic) error
	Get(ctx context.Context, userID string, year, month int) (*domain.UserStatistic, error)
	ListByMonth(ctx context.Context, year, month int, scope *policy.Scope) ([]AreaStatistic, error)
}

type statisticRepository struct {
	db DB
}

// NewStatisticRepository builds repository.
func NewStatisticRepository(db DB) StatisticRepository {
	return &statisticRepository{db: db}
}

// Upsert writes the row keyed by (user, year, month). Recomputing with the
// same inputs leaves the row unchanged apart from calculated_at.
func (r *statisticRepository) Upsert(ctx context.Context, stat *domain.UserStatistic) error {
	const query = `
        INSERT INTO user_statistics (user_id, year, month, created, resolved, cancelled, avg_resolution_hours,
            total_cost, pending, in_progress, paused, calculated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        ON CONFLICT (user_id, year, month) DO UPDATE SET
            created = EXCLUDED.created,
            resolved = EXCLUDED.resolved,
            cancelled = EXCLUDED.cancelled,
            avg_resolution_hours = EXCLUDED.avg_resolution_hours,
            total_cost = EXCLUDED.total_cost,
            pending = EXCLUDED.pending,
            in_progress = EXCLUDED.in_progress,
            paused = EXCLUDED.paused,
            calculated_at = EXCLUDED.calculated_at
        RETURNING id`
	return conn(ctx, r.db).QueryRow(ctx, query,
		stat.UserID,
		stat.Year,
		stat.Month,
		stat.Created,
		stat.Resolved,
		stat.Cancelled,
		stat.AvgResolutionHours,
		stat.TotalCost,
		stat.Pending,
		stat.InProgress,
		stat.Paused,
		stat.CalculatedAt,
	).Scan(&stat.ID)
}

var statisticColumns = []string{
	"s.id", "s.user_id", "s.year", "s.month", "s.created", "s.resolved", "s.cancelled",
	"s.avg_resolution_hours", "s.total_cost", "s.pending", "s.in_progress", "s.paused", "s.calculated_at",
}

func (r *statisticRepository) Get(ctx context.Context, userID string, year, month int) (*domain.UserStatistic, error) {
	query, args, err := psql.Select(statisticColumns...).From("user_statistics s").
		Where(sq.Eq{"s.user_id": userID, "s.year": year, "s.month": month}).ToSql()
	if err != nil {
		return nil, err
	}
	var s domain.UserStatistic
	if err := scanStatistic(conn(ctx, r.db).QueryRow(ctx, query, args...), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByMonth joins each row with its user's area.
func (r *statisticRepository) ListByMonth(ctx context.Context, year, month int, scope *policy.Scope) ([]AreaStatistic, error) {
	q := psql.Select(append([]string{"u.area"}, statisticColumns...)...).
		From("user_statistics s").
		Join("users u ON u.id = s.user_id").
		Where(sq.Eq{"s.year": year, "s.month": month}).
		OrderBy("u.area ASC", "s.user_id ASC")
	if scope != nil && !scope.Unrestricted {
		q = q.Where(sq.Eq{"s.user_id": scope.OwnerIDs})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AreaStatistic
	for rows.Next() {
		var item AreaStatistic
		if err := scanStatistic(rows, &item.UserStatistic, &item.Area); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func scanStatistic(row pgx.Row, s *domain.UserStatistic, leading ...any) error {
	dest := append(leading,
		&s.ID,
		&s.UserID,
		&s.Year,
		&s.Month,
		&s.Created,
		&s.Resolved,
		&s.Cancelled,
		&s.AvgResolutionHours,
		&s.TotalCost,
		&s.Pending,
		&s.InProgress,
		&s.Paused,
		&s.CalculatedAt,
	)
	return row.Scan(dest...)
}
