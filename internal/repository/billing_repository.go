package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/request-desk/internal/domain"
)

// BillingFilter captures list parameters for billing periods.
type BillingFilter struct {
	ClientID *string
	Year     *int
	Month    *int
	States   []domain.BillingState
	Limit    int
	Offset   int
}

// BillingRepository stores billing periods and computes their totals.
type BillingRepository interface {
	Upsert(ctx context.Context, total domain.ClientTotal, year, month int) (*domain.BillingPeriod, error)
	GetByID(ctx context.Context, id string) (*domain.BillingPeriod, error)
	GetForUpdate(ctx context.Context, id string) (*domain.BillingPeriod, error)
	UpdateState(ctx context.Context, period *domain.BillingPeriod) error
	List(ctx context.Context, filter BillingFilter) ([]domain.BillingPeriod, error)
	SumCreatedForClient(ctx context.Context, clientID string, from, to time.Time) (domain.ClientTotal, error)
	SumResolvedByClient(ctx context.Context, from, to time.Time) ([]domain.ClientTotal, error)
}

type billingRepository struct {
	db DB
}

// NewBillingRepository builds repository.
func NewBillingRepository(db DB) BillingRepository {
	return &billingRepository{db: db}
}

var billingColumns = []string{
	"id", "client_id", "year", "month", "total_requests", "total_cost", "state",
	"closed_at", "invoiced_at", "created_at", "updated_at",
}

// Upsert creates an open period or overwrites the totals of an existing one.
// The state of an existing period is never touched.
func (r *billingRepository) Upsert(ctx context.Context, total domain.ClientTotal, year, month int) (*domain.BillingPeriod, error) {
	const query = `
        INSERT INTO billing_periods (client_id, year, month, total_requests, total_cost, state)
        VALUES ($1,$2,$3,$4,$5,'OPEN')
        ON CONFLICT (client_id, year, month) DO UPDATE SET
            total_requests = EXCLUDED.total_requests,
            total_cost = EXCLUDED.total_cost,
            updated_at = NOW()
        RETURNING id, client_id, year, month, total_requests, total_cost, state,
            closed_at, invoiced_at, created_at, updated_at`
	return scanBilling(conn(ctx, r.db).QueryRow(ctx, query,
		total.ClientID, year, month, total.TotalRequests, total.TotalCost))
}

func (r *billingRepository) GetByID(ctx context.Context, id string) (*domain.BillingPeriod, error) {
	query, args, err := psql.Select(billingColumns...).From("billing_periods").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	return scanBilling(conn(ctx, r.db).QueryRow(ctx, query, args...))
}

func (r *billingRepository) GetForUpdate(ctx context.Context, id string) (*domain.BillingPeriod, error) {
	query, args, err := psql.Select(billingColumns...).From("billing_periods").
		Where(sq.Eq{"id": id}).Suffix("FOR UPDATE").ToSql()
	if err != nil {
		return nil, err
	}
	return scanBilling(conn(ctx, r.db).QueryRow(ctx, query, args...))
}

func (r *billingRepository) UpdateState(ctx context.Context, period *domain.BillingPeriod) error {
	const query = `
        UPDATE billing_periods SET state=$1, closed_at=$2, invoiced_at=$3, updated_at=NOW()
        WHERE id=$4`
	cmd, err := conn(ctx, r.db).Exec(ctx, query, period.State, period.ClosedAt, period.InvoicedAt, period.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *billingRepository) List(ctx context.Context, filter BillingFilter) ([]domain.BillingPeriod, error) {
	q := psql.Select(billingColumns...).From("billing_periods")
	if filter.ClientID != nil {
		q = q.Where(sq.Eq{"client_id": *filter.ClientID})
	}
	if filter.Year != nil {
		q = q.Where(sq.Eq{"year": *filter.Year})
	}
	if filter.Month != nil {
		q = q.Where(sq.Eq{"month": *filter.Month})
	}
	if len(filter.States) > 0 {
		q = q.Where(sq.Eq{"state": filter.States})
	}
	q = q.OrderBy("year DESC", "month DESC", "client_id ASC").
		Limit(pageLimit(filter.Limit)).Offset(pageOffset(filter.Offset))

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.BillingPeriod
	for rows.Next() {
		p, err := scanBilling(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

// SumCreatedForClient totals the client's requests created in [from, to),
// active and archived alike.
func (r *billingRepository) SumCreatedForClient(ctx context.Context, clientID string, from, to time.Time) (domain.ClientTotal, error) {
	const query = `
        SELECT COUNT(*), COALESCE(SUM(cost), 0) FROM (
            SELECT cost FROM requests WHERE client_id = $1 AND created_at >= $2 AND created_at < $3
            UNION ALL
            SELECT cost FROM request_history WHERE client_id = $1 AND created_at >= $2 AND created_at < $3
        ) AS billed`
	total := domain.ClientTotal{ClientID: clientID}
	if err := conn(ctx, r.db).QueryRow(ctx, query, clientID, from, to).Scan(&total.TotalRequests, &total.TotalCost); err != nil {
		return domain.ClientTotal{}, fmt.Errorf("sum created requests: %w", err)
	}
	return total, nil
}

// SumResolvedByClient totals resolved archived requests per client by
// resolution time in [from, to).
func (r *billingRepository) SumResolvedByClient(ctx context.Context, from, to time.Time) ([]domain.ClientTotal, error) {
	const query = `
        SELECT client_id, COUNT(*), COALESCE(SUM(cost), 0)
        FROM request_history
        WHERE state = 'RESOLVED' AND resolved_at >= $1 AND resolved_at < $2
        GROUP BY client_id
        ORDER BY client_id`
	rows, err := conn(ctx, r.db).Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ClientTotal
	for rows.Next() {
		var t domain.ClientTotal
		if err := rows.Scan(&t.ClientID, &t.TotalRequests, &t.TotalCost); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func scanBilling(row pgx.Row) (*domain.BillingPeriod, error) {
	var p domain.BillingPeriod
	if err := row.Scan(
		&p.ID,
		&p.ClientID,
		&p.Year,
		&p.Month,
		&p.TotalRequests,
		&p.TotalCost,
		&p.State,
		&p.ClosedAt,
		&p.InvoicedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
