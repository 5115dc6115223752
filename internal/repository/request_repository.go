package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/policy"
)

// RequestFilter captures list parameters for active requests.
type RequestFilter struct {
	States      []domain.RequestState
	Areas       []domain.Area
	ClientID    *string
	AssigneeID  *string
	CreatorID   *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Scope       *policy.Scope
	Limit       int
	Offset      int
}

// OpenCounts are a user's current queue sizes.
type OpenCounts struct {
	Pending    int
	InProgress int
	Paused     int
}

// RequestRepository encapsulates active request persistence.
type RequestRepository interface {
	Create(ctx context.Context, req *domain.Request) error
	Update(ctx context.Context, req *domain.Request) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Request, error)
	GetForUpdate(ctx context.Context, id string) (*domain.Request, error)
	List(ctx context.Context, filter RequestFilter) ([]domain.Request, error)
	ListTerminal(ctx context.Context, limit int) ([]domain.Request, error)
	CountOpenByUser(ctx context.Context, userID string) (OpenCounts, error)
	CountCreatedBy(ctx context.Context, userID string, from, to time.Time) (int, error)
}

type requestRepository struct {
	db DB
}

// NewRequestRepository instantiates repository.
func NewRequestRepository(db DB) RequestRepository {
	return &requestRepository{db: db}
}

var requestColumns = []string{
	"id", "client_id", "category_id", "description", "extra_description", "cost", "area", "state",
	"creator_id", "assignee_id", "created_at", "accepted_at", "resolved_at", "worked_seconds",
	"timer_running", "timer_started_at", "timer_paused_at", "updated_at",
}

func (r *requestRepository) Create(ctx context.Context, req *domain.Request) error {
	const query = `
        INSERT INTO requests (client_id, category_id, description, extra_description, cost, area, state,
            creator_id, assignee_id, accepted_at, worked_seconds, timer_running, timer_started_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at, updated_at`
	return conn(ctx, r.db).QueryRow(ctx, query,
		req.ClientID,
		req.CategoryID,
		req.Description,
		req.ExtraDescription,
		req.Cost,
		req.Area,
		req.State,
		req.CreatorID,
		req.AssigneeID,
		req.AcceptedAt,
		req.WorkedSeconds,
		req.TimerRunning,
		req.TimerStartedAt,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
}

func (r *requestRepository) Update(ctx context.Context, req *domain.Request) error {
	const query = `
        UPDATE requests SET category_id=$1, description=$2, extra_description=$3, cost=$4, state=$5,
            assignee_id=$6, accepted_at=$7, resolved_at=$8, worked_seconds=$9, timer_running=$10,
            timer_started_at=$11, timer_paused_at=$12, updated_at=NOW()
        WHERE id=$13`
	cmd, err := conn(ctx, r.db).Exec(ctx, query,
		req.CategoryID,
		req.Description,
		req.ExtraDescription,
		req.Cost,
		req.State,
		req.AssigneeID,
		req.AcceptedAt,
		req.ResolvedAt,
		req.WorkedSeconds,
		req.TimerRunning,
		req.TimerStartedAt,
		req.TimerPausedAt,
		req.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *requestRepository) Delete(ctx context.Context, id string) error {
	cmd, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM requests WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	query, args, err := psql.Select(requestColumns...).From("requests").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	return scanRequest(conn(ctx, r.db).QueryRow(ctx, query, args...))
}

// GetForUpdate locks the row until the surrounding transaction ends.
func (r *requestRepository) GetForUpdate(ctx context.Context, id string) (*domain.Request, error) {
	query, args, err := psql.Select(requestColumns...).From("requests").
		Where(sq.Eq{"id": id}).Suffix("FOR UPDATE").ToSql()
	if err != nil {
		return nil, err
	}
	return scanRequest(conn(ctx, r.db).QueryRow(ctx, query, args...))
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) ([]domain.Request, error) {
	q := psql.Select(requestColumns...).From("requests")

	if len(filter.States) > 0 {
		q = q.Where(sq.Eq{"state": filter.States})
	}
	if len(filter.Areas) > 0 {
		q = q.Where(sq.Eq{"area": filter.Areas})
	}
	if filter.ClientID != nil {
		q = q.Where(sq.Eq{"client_id": *filter.ClientID})
	}
	if filter.AssigneeID != nil {
		q = q.Where(sq.Eq{"assignee_id": *filter.AssigneeID})
	}
	if filter.CreatorID != nil {
		q = q.Where(sq.Eq{"creator_id": *filter.CreatorID})
	}
	if filter.CreatedFrom != nil {
		q = q.Where(sq.GtOrEq{"created_at": *filter.CreatedFrom})
	}
	if filter.CreatedTo != nil {
		q = q.Where(sq.Lt{"created_at": *filter.CreatedTo})
	}
	if cond := scopeCondition(filter.Scope); cond != nil {
		q = q.Where(cond)
	}

	q = q.OrderBy("created_at DESC").Limit(pageLimit(filter.Limit)).Offset(pageOffset(filter.Offset))

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

// ListTerminal returns resolved or cancelled rows still in the active table.
func (r *requestRepository) ListTerminal(ctx context.Context, limit int) ([]domain.Request, error) {
	query, args, err := psql.Select(requestColumns...).From("requests").
		Where(sq.Eq{"state": []domain.RequestState{domain.StateResolved, domain.StateCancelled}}).
		OrderBy("updated_at ASC").
		Limit(pageLimit(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (r *requestRepository) CountOpenByUser(ctx context.Context, userID string) (OpenCounts, error) {
	const query = `
        SELECT
            COUNT(*) FILTER (WHERE state = 'PENDING' AND creator_id = $1),
            COUNT(*) FILTER (WHERE state = 'IN_PROGRESS' AND assignee_id = $1),
            COUNT(*) FILTER (WHERE state = 'PAUSED' AND assignee_id = $1)
        FROM requests
        WHERE creator_id = $1 OR assignee_id = $1`
	var counts OpenCounts
	err := conn(ctx, r.db).QueryRow(ctx, query, userID).Scan(&counts.Pending, &counts.InProgress, &counts.Paused)
	if err != nil {
		return OpenCounts{}, fmt.Errorf("count open requests: %w", err)
	}
	return counts, nil
}

// CountCreatedBy counts requests created in [from, to) across active and archived rows.
func (r *requestRepository) CountCreatedBy(ctx context.Context, userID string, from, to time.Time) (int, error) {
	const query = `
        SELECT
            (SELECT COUNT(*) FROM requests WHERE creator_id = $1 AND created_at >= $2 AND created_at < $3) +
            (SELECT COUNT(*) FROM request_history WHERE creator_id = $1 AND created_at >= $2 AND created_at < $3)`
	var count int
	if err := conn(ctx, r.db).QueryRow(ctx, query, userID, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("count created requests: %w", err)
	}
	return count, nil
}

// scopeCondition translates a policy scope into a WHERE clause. It returns nil
// for unrestricted scopes.
func scopeCondition(scope *policy.Scope) sq.Sqlizer {
	if scope == nil || scope.Unrestricted {
		return nil
	}
	or := sq.Or{
		sq.Eq{"creator_id": scope.OwnerIDs},
		sq.Eq{"assignee_id": scope.OwnerIDs},
	}
	if len(scope.PendingAreas) > 0 {
		or = append(or, sq.And{
			sq.Eq{"state": domain.StatePending},
			sq.Eq{"area": scope.PendingAreas},
		})
	}
	return or
}

func pageLimit(limit int) uint64 {
	if limit <= 0 {
		return 20
	}
	if limit > 500 {
		return 500
	}
	return uint64(limit)
}

func pageOffset(offset int) uint64 {
	if offset < 0 {
		return 0
	}
	return uint64(offset)
}

func scanRequest(row pgx.Row) (*domain.Request, error) {
	var req domain.Request
	if err := row.Scan(
		&req.ID,
		&req.ClientID,
		&req.CategoryID,
		&req.Description,
		&req.ExtraDescription,
		&req.Cost,
		&req.Area,
		&req.State,
		&req.CreatorID,
		&req.AssigneeID,
		&req.CreatedAt,
		&req.AcceptedAt,
		&req.ResolvedAt,
		&req.WorkedSeconds,
		&req.TimerRunning,
		&req.TimerStartedAt,
		&req.TimerPausedAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &req, nil
}

func scanRequests(rows pgx.Rows) ([]domain.Request, error) {
	var result []domain.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}
