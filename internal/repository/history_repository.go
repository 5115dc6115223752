package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/policy"
)

// HistoryFilter captures list parameters for archived requests.
type HistoryFilter struct {
	States       []domain.RequestState
	Areas        []domain.Area
	ClientID     *string
	AssigneeID   *string
	CreatorID    *string
	ResolvedFrom *time.Time
	ResolvedTo   *time.Time
	Scope        *policy.Scope
	Limit        int
	Offset       int
}

// HistoryRepository stores archived requests.
type HistoryRepository interface {
	Insert(ctx context.Context, h *domain.RequestHistory) error
	GetByOriginalID(ctx context.Context, requestID string) (*domain.RequestHistory, error)
	List(ctx context.Context, filter HistoryFilter) ([]domain.RequestHistory, error)
	ListClosedByAssignee(ctx context.Context, userID string, from, to time.Time) ([]domain.RequestHistory, error)
}

type historyRepository struct {
	db DB
}

// NewHistoryRepository builds repository.
func NewHistoryRepository(db DB) HistoryRepository {
	return &historyRepository{db: db}
}

var historyColumns = []string{
	"id", "original_request_id", "client_id", "category_id", "description", "extra_description", "cost",
	"area", "state", "creator_id", "assignee_id", "created_at", "accepted_at", "resolved_at",
	"worked_seconds", "archived_at",
}

func (r *historyRepository) Insert(ctx context.Context, h *domain.RequestHistory) error {
	const query = `
        INSERT INTO request_history (original_request_id, client_id, category_id, description, extra_description,
            cost, area, state, creator_id, assignee_id, created_at, accepted_at, resolved_at, worked_seconds, archived_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING id`
	return conn(ctx, r.db).QueryRow(ctx, query,
		h.OriginalRequestID,
		h.ClientID,
		h.CategoryID,
		h.Description,
		h.ExtraDescription,
		h.Cost,
		h.Area,
		h.State,
		h.CreatorID,
		h.AssigneeID,
		h.CreatedAt,
		h.AcceptedAt,
		h.ResolvedAt,
		h.WorkedSeconds,
		h.ArchivedAt,
	).Scan(&h.ID)
}

func (r *historyRepository) GetByOriginalID(ctx context.Context, requestID string) (*domain.RequestHistory, error) {
	query, args, err := psql.Select(historyColumns...).From("request_history").
		Where(sq.Eq{"original_request_id": requestID}).ToSql()
	if err != nil {
		return nil, err
	}
	return scanHistory(conn(ctx, r.db).QueryRow(ctx, query, args...))
}

func (r *historyRepository) List(ctx context.Context, filter HistoryFilter) ([]domain.RequestHistory, error) {
	q := psql.Select(historyColumns...).From("request_history")

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
	if filter.ResolvedFrom != nil {
		q = q.Where(sq.GtOrEq{"resolved_at": *filter.ResolvedFrom})
	}
	if filter.ResolvedTo != nil {
		q = q.Where(sq.Lt{"resolved_at": *filter.ResolvedTo})
	}
	if filter.Scope != nil && !filter.Scope.Unrestricted {
		// Archived rows are never pending, so only ownership applies.
		q = q.Where(sq.Or{
			sq.Eq{"creator_id": filter.Scope.OwnerIDs},
			sq.Eq{"assignee_id": filter.Scope.OwnerIDs},
		})
	}

	q = q.OrderBy("resolved_at DESC").Limit(pageLimit(filter.Limit)).Offset(pageOffset(filter.Offset))

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistories(rows)
}

// ListClosedByAssignee returns every archived row of userID resolved or
// cancelled in [from, to).
func (r *historyRepository) ListClosedByAssignee(ctx context.Context, userID string, from, to time.Time) ([]domain.RequestHistory, error) {
	query, args, err := psql.Select(historyColumns...).From("request_history").
		Where(sq.Eq{"assignee_id": userID}).
		Where(sq.GtOrEq{"resolved_at": from}).
		Where(sq.Lt{"resolved_at": to}).
		OrderBy("resolved_at ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistories(rows)
}

func scanHistory(row pgx.Row) (*domain.RequestHistory, error) {
	var h domain.RequestHistory
	if err := row.Scan(
		&h.ID,
		&h.OriginalRequestID,
		&h.ClientID,
		&h.CategoryID,
		&h.Description,
		&h.ExtraDescription,
		&h.Cost,
		&h.Area,
		&h.State,
		&h.CreatorID,
		&h.AssigneeID,
		&h.CreatedAt,
		&h.AcceptedAt,
		&h.ResolvedAt,
		&h.WorkedSeconds,
		&h.ArchivedAt,
	); err != nil {
		return nil, err
	}
	return &h, nil
}

func scanHistories(rows pgx.Rows) ([]domain.RequestHistory, error) {
	var result []domain.RequestHistory
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *h)
	}
	return result, rows.Err()
}
