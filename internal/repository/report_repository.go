package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/request-desk/internal/domain"
)

// ReportRepository stores reports and their ordered related requests.
type ReportRepository interface {
	Create(ctx context.Context, report *domain.Report) error
	GetByID(ctx context.Context, id string) (*domain.Report, error)
	AppendRequest(ctx context.Context, reportID, requestID string) (bool, error)
}

type reportRepository struct {
	db DB
}

// NewReportRepository builds repository.
func NewReportRepository(db DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *domain.Report) error {
	const query = `
        INSERT INTO reports (client_id, title, body, creator_id)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return conn(ctx, r.db).QueryRow(ctx, query,
		report.ClientID,
		report.Title,
		report.Body,
		report.CreatorID,
	).Scan(&report.ID, &report.CreatedAt)
}

func (r *reportRepository) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	const query = `
        SELECT id, client_id, title, body, creator_id, created_at
        FROM reports WHERE id=$1`
	q := conn(ctx, r.db)
	var report domain.Report
	if err := q.QueryRow(ctx, query, id).Scan(
		&report.ID,
		&report.ClientID,
		&report.Title,
		&report.Body,
		&report.CreatorID,
		&report.CreatedAt,
	); err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `SELECT request_id FROM report_requests WHERE report_id=$1 ORDER BY position ASC`, id)
	if err != nil {
		return nil, err
	}
	related, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	report.RelatedRequestIDs = related
	return &report, nil
}

// AppendRequest links requestID at the end of the report's list. It reports
// false when the pair already existed.
func (r *reportRepository) AppendRequest(ctx context.Context, reportID, requestID string) (bool, error) {
	const query = `
        INSERT INTO report_requests (report_id, request_id, position)
        SELECT $1, $2, COALESCE(MAX(position), 0) + 1 FROM report_requests WHERE report_id = $1
        ON CONFLICT (report_id, request_id) DO NOTHING`
	cmd, err := conn(ctx, r.db).Exec(ctx, query, reportID, requestID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}
