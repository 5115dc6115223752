package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/policy"
	"github.com/spec-kit/request-desk/internal/repository"
	apperrors "github.com/spec-kit/request-desk/pkg/util"
)

// ReportService manages client reports and their related requests.
type ReportService struct {
	tx       Transactor
	reports  repository.ReportRepository
	requests repository.RequestRepository
	history  repository.HistoryRepository
	clients  repository.ClientRepository
	audit    auditor
	policy   *policy.Resolver
}

// ReportDependencies bundles collaborators for the report service.
type ReportDependencies struct {
	Tx          Transactor
	ReportRepo  repository.ReportRepository
	RequestRepo repository.RequestRepository
	HistoryRepo repository.HistoryRepository
	ClientRepo  repository.ClientRepository
	UserRepo    repository.UserRepository
	AuditRepo   repository.AuditRepository
	Logger      *zap.Logger
}

// ReportCreateInput describes report creation payload.
type ReportCreateInput struct {
	ClientID   string
	Title      string
	Body       string
	RequestIDs []string
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	logger := loggerOrNop(deps.Logger).With(zap.String("service", "reports"))
	return &ReportService{
		tx:       deps.Tx,
		reports:  deps.ReportRepo,
		requests: deps.RequestRepo,
		history:  deps.HistoryRepo,
		clients:  deps.ClientRepo,
		audit:    auditor{repo: deps.AuditRepo, logger: logger},
		policy:   policy.NewResolver(deps.UserRepo),
	}
}

// Create stores a report and links the initial requests.
func (s *ReportService) Create(ctx context.Context, input ReportCreateInput, actor domain.Actor) (*domain.Report, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	client, err := s.clients.GetByID(ctx, input.ClientID)
	if err != nil {
		return nil, apperrors.NotFoundIfNoRows(err, "client", input.ClientID)
	}
	ok, err := s.policy.CanView(ctx, actor, policy.ClientResource(client))
	if err != nil {
		return nil, err
	}
	if !ok && !policy.IsPrivileged(actor.Role) {
		return nil, apperrors.NewForbidden("client is not visible to you")
	}

	report := &domain.Report{
		ClientID:  client.ID,
		Title:     title,
		Body:      input.Body,
		CreatorID: actor.UserID,
	}
	var added []string
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.reports.Create(ctx, report); err != nil {
			return err
		}
		var err error
		added, err = s.link(ctx, report, input.RequestIDs)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.record(ctx, domain.AuditEntry{
		EntityType: domain.EntityReport,
		EntityID:   report.ID,
		Kind:       domain.ChangeInsert,
		Field:      "title",
		NewValue:   strPtr(report.Title),
		ActorID:    actor.ActorID(),
	})
	s.recordLinks(ctx, report, added, actor)
	return report, nil
}

// LinkRequests appends requests to the report. Already linked ids are ignored
// and the existing order is kept.
func (s *ReportService) LinkRequests(ctx context.Context, reportID string, requestIDs []string, actor domain.Actor) (*domain.Report, error) {
	var (
		report *domain.Report
		added  []string
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		report, err = s.reports.GetByID(ctx, reportID)
		if err != nil {
			return apperrors.NotFoundIfNoRows(err, "report", reportID)
		}
		if report.CreatorID != actor.UserID && !policy.IsPrivileged(actor.Role) {
			return apperrors.NewForbidden("only the author or a manager can edit the report")
		}
		added, err = s.link(ctx, report, requestIDs)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recordLinks(ctx, report, added, actor)
	return report, nil
}

func (s *ReportService) link(ctx context.Context, report *domain.Report, requestIDs []string) ([]string, error) {
	candidates := report.Link(requestIDs...)
	added := make([]string, 0, len(candidates))
	for _, id := range candidates {
		clientID, err := s.requestClient(ctx, id)
		if err != nil {
			return nil, err
		}
		if clientID != report.ClientID {
			return nil, apperrors.NewValidationError("request belongs to another client", map[string]any{
				"request_id": id,
			})
		}
		inserted, err := s.reports.AppendRequest(ctx, report.ID, id)
		if err != nil {
			return nil, err
		}
		if inserted {
			added = append(added, id)
		}
	}
	return added, nil
}

// requestClient resolves the client of an active or archived request.
func (s *ReportService) requestClient(ctx context.Context, id string) (string, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err == nil {
		return req.ClientID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}
	h, err := s.history.GetByOriginalID(ctx, id)
	if err != nil {
		return "", apperrors.NotFoundIfNoRows(err, "request", id)
	}
	return h.ClientID, nil
}

func (s *ReportService) recordLinks(ctx context.Context, report *domain.Report, added []string, actor domain.Actor) {
	for _, id := range added {
		s.audit.record(ctx, domain.AuditEntry{
			EntityType: domain.EntityReport,
			EntityID:   report.ID,
			Kind:       domain.ChangeLink,
			Field:      "related_requests",
			NewValue:   strPtr(id),
			ActorID:    actor.ActorID(),
		})
	}
}

// Get returns a report to its author, a manager, or a user of its client.
func (s *ReportService) Get(ctx context.Context, id string, actor domain.Actor) (*domain.Report, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundIfNoRows(err, "report", id)
	}
	if report.CreatorID == actor.UserID || actor.Role == domain.RoleAdmin {
		return report, nil
	}
	client, err := s.clients.GetByID(ctx, report.ClientID)
	if err != nil {
		return nil, apperrors.NotFoundIfNoRows(err, "client", report.ClientID)
	}
	ok, err := s.policy.CanView(ctx, actor, policy.ClientResource(client))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewForbidden("report is not visible to you")
	}
	return report, nil
}
