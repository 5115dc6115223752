package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/repository"
	apperrors "github.com/spec-kit/request-desk/pkg/util"
)

// Transactor runs fn inside a database transaction.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier delivers user-facing notifications. Calls are fire-and-forget:
// implementations log their own failures.
type Notifier interface {
	NotifyAssignment(ctx context.Context, req *domain.Request, assigneeID string, actor domain.Actor)
	NotifyBroadcast(ctx context.Context, req *domain.Request, recipientIDs []string)
	NotifyStatusChange(ctx context.Context, req *domain.Request, from domain.RequestState, recipientIDs []string, actor domain.Actor)
	NotifyTransfer(ctx context.Context, fromUserID string, movedTo map[string][]string, reason string, actor domain.Actor)
}

// Archiver moves terminal requests into history.
type Archiver interface {
	Archive(ctx context.Context, req *domain.Request) error
}

// StatisticsCache caches a month of statistic rows.
type StatisticsCache interface {
	GetMonth(ctx context.Context, year, month int) ([]repository.AreaStatistic, bool, error)
	SetMonth(ctx context.Context, year, month int, rows []repository.AreaStatistic) error
	InvalidateMonth(ctx context.Context, year, month int) error
}

// auditor appends audit entries. Failures are logged and never abort the caller.
type auditor struct {
	repo   repository.AuditRepository
	logger *zap.Logger
}

func (a auditor) record(ctx context.Context, entry domain.AuditEntry) {
	if a.repo == nil {
		return
	}
	if err := a.repo.Append(ctx, &entry); err != nil {
		a.logger.Warn("audit append failed",
			zap.String("entity_type", string(entry.EntityType)),
			zap.String("entity_id", entry.EntityID),
			zap.String("kind", string(entry.Kind)),
			zap.Error(err))
	}
}

func requestAudit(req *domain.Request, kind domain.ChangeKind, field string, oldValue, newValue *string, actor domain.Actor) domain.AuditEntry {
	return domain.AuditEntry{
		EntityType: domain.EntityRequest,
		EntityID:   req.ID,
		Kind:       kind,
		Field:      field,
		OldValue:   oldValue,
		NewValue:   newValue,
		ActorID:    actor.ActorID(),
	}
}

func strPtr(s string) *string {
	return &s
}

func optString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func validMonth(year, month int) error {
	if month < 1 || month > 12 || year < 2000 || year > 9999 {
		return apperrors.NewValidationError("invalid period", map[string]any{"year": year, "month": month})
	}
	return nil
}

func nowFunc(clock func() time.Time) func() time.Time {
	if clock != nil {
		return clock
	}
	return time.Now
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger != nil {
		return logger
	}
	return zap.NewNop()
}

func uniqueIDs(ids ...string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func without(ids []string, exclude string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}
