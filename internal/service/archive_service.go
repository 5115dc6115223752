package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/repository"
	apperrors "github.com/spec-kit/request-desk/pkg/util"
)

const (
	sweepBatchSize   = 100
	recomputeTimeout = 30 * time.Second
)

// StatisticsCalculator recomputes one user's month.
type StatisticsCalculator interface {
	Calculate(ctx context.Context, userID string, year, month int, actor domain.Actor) (*domain.UserStatistic, error)
}

// ArchiveService moves terminal requests into history.
type ArchiveService struct {
	tx       Transactor
	requests repository.RequestRepository
	history  repository.HistoryRepository
	audit    auditor
	stats    StatisticsCalculator
	logger   *zap.Logger
	now      func() time.Time
	loc      *time.Location

	wg sync.WaitGroup
}

// ArchiveDependencies bundles collaborators for the archive service.
type ArchiveDependencies struct {
	Tx          Transactor
	RequestRepo repository.RequestRepository
	HistoryRepo repository.HistoryRepository
	AuditRepo   repository.AuditRepository
	Statistics  StatisticsCalculator
	Logger      *zap.Logger
	Clock       func() time.Time
	Location    *time.Location
}

// NewArchiveService constructs the service.
func NewArchiveService(deps ArchiveDependencies) *ArchiveService {
	logger := loggerOrNop(deps.Logger).With(zap.String("service", "archive"))
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &ArchiveService{
		tx:       deps.Tx,
		requests: deps.RequestRepo,
		history:  deps.HistoryRepo,
		audit:    auditor{repo: deps.AuditRepo, logger: logger},
		stats:    deps.Statistics,
		logger:   logger,
		now:      nowFunc(deps.Clock),
		loc:      loc,
	}
}

// Archive inserts the history snapshot and deletes the active row in one
// transaction. Archiving a request that is already in history is a no-op.
func (s *ArchiveService) Archive(ctx context.Context, req *domain.Request) error {
	if !req.IsTerminal() {
		return apperrors.NewValidationError("only closed requests can be archived", map[string]any{
			"request_id": req.ID,
			"state":      req.State,
		})
	}

	var (
		snapshot domain.RequestHistory
		archived bool
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.requests.GetForUpdate(ctx, req.ID)
		if errors.Is(err, pgx.ErrNoRows) {
			if _, herr := s.history.GetByOriginalID(ctx, req.ID); herr != nil {
				return apperrors.NotFoundIfNoRows(herr, "request", req.ID)
			}
			return nil
		}
		if err != nil {
			return err
		}
		if !current.IsTerminal() {
			return apperrors.NewValidationError("request was reopened before archival", map[string]any{
				"request_id": req.ID,
				"state":      current.State,
			})
		}

		snapshot = current.ToHistory(s.now())
		if err := s.history.Insert(ctx, &snapshot); err != nil {
			return err
		}
		if err := s.requests.Delete(ctx, current.ID); err != nil {
			return err
		}
		archived = true
		return nil
	})
	if err != nil {
		return err
	}
	if !archived {
		return nil
	}

	s.audit.record(ctx, domain.AuditEntry{
		EntityType: domain.EntityRequest,
		EntityID:   snapshot.OriginalRequestID,
		Kind:       domain.ChangeArchive,
		Field:      "state",
		NewValue:   strPtr(string(snapshot.State)),
		Note:       "moved to history",
	})
	s.recompute(ctx, snapshot)
	return nil
}

// recompute refreshes the statistics of the users involved in h for its
// resolution month. It runs after the response and never fails the caller.
func (s *ArchiveService) recompute(ctx context.Context, h domain.RequestHistory) {
	if s.stats == nil {
		return
	}
	resolved := h.ResolvedAt.In(s.loc)
	year, month := resolved.Year(), int(resolved.Month())

	userIDs := []string{h.CreatorID}
	if h.AssigneeID != nil {
		userIDs = append(userIDs, *h.AssigneeID)
	}
	base := context.WithoutCancel(ctx)
	for _, userID := range uniqueIDs(userIDs...) {
		s.wg.Add(1)
		go func(userID string) {
			defer s.wg.Done()
			ctx, cancel := context.WithTimeout(base, recomputeTimeout)
			defer cancel()
			if _, err := s.stats.Calculate(ctx, userID, year, month, domain.SystemActor); err != nil {
				s.logger.Warn("statistics recompute after archive failed",
					zap.String("request_id", h.OriginalRequestID),
					zap.String("user_id", userID),
					zap.Int("year", year),
					zap.Int("month", month),
					zap.Error(err))
			}
		}(userID)
	}
}

// SweepTerminal archives closed requests still left in the active table. It
// returns how many were archived; per-request failures are logged and joined.
func (s *ArchiveService) SweepTerminal(ctx context.Context) (int, error) {
	var (
		total int
		errs  []error
	)
	for {
		batch, err := s.requests.ListTerminal(ctx, sweepBatchSize)
		if err != nil {
			return total, err
		}
		archived := 0
		for i := range batch {
			if err := s.Archive(ctx, &batch[i]); err != nil {
				s.logger.Warn("sweep archive failed", zap.String("request_id", batch[i].ID), zap.Error(err))
				errs = append(errs, err)
				continue
			}
			archived++
		}
		total += archived
		if archived == 0 || len(batch) < sweepBatchSize {
			break
		}
	}
	if total > 0 {
		s.logger.Info("archived terminal requests", zap.Int("count", total))
	}
	return total, errors.Join(errs...)
}

// Shutdown waits for background recomputes or until ctx is done.
func (s *ArchiveService) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
