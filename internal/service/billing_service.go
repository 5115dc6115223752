package service

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/policy"
	"github.com/spec-kit/request-desk/internal/repository"
	"github.com/spec-kit/request-desk/internal/worktime"
	apperrors "github.com/spec-kit/request-desk/pkg/util"
)

// BillingService generates and advances monthly billing periods.
type BillingService struct {
	tx          Transactor
	billing     repository.BillingRepository
	clients     repository.ClientRepository
	audit       auditor
	logger      *zap.Logger
	now         func() time.Time
	loc         *time.Location
	concurrency int
}

// BillingDependencies bundles collaborators for the billing service.
type BillingDependencies struct {
	Tx          Transactor
	BillingRepo repository.BillingRepository
	ClientRepo  repository.ClientRepository
	AuditRepo   repository.AuditRepository
	Logger      *zap.Logger
	Clock       func() time.Time
	Location    *time.Location
	Concurrency int
}

// BillingRunResult reports a batch generation.
type BillingRunResult struct {
	Year    int `json:"year"`
	Month   int `json:"month"`
	Periods int `json:"periods"`
	Failed  int `json:"failed"`
}

// NewBillingService constructs the service.
func NewBillingService(deps BillingDependencies) *BillingService {
	logger := loggerOrNop(deps.Logger).With(zap.String("service", "billing"))
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &BillingService{
		tx:          deps.Tx,
		billing:     deps.BillingRepo,
		clients:     deps.ClientRepo,
		audit:       auditor{repo: deps.AuditRepo, logger: logger},
		logger:      logger,
		now:         nowFunc(deps.Clock),
		loc:         loc,
		concurrency: concurrency,
	}
}

func ensureBillingRole(actor domain.Actor) error {
	if !policy.CanManageBilling(actor.Role) {
		return apperrors.NewForbidden("only administrators and directors can manage billing")
	}
	return nil
}

// Generate totals the client's requests created in the month and upserts the
// period. Existing periods keep their state.
func (s *BillingService) Generate(ctx context.Context, clientID string, year, month int, actor domain.Actor) (*domain.BillingPeriod, error) {
	if err := ensureBillingRole(actor); err != nil {
		return nil, err
	}
	if err := validMonth(year, month); err != nil {
		return nil, err
	}
	if _, err := s.clients.GetByID(ctx, clientID); err != nil {
		return nil, apperrors.NotFoundIfNoRows(err, "client", clientID)
	}
	return s.generate(ctx, clientID, year, month)
}

func (s *BillingService) generate(ctx context.Context, clientID string, year, month int) (*domain.BillingPeriod, error) {
	from, to := worktime.MonthWindow(year, time.Month(month), s.loc)
	total, err := s.billing.SumCreatedForClient(ctx, clientID, from, to)
	if err != nil {
		return nil, err
	}
	return s.billing.Upsert(ctx, total, year, month)
}

// GenerateForAllClients runs Generate for every active client. Per-client
// failures are logged and counted.
func (s *BillingService) GenerateForAllClients(ctx context.Context, year, month int, actor domain.Actor) (*BillingRunResult, error) {
	if err := ensureBillingRole(actor); err != nil {
		return nil, err
	}
	if err := validMonth(year, month); err != nil {
		return nil, err
	}
	clients, err := s.clients.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	var generated, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, c := range clients {
		clientID := c.ID
		g.Go(func() error {
			if _, err := s.generate(ctx, clientID, year, month); err != nil {
				failed.Add(1)
				s.logger.Warn("billing generation failed",
					zap.String("client_id", clientID),
					zap.Int("year", year),
					zap.Int("month", month),
					zap.Error(err))
				return nil
			}
			generated.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	result := &BillingRunResult{Year: year, Month: month, Periods: int(generated.Load()), Failed: int(failed.Load())}
	s.logger.Info("billing periods generated",
		zap.String("axis", "created"),
		zap.Int("year", year),
		zap.Int("month", month),
		zap.Int("periods", result.Periods),
		zap.Int("failed", result.Failed))
	return result, nil
}

// GenerateAutomatic bills resolved archived requests by resolution month. It
// writes the same periods as Generate; whichever runs last wins the totals.
func (s *BillingService) GenerateAutomatic(ctx context.Context, year, month int, actor domain.Actor) (*BillingRunResult, error) {
	if err := ensureBillingRole(actor); err != nil {
		return nil, err
	}
	if err := validMonth(year, month); err != nil {
		return nil, err
	}
	from, to := worktime.MonthWindow(year, time.Month(month), s.loc)
	totals, err := s.billing.SumResolvedByClient(ctx, from, to)
	if err != nil {
		return nil, err
	}

	result := &BillingRunResult{Year: year, Month: month}
	for _, total := range totals {
		if _, err := s.billing.Upsert(ctx, total, year, month); err != nil {
			result.Failed++
			s.logger.Warn("automatic billing failed",
				zap.String("client_id", total.ClientID),
				zap.Int("year", year),
				zap.Int("month", month),
				zap.Error(err))
			continue
		}
		result.Periods++
	}
	s.logger.Info("billing periods generated",
		zap.String("axis", "resolved"),
		zap.Int("year", year),
		zap.Int("month", month),
		zap.Int("periods", result.Periods),
		zap.Int("failed", result.Failed))
	return result, nil
}

// Close moves an open period to Closed. Closing a closed period is a no-op.
func (s *BillingService) Close(ctx context.Context, id string, actor domain.Actor) (*domain.BillingPeriod, error) {
	return s.advance(ctx, id, actor, domain.ChangeClose, func(p *domain.BillingPeriod, now time.Time) (bool, error) {
		return p.Close(now)
	})
}

// Invoice closes the period if needed and marks it invoiced.
func (s *BillingService) Invoice(ctx context.Context, id string, actor domain.Actor) (*domain.BillingPeriod, error) {
	return s.advance(ctx, id, actor, domain.ChangeInvoice, func(p *domain.BillingPeriod, now time.Time) (bool, error) {
		return p.Invoice(now), nil
	})
}

func (s *BillingService) advance(ctx context.Context, id string, actor domain.Actor, kind domain.ChangeKind, apply func(*domain.BillingPeriod, time.Time) (bool, error)) (*domain.BillingPeriod, error) {
	if err := ensureBillingRole(actor); err != nil {
		return nil, err
	}
	var (
		period  *domain.BillingPeriod
		from    domain.BillingState
		changed bool
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		period, err = s.billing.GetForUpdate(ctx, id)
		if err != nil {
			return apperrors.NotFoundIfNoRows(err, "billing_period", id)
		}
		from = period.State
		changed, err = apply(period, s.now())
		if err != nil || !changed {
			return err
		}
		return s.billing.UpdateState(ctx, period)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.audit.record(ctx, domain.AuditEntry{
			EntityType: domain.EntityBillingPeriod,
			EntityID:   period.ID,
			Kind:       kind,
			Field:      "state",
			OldValue:   strPtr(string(from)),
			NewValue:   strPtr(string(period.State)),
			ActorID:    actor.ActorID(),
		})
	}
	return period, nil
}

// Get returns one period.
func (s *BillingService) Get(ctx context.Context, id string, actor domain.Actor) (*domain.BillingPeriod, error) {
	if err := ensureBillingRole(actor); err != nil {
		return nil, err
	}
	period, err := s.billing.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundIfNoRows(err, "billing_period", id)
	}
	return period, nil
}

// List returns periods matching filter.
func (s *BillingService) List(ctx context.Context, filter repository.BillingFilter, actor domain.Actor) ([]domain.BillingPeriod, error) {
	if err := ensureBillingRole(actor); err != nil {
		return nil, err
	}
	return s.billing.List(ctx, filter)
}
