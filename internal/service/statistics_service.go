package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/policy"
	"github.com/spec-kit/request-desk/internal/repository"
	"github.com/spec-kit/request-desk/internal/worktime"
	apperrors "github.com/spec-kit/request-desk/pkg/util"
)

// StatisticsService computes and reads per-user monthly aggregates.
type StatisticsService struct {
	requests    repository.RequestRepository
	history     repository.HistoryRepository
	users       repository.UserRepository
	stats       repository.StatisticRepository
	cache       StatisticsCache
	policy      *policy.Resolver
	logger      *zap.Logger
	now         func() time.Time
	loc         *time.Location
	concurrency int
}

// StatisticsDependencies bundles collaborators for the statistics service.
type StatisticsDependencies struct {
	RequestRepo   repository.RequestRepository
	HistoryRepo   repository.HistoryRepository
	UserRepo      repository.UserRepository
	StatisticRepo repository.StatisticRepository
	Cache         StatisticsCache
	Logger        *zap.Logger
	Clock         func() time.Time
	Location      *time.Location
	Concurrency   int
}

// RecalculateResult reports a batch recompute.
type RecalculateResult struct {
	Year   int `json:"year"`
	Month  int `json:"month"`
	Users  int `json:"users"`
	Failed int `json:"failed"`
}

// AreaSummary is the summary of one area.
type AreaSummary struct {
	Area    domain.Area             `json:"area"`
	Summary domain.StatisticSummary `json:"summary"`
}

// NewStatisticsService constructs the service.
func NewStatisticsService(deps StatisticsDependencies) *StatisticsService {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &StatisticsService{
		requests:    deps.RequestRepo,
		history:     deps.HistoryRepo,
		users:       deps.UserRepo,
		stats:       deps.StatisticRepo,
		cache:       deps.Cache,
		policy:      policy.NewResolver(deps.UserRepo),
		logger:      loggerOrNop(deps.Logger).With(zap.String("service", "statistics")),
		now:         nowFunc(deps.Clock),
		loc:         loc,
		concurrency: concurrency,
	}
}

// Calculate recomputes userID's row for the month and upserts it.
func (s *StatisticsService) Calculate(ctx context.Context, userID string, year, month int, actor domain.Actor) (*domain.UserStatistic, error) {
	if err := validMonth(year, month); err != nil {
		return nil, err
	}
	if !policy.CanManageBilling(actor.Role) && actor.UserID != userID {
		return nil, apperrors.NewForbidden("cannot recompute statistics of another user")
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, apperrors.NotFoundIfNoRows(err, "user", userID)
	}

	from, to := worktime.MonthWindow(year, time.Month(month), s.loc)
	created, err := s.requests.CountCreatedBy(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	closed, err := s.history.ListClosedByAssignee(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	open, err := s.requests.CountOpenByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	stat := summarizeMonth(userID, year, month, created, closed, open)
	stat.CalculatedAt = s.now()
	if err := s.stats.Upsert(ctx, &stat); err != nil {
		return nil, err
	}
	s.invalidate(ctx, year, month)
	return &stat, nil
}

// summarizeMonth folds the closed rows of a month into a statistic.
func summarizeMonth(userID string, year, month, created int, closed []domain.RequestHistory, open repository.OpenCounts) domain.UserStatistic {
	stat := domain.UserStatistic{
		UserID:     userID,
		Year:       year,
		Month:      month,
		Created:    created,
		TotalCost:  decimal.Zero,
		Pending:    open.Pending,
		InProgress: open.InProgress,
		Paused:     open.Paused,
	}
	var (
		hours   float64
		timings int
	)
	for i := range closed {
		h := &closed[i]
		switch h.State {
		case domain.StateResolved:
			stat.Resolved++
			stat.TotalCost = stat.TotalCost.Add(h.Cost)
			if d, ok := h.ResolutionHours(); ok {
				hours += d
				timings++
			}
		case domain.StateCancelled:
			stat.Cancelled++
		}
	}
	if timings > 0 {
		stat.AvgResolutionHours = hours / float64(timings)
	}
	return stat
}

// RecalculateAll recomputes every active user with bounded concurrency.
// Individual failures are logged and counted.
func (s *StatisticsService) RecalculateAll(ctx context.Context, year, month int, actor domain.Actor) (*RecalculateResult, error) {
	if err := validMonth(year, month); err != nil {
		return nil, err
	}
	if !policy.CanManageBilling(actor.Role) {
		return nil, apperrors.NewForbidden("only administrators and directors can recompute statistics")
	}
	users, err := s.users.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	var failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, u := range users {
		userID := u.ID
		g.Go(func() error {
			if _, err := s.Calculate(ctx, userID, year, month, domain.SystemActor); err != nil {
				failed.Add(1)
				s.logger.Warn("statistics recompute failed",
					zap.String("user_id", userID),
					zap.Int("year", year),
					zap.Int("month", month),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	result := &RecalculateResult{Year: year, Month: month, Users: len(users), Failed: int(failed.Load())}
	s.logger.Info("statistics recomputed",
		zap.Int("year", year),
		zap.Int("month", month),
		zap.Int("users", result.Users),
		zap.Int("failed", result.Failed))
	return result, nil
}

// Get returns userID's stored row for the month without recomputing it.
func (s *StatisticsService) Get(ctx context.Context, userID string, year, month int, actor domain.Actor) (*domain.UserStatistic, error) {
	if err := validMonth(year, month); err != nil {
		return nil, err
	}
	stat, err := s.stats.Get(ctx, userID, year, month)
	if err != nil {
		return nil, apperrors.NotFoundIfNoRows(err, "statistic", userID)
	}
	ok, err := s.policy.CanView(ctx, actor, policy.StatisticResource(stat))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewForbidden("statistics of this user are not visible to you")
	}
	return stat, nil
}

// List returns the month's rows visible to actor. Rows are cached per month
// and filtered per caller.
func (s *StatisticsService) List(ctx context.Context, year, month int, actor domain.Actor) ([]repository.AreaStatistic, error) {
	if err := validMonth(year, month); err != nil {
		return nil, err
	}
	rows, err := s.monthRows(ctx, year, month)
	if err != nil {
		return nil, err
	}
	members, err := s.policy.Members(ctx, actor)
	if err != nil {
		return nil, err
	}
	visible := make([]repository.AreaStatistic, 0, len(rows))
	for i := range rows {
		if policy.CanView(actor, policy.StatisticResource(&rows[i].UserStatistic), members) {
			visible = append(visible, rows[i])
		}
	}
	return visible, nil
}

// GlobalSummary sums the rows visible to actor.
func (s *StatisticsService) GlobalSummary(ctx context.Context, year, month int, actor domain.Actor) (*domain.StatisticSummary, error) {
	rows, err := s.List(ctx, year, month, actor)
	if err != nil {
		return nil, err
	}
	summary := &domain.StatisticSummary{Year: year, Month: month, TotalCost: decimal.Zero}
	for _, row := range rows {
		summary.Add(row.UserStatistic)
	}
	return summary, nil
}

// ByArea sums the rows visible to actor per area. Areas without rows are
// omitted.
func (s *StatisticsService) ByArea(ctx context.Context, year, month int, actor domain.Actor) ([]AreaSummary, error) {
	rows, err := s.List(ctx, year, month, actor)
	if err != nil {
		return nil, err
	}
	byArea := make(map[domain.Area]*domain.StatisticSummary)
	for _, row := range rows {
		sum, ok := byArea[row.Area]
		if !ok {
			sum = &domain.StatisticSummary{Year: year, Month: month, TotalCost: decimal.Zero}
			byArea[row.Area] = sum
		}
		sum.Add(row.UserStatistic)
	}
	result := make([]AreaSummary, 0, len(byArea))
	for _, area := range domain.Areas {
		if sum, ok := byArea[area]; ok {
			result = append(result, AreaSummary{Area: area, Summary: *sum})
		}
	}
	return result, nil
}

func (s *StatisticsService) monthRows(ctx context.Context, year, month int) ([]repository.AreaStatistic, error) {
	if s.cache != nil {
		rows, ok, err := s.cache.GetMonth(ctx, year, month)
		if err != nil {
			s.logger.Warn("statistics cache read failed", zap.Int("year", year), zap.Int("month", month), zap.Error(err))
		} else if ok {
			return rows, nil
		}
	}
	rows, err := s.stats.ListByMonth(ctx, year, month, nil)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetMonth(ctx, year, month, rows); err != nil {
			s.logger.Warn("statistics cache write failed", zap.Int("year", year), zap.Int("month", month), zap.Error(err))
		}
	}
	return rows, nil
}

func (s *StatisticsService) invalidate(ctx context.Context, year, month int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateMonth(ctx, year, month); err != nil {
		s.logger.Warn("statistics cache invalidation failed", zap.Int("year", year), zap.Int("month", month), zap.Error(err))
	}
}
