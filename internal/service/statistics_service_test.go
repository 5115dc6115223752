package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/mocks"
	"github.com/spec-kit/request-desk/internal/policy"
	"github.com/spec-kit/request-desk/internal/repository"
	apperrors "github.com/spec-kit/request-desk/pkg/util"
)

type statisticsFixture struct {
	svc      *StatisticsService
	requests *mocks.MockRequestRepository
	history  *mocks.MockHistoryRepository
	users    *mocks.MockUserRepository
	stats    *mocks.MockStatisticRepository
	cache    *mocks.MockStatisticsCache
}

func newStatisticsFixture(t *testing.T) *statisticsFixture {
	t.Helper()
	f := &statisticsFixture{
		requests: mocks.NewMockRequestRepository(),
		history:  mocks.NewMockHistoryRepository(),
		users:    mocks.NewMockUserRepository(),
		stats:    mocks.NewMockStatisticRepository(),
		cache:    mocks.NewMockStatisticsCache(),
	}
	f.svc = NewStatisticsService(StatisticsDependencies{
		RequestRepo:   f.requests,
		HistoryRepo:   f.history,
		UserRepo:      f.users,
		StatisticRepo: f.stats,
		Cache:         f.cache,
		Clock:         func() time.Time { return baseTime },
		Concurrency:   2,
	})
	return f
}

var (
	marchStart = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	aprilStart = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
)

func closedRows() []domain.RequestHistory {
	return []domain.RequestHistory{
		{State: domain.StateResolved, Cost: decimal.NewFromInt(100), AcceptedAt: ptr(marchStart), ResolvedAt: marchStart.Add(2 * time.Hour)},
		{State: domain.StateResolved, Cost: decimal.NewFromInt(50), AcceptedAt: ptr(marchStart), ResolvedAt: marchStart.Add(4 * time.Hour)},
		{State: domain.StateResolved, Cost: decimal.NewFromInt(25), ResolvedAt: marchStart.Add(time.Hour)},
		{State: domain.StateCancelled, Cost: decimal.NewFromInt(999), ResolvedAt: marchStart.Add(time.Hour)},
	}
}

func TestStatisticsService_Calculate(t *testing.T) {
	f := newStatisticsFixture(t)
	f.users.On("GetByID", mock.Anything, "u1").Return(&domain.User{ID: "u1", Active: true}, nil)
	f.requests.On("CountCreatedBy", mock.Anything, "u1", marchStart, aprilStart).Return(7, nil)
	f.history.On("ListClosedByAssignee", mock.Anything, "u1", marchStart, aprilStart).Return(closedRows(), nil)
	f.requests.On("CountOpenByUser", mock.Anything, "u1").Return(repository.OpenCounts{Pending: 1, InProgress: 2, Paused: 3}, nil)
	f.stats.On("Upsert", mock.Anything, mock.AnythingOfType("*domain.UserStatistic")).Return(nil)
	f.cache.On("InvalidateMonth", mock.Anything, 2025, 3).Return(nil)

	stat, err := f.svc.Calculate(context.Background(), "u1", 2025, 3, domain.SystemActor)

	require.NoError(t, err)
	assert.Equal(t, 7, stat.Created)
	assert.Equal(t, 3, stat.Resolved)
	assert.Equal(t, 1, stat.Cancelled)
	assert.InDelta(t, 3.0, stat.AvgResolutionHours, 1e-9)
	assert.True(t, stat.TotalCost.Equal(decimal.NewFromInt(175)), stat.TotalCost.String())
	assert.Equal(t, 1, stat.Pending)
	assert.Equal(t, 2, stat.InProgress)
	assert.Equal(t, 3, stat.Paused)
	assert.Equal(t, baseTime, stat.CalculatedAt)
	f.cache.AssertExpectations(t)
}

func TestStatisticsService_Calculate_Guards(t *testing.T) {
	f := newStatisticsFixture(t)

	_, err := f.svc.Calculate(context.Background(), "u1", 2025, 13, domain.SystemActor)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.Calculate(context.Background(), "u2", 2025, 3, domain.Actor{UserID: "u1", Role: domain.RoleLead})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

// memoryStatistics keeps upserted rows keyed like the unique index.
type memoryStatistics struct {
	mu   sync.Mutex
	rows map[string]domain.UserStatistic
}

func (m *memoryStatistics) upsert(args mock.Arguments) {
	s := *args.Get(1).(*domain.UserStatistic)
	s.CalculatedAt = time.Time{}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[s.UserID] = s
}

func (m *memoryStatistics) snapshot() map[string]domain.UserStatistic {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.UserStatistic, len(m.rows))
	for k, v := range m.rows {
		out[k] = v
	}
	return out
}

func TestStatisticsService_RecalculateAllIsIdempotent(t *testing.T) {
	f := newStatisticsFixture(t)
	store := &memoryStatistics{rows: map[string]domain.UserStatistic{}}
	users := []domain.User{{ID: "u1", Active: true}, {ID: "u2", Active: true}, {ID: "u3", Active: true}}

	f.users.On("ListActive", mock.Anything, mock.Anything).Return(users, nil)
	for _, u := range users {
		f.users.On("GetByID", mock.Anything, u.ID).Return(&u, nil)
		f.requests.On("CountOpenByUser", mock.Anything, u.ID).Return(repository.OpenCounts{Pending: 1}, nil)
	}
	f.requests.On("CountCreatedBy", mock.Anything, mock.Anything, marchStart, aprilStart).Return(4, nil)
	f.history.On("ListClosedByAssignee", mock.Anything, "u1", marchStart, aprilStart).Return(closedRows(), nil)
	f.history.On("ListClosedByAssignee", mock.Anything, "u2", marchStart, aprilStart).Return([]domain.RequestHistory{}, nil)
	f.history.On("ListClosedByAssignee", mock.Anything, "u3", marchStart, aprilStart).Return(nil, errors.New("timeout"))
	f.stats.On("Upsert", mock.Anything, mock.Anything).Run(store.upsert).Return(nil)
	f.cache.On("InvalidateMonth", mock.Anything, 2025, 3).Return(nil)

	admin := domain.Actor{UserID: "admin", Role: domain.RoleAdmin}
	first, err := f.svc.RecalculateAll(context.Background(), 2025, 3, admin)
	require.NoError(t, err)
	afterFirst := store.snapshot()

	second, err := f.svc.RecalculateAll(context.Background(), 2025, 3, admin)
	require.NoError(t, err)

	assert.Equal(t, &RecalculateResult{Year: 2025, Month: 3, Users: 3, Failed: 1}, first)
	assert.Equal(t, first, second)
	assert.Len(t, afterFirst, 2)
	assert.Equal(t, afterFirst, store.snapshot())
}

func TestStatisticsService_RecalculateAll_Forbidden(t *testing.T) {
	f := newStatisticsFixture(t)
	_, err := f.svc.RecalculateAll(context.Background(), 2025, 3, domain.Actor{UserID: "u", Role: domain.RoleLead})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func monthRows() []repository.AreaStatistic {
	return []repository.AreaStatistic{
		{Area: domain.AreaDesign, UserStatistic: domain.UserStatistic{UserID: "d1", Resolved: 2, AvgResolutionHours: 4, TotalCost: decimal.NewFromInt(10)}},
		{Area: domain.AreaDesign, UserStatistic: domain.UserStatistic{UserID: "d2", Resolved: 1, AvgResolutionHours: 1, TotalCost: decimal.NewFromInt(5)}},
		{Area: domain.AreaAds, UserStatistic: domain.UserStatistic{UserID: "a1", Resolved: 1, AvgResolutionHours: 2, TotalCost: decimal.NewFromInt(1)}},
	}
}

func TestStatisticsService_List_CacheMissFillsCache(t *testing.T) {
	f := newStatisticsFixture(t)
	rows := monthRows()
	f.cache.On("GetMonth", mock.Anything, 2025, 3).Return(nil, false, nil)
	f.stats.On("ListByMonth", mock.Anything, 2025, 3, (*policy.Scope)(nil)).Return(rows, nil)
	f.cache.On("SetMonth", mock.Anything, 2025, 3, rows).Return(nil)
	f.users.On("ListIDsByArea", mock.Anything, domain.AreaDesign).Return([]string{"d1", "d2", "lead"}, nil)

	got, err := f.svc.List(context.Background(), 2025, 3, domain.Actor{UserID: "lead", Role: domain.RoleLead, Area: domain.AreaDesign})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "d1", got[0].UserID)
	assert.Equal(t, "d2", got[1].UserID)
	f.cache.AssertExpectations(t)
}

func TestStatisticsService_Summaries(t *testing.T) {
	f := newStatisticsFixture(t)
	f.cache.On("GetMonth", mock.Anything, 2025, 3).Return(monthRows(), true, nil)
	admin := domain.Actor{UserID: "admin", Role: domain.RoleAdmin}

	summary, err := f.svc.GlobalSummary(context.Background(), 2025, 3, admin)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Users)
	assert.Equal(t, 4, summary.Resolved)
	assert.InDelta(t, 2.75, summary.AvgResolutionHours, 1e-9)
	assert.True(t, summary.TotalCost.Equal(decimal.NewFromInt(16)))

	byArea, err := f.svc.ByArea(context.Background(), 2025, 3, admin)
	require.NoError(t, err)
	require.Len(t, byArea, 2)
	assert.Equal(t, domain.AreaDesign, byArea[0].Area)
	assert.Equal(t, 3, byArea[0].Summary.Resolved)
	assert.InDelta(t, 3.0, byArea[0].Summary.AvgResolutionHours, 1e-9)
	assert.Equal(t, domain.AreaAds, byArea[1].Area)

	f.stats.AssertNotCalled(t, "ListByMonth", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStatisticsService_Get(t *testing.T) {
	f := newStatisticsFixture(t)
	stored := &domain.UserStatistic{UserID: "d1", Year: 2025, Month: 3, Resolved: 2}
	f.stats.On("Get", mock.Anything, "d1", 2025, 3).Return(stored, nil)
	f.stats.On("Get", mock.Anything, "ghost", 2025, 3).Return(nil, pgx.ErrNoRows)
	f.users.On("ListIDsByArea", mock.Anything, domain.AreaDesign).Return([]string{"d1", "lead"}, nil)

	got, err := f.svc.Get(context.Background(), "d1", 2025, 3, domain.Actor{UserID: "lead", Role: domain.RoleLead, Area: domain.AreaDesign})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Resolved)

	_, err = f.svc.Get(context.Background(), "d1", 2025, 3, domain.Actor{UserID: "a1", Role: domain.RoleUser, Area: domain.AreaAds})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.svc.Get(context.Background(), "ghost", 2025, 3, domain.SystemActor)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
