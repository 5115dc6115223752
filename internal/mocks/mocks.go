package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/policy"
	"github.com/spec-kit/request-desk/internal/repository"
)

// PassthroughTx runs callbacks directly. RolledBack records callbacks that
// returned an error.
type PassthroughTx struct {
	Calls      int
	RolledBack int
}

func (t *PassthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.Calls++
	if err := fn(ctx); err != nil {
		t.RolledBack++
		return err
	}
	return nil
}

// MockRequestRepository is a mock implementation of repository.RequestRepository
type MockRequestRepository struct {
	mock.Mock
}

func NewMockRequestRepository() *MockRequestRepository {
	return &MockRequestRepository{}
}

func (m *MockRequestRepository) Create(ctx context.Context, req *domain.Request) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockRequestRepository) Update(ctx context.Context, req *domain.Request) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockRequestRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRequestRepository) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Request), args.Error(1)
}

func (m *MockRequestRepository) GetForUpdate(ctx context.Context, id string) (*domain.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Request), args.Error(1)
}

func (m *MockRequestRepository) List(ctx context.Context, filter repository.RequestFilter) ([]domain.Request, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Request), args.Error(1)
}

func (m *MockRequestRepository) ListTerminal(ctx context.Context, limit int) ([]domain.Request, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Request), args.Error(1)
}

func (m *MockRequestRepository) CountOpenByUser(ctx context.Context, userID string) (repository.OpenCounts, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(repository.OpenCounts), args.Error(1)
}

func (m *MockRequestRepository) CountCreatedBy(ctx context.Context, userID string, from, to time.Time) (int, error) {
	args := m.Called(ctx, userID, from, to)
	return args.Int(0), args.Error(1)
}

// MockHistoryRepository is a mock implementation of repository.HistoryRepository
type MockHistoryRepository struct {
	mock.Mock
}

func NewMockHistoryRepository() *MockHistoryRepository {
	return &MockHistoryRepository{}
}

func (m *MockHistoryRepository) Insert(ctx context.Context, h *domain.RequestHistory) error {
	return m.Called(ctx, h).Error(0)
}

func (m *MockHistoryRepository) GetByOriginalID(ctx context.Context, requestID string) (*domain.RequestHistory, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RequestHistory), args.Error(1)
}

func (m *MockHistoryRepository) List(ctx context.Context, filter repository.HistoryFilter) ([]domain.RequestHistory, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RequestHistory), args.Error(1)
}

func (m *MockHistoryRepository) ListClosedByAssignee(ctx context.Context, userID string, from, to time.Time) ([]domain.RequestHistory, error) {
	args := m.Called(ctx, userID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RequestHistory), args.Error(1)
}

// MockUserRepository is a mock implementation of repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) ListActive(ctx context.Context, areas ...domain.Area) ([]domain.User, error) {
	args := m.Called(ctx, areas)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserRepository) ListIDsByArea(ctx context.Context, area domain.Area) ([]string, error) {
	args := m.Called(ctx, area)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockClientRepository is a mock implementation of repository.ClientRepository
type MockClientRepository struct {
	mock.Mock
}

func NewMockClientRepository() *MockClientRepository {
	return &MockClientRepository{}
}

func (m *MockClientRepository) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Client), args.Error(1)
}

func (m *MockClientRepository) ListActive(ctx context.Context) ([]domain.Client, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Client), args.Error(1)
}

func (m *MockClientRepository) List(ctx context.Context, scope *policy.Scope) ([]domain.Client, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Client), args.Error(1)
}

// MockCategoryRepository is a mock implementation of repository.CategoryRepository
type MockCategoryRepository struct {
	mock.Mock
}

func NewMockCategoryRepository() *MockCategoryRepository {
	return &MockCategoryRepository{}
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

// MockStatisticRepository is a mock implementation of repository.StatisticRepository
type MockStatisticRepository struct {
	mock.Mock
}

func NewMockStatisticRepository() *MockStatisticRepository {
	return &MockStatisticRepository{}
}

func (m *MockStatisticRepository) Upsert(ctx context.Context, stat *domain.UserStatistic) error {
	return m.Called(ctx, stat).Error(0)
}

func (m *MockStatisticRepository) Get(ctx context.Context, userID string, year, month int) (*domain.UserStatistic, error) {
	args := m.Called(ctx, userID, year, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserStatistic), args.Error(1)
}

func (m *MockStatisticRepository) ListByMonth(ctx context.Context, year, month int, scope *policy.Scope) ([]repository.AreaStatistic, error) {
	args := m.Called(ctx, year, month, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.AreaStatistic), args.Error(1)
}

// MockBillingRepository is a mock implementation of repository.BillingRepository
type MockBillingRepository struct {
	mock.Mock
}

func NewMockBillingRepository() *MockBillingRepository {
	return &MockBillingRepository{}
}

func (m *MockBillingRepository) Upsert(ctx context.Context, total domain.ClientTotal, year, month int) (*domain.BillingPeriod, error) {
	args := m.Called(ctx, total, year, month)
	if fn, ok := args.Get(0).(func(context.Context, domain.ClientTotal, int, int) *domain.BillingPeriod); ok {
		return fn(ctx, total, year, month), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BillingPeriod), args.Error(1)
}

func (m *MockBillingRepository) GetByID(ctx context.Context, id string) (*domain.BillingPeriod, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BillingPeriod), args.Error(1)
}

func (m *MockBillingRepository) GetForUpdate(ctx context.Context, id string) (*domain.BillingPeriod, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BillingPeriod), args.Error(1)
}

func (m *MockBillingRepository) UpdateState(ctx context.Context, period *domain.BillingPeriod) error {
	return m.Called(ctx, period).Error(0)
}

func (m *MockBillingRepository) List(ctx context.Context, filter repository.BillingFilter) ([]domain.BillingPeriod, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BillingPeriod), args.Error(1)
}

func (m *MockBillingRepository) SumCreatedForClient(ctx context.Context, clientID string, from, to time.Time) (domain.ClientTotal, error) {
	args := m.Called(ctx, clientID, from, to)
	return args.Get(0).(domain.ClientTotal), args.Error(1)
}

func (m *MockBillingRepository) SumResolvedByClient(ctx context.Context, from, to time.Time) ([]domain.ClientTotal, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ClientTotal), args.Error(1)
}

// MockAuditRepository is a mock implementation of repository.AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

func (m *MockAuditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockAuditRepository) ListByEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]domain.AuditEntry, error) {
	args := m.Called(ctx, entityType, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AuditEntry), args.Error(1)
}

// Entries returns the entries passed to Append, in call order.
func (m *MockAuditRepository) Entries() []domain.AuditEntry {
	var out []domain.AuditEntry
	for _, call := range m.Calls {
		if call.Method == "Append" {
			out = append(out, *call.Arguments.Get(1).(*domain.AuditEntry))
		}
	}
	return out
}

// MockReportRepository is a mock implementation of repository.ReportRepository
type MockReportRepository struct {
	mock.Mock
}

func NewMockReportRepository() *MockReportRepository {
	return &MockReportRepository{}
}

func (m *MockReportRepository) Create(ctx context.Context, report *domain.Report) error {
	return m.Called(ctx, report).Error(0)
}

func (m *MockReportRepository) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Report), args.Error(1)
}

func (m *MockReportRepository) AppendRequest(ctx context.Context, reportID, requestID string) (bool, error) {
	args := m.Called(ctx, reportID, requestID)
	return args.Bool(0), args.Error(1)
}

// MockNotifier is a mock implementation of service.Notifier
type MockNotifier struct {
	mock.Mock
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) NotifyAssignment(ctx context.Context, req *domain.Request, assigneeID string, actor domain.Actor) {
	m.Called(ctx, req, assigneeID, actor)
}

func (m *MockNotifier) NotifyBroadcast(ctx context.Context, req *domain.Request, recipientIDs []string) {
	m.Called(ctx, req, recipientIDs)
}

func (m *MockNotifier) NotifyStatusChange(ctx context.Context, req *domain.Request, from domain.RequestState, recipientIDs []string, actor domain.Actor) {
	m.Called(ctx, req, from, recipientIDs, actor)
}

func (m *MockNotifier) NotifyTransfer(ctx context.Context, fromUserID string, movedTo map[string][]string, reason string, actor domain.Actor) {
	m.Called(ctx, fromUserID, movedTo, reason, actor)
}

// MockArchiver is a mock implementation of service.Archiver
type MockArchiver struct {
	mock.Mock
}

func NewMockArchiver() *MockArchiver {
	return &MockArchiver{}
}

func (m *MockArchiver) Archive(ctx context.Context, req *domain.Request) error {
	return m.Called(ctx, req).Error(0)
}

// MockStatisticsCalculator is a mock implementation of service.StatisticsCalculator
type MockStatisticsCalculator struct {
	mock.Mock
}

func NewMockStatisticsCalculator() *MockStatisticsCalculator {
	return &MockStatisticsCalculator{}
}

func (m *MockStatisticsCalculator) Calculate(ctx context.Context, userID string, year, month int, actor domain.Actor) (*domain.UserStatistic, error) {
	args := m.Called(ctx, userID, year, month, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserStatistic), args.Error(1)
}

// MockStatisticsCache is a mock implementation of service.StatisticsCache
type MockStatisticsCache struct {
	mock.Mock
}

func NewMockStatisticsCache() *MockStatisticsCache {
	return &MockStatisticsCache{}
}

func (m *MockStatisticsCache) GetMonth(ctx context.Context, year, month int) ([]repository.AreaStatistic, bool, error) {
	args := m.Called(ctx, year, month)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]repository.AreaStatistic), args.Bool(1), args.Error(2)
}

func (m *MockStatisticsCache) SetMonth(ctx context.Context, year, month int, rows []repository.AreaStatistic) error {
	return m.Called(ctx, year, month, rows).Error(0)
}

func (m *MockStatisticsCache) InvalidateMonth(ctx context.Context, year, month int) error {
	return m.Called(ctx, year, month).Error(0)
}
