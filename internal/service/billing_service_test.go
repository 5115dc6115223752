package service

import (
	"context"
	"errors"
	"fmt"
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
	apperrors "github.com/spec-kit/request-desk/pkg/util"
)

type billingFixture struct {
	svc     *BillingService
	tx      *mocks.PassthroughTx
	billing *mocks.MockBillingRepository
	clients *mocks.MockClientRepository
	audit   *mocks.MockAuditRepository
}

var billingAdmin = domain.Actor{UserID: "admin", Role: domain.RoleAdmin}

func newBillingFixture(t *testing.T) *billingFixture {
	t.Helper()
	f := &billingFixture{
		tx:      &mocks.PassthroughTx{},
		billing: mocks.NewMockBillingRepository(),
		clients: mocks.NewMockClientRepository(),
		audit:   mocks.NewMockAuditRepository(),
	}
	f.audit.On("Append", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.svc = NewBillingService(BillingDependencies{
		Tx:          f.tx,
		BillingRepo: f.billing,
		ClientRepo:  f.clients,
		AuditRepo:   f.audit,
		Clock:       func() time.Time { return baseTime },
		Concurrency: 2,
	})
	return f
}

// periodStore mimics the (client, year, month) unique upsert.
type periodStore struct {
	mu      sync.Mutex
	periods map[string]*domain.BillingPeriod
}

func newPeriodStore() *periodStore {
	return &periodStore{periods: map[string]*domain.BillingPeriod{}}
}

func (s *periodStore) upsert(total domain.ClientTotal, year, month int) *domain.BillingPeriod {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%s/%d/%d", total.ClientID, year, month)
	p, ok := s.periods[key]
	if !ok {
		p = &domain.BillingPeriod{ID: fmt.Sprintf("bp-%d", len(s.periods)+1), ClientID: total.ClientID, Year: year, Month: month, State: domain.BillingOpen}
		s.periods[key] = p
	}
	p.TotalRequests = total.TotalRequests
	p.TotalCost = total.TotalCost
	out := *p
	return &out
}

func (s *periodStore) wire(m *mocks.MockBillingRepository) {
	m.On("Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(func(_ context.Context, total domain.ClientTotal, year, month int) *domain.BillingPeriod {
			return s.upsert(total, year, month)
		}, nil)
}

func TestBillingService_GenerateTwiceKeepsTotals(t *testing.T) {
	f := newBillingFixture(t)
	store := newPeriodStore()
	store.wire(f.billing)
	total := domain.ClientTotal{ClientID: "client-1", TotalRequests: 3, TotalCost: decimal.RequireFromString("450.00")}
	f.clients.On("GetByID", mock.Anything, "client-1").Return(&domain.Client{ID: "client-1", Active: true}, nil)
	f.billing.On("SumCreatedForClient", mock.Anything, "client-1", marchStart, aprilStart).Return(total, nil)

	first, err := f.svc.Generate(context.Background(), "client-1", 2025, 3, billingAdmin)
	require.NoError(t, err)
	second, err := f.svc.Generate(context.Background(), "client-1", 2025, 3, billingAdmin)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, second.TotalRequests)
	assert.True(t, second.TotalCost.Equal(decimal.NewFromInt(450)))
	assert.Len(t, store.periods, 1)
	f.billing.AssertNumberOfCalls(t, "Upsert", 2)
}

func TestBillingService_GenerateGuards(t *testing.T) {
	f := newBillingFixture(t)
	f.clients.On("GetByID", mock.Anything, "ghost").Return(nil, pgx.ErrNoRows)

	_, err := f.svc.Generate(context.Background(), "client-1", 2025, 3, domain.Actor{UserID: "lead", Role: domain.RoleLead})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.svc.Generate(context.Background(), "client-1", 2025, 0, billingAdmin)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.Generate(context.Background(), "ghost", 2025, 3, billingAdmin)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	f.billing.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBillingService_GenerateForAllClientsCountsFailures(t *testing.T) {
	f := newBillingFixture(t)
	store := newPeriodStore()
	store.wire(f.billing)
	f.clients.On("ListActive", mock.Anything).Return([]domain.Client{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}}, nil)
	f.billing.On("SumCreatedForClient", mock.Anything, "c1", marchStart, aprilStart).Return(domain.ClientTotal{ClientID: "c1", TotalRequests: 1, TotalCost: decimal.NewFromInt(10)}, nil)
	f.billing.On("SumCreatedForClient", mock.Anything, "c2", marchStart, aprilStart).Return(domain.ClientTotal{}, errors.New("statement timeout"))
	f.billing.On("SumCreatedForClient", mock.Anything, "c3", marchStart, aprilStart).Return(domain.ClientTotal{ClientID: "c3"}, nil)

	result, err := f.svc.GenerateForAllClients(context.Background(), 2025, 3, domain.SystemActor)

	require.NoError(t, err)
	assert.Equal(t, &BillingRunResult{Year: 2025, Month: 3, Periods: 2, Failed: 1}, result)
	assert.Len(t, store.periods, 2)
}

func TestBillingService_GenerateAutomatic(t *testing.T) {
	f := newBillingFixture(t)
	store := newPeriodStore()
	store.wire(f.billing)
	f.billing.On("SumResolvedByClient", mock.Anything, marchStart, aprilStart).Return([]domain.ClientTotal{
		{ClientID: "c1", TotalRequests: 2, TotalCost: decimal.NewFromInt(30)},
		{ClientID: "c2", TotalRequests: 1, TotalCost: decimal.NewFromInt(5)},
	}, nil)

	result, err := f.svc.GenerateAutomatic(context.Background(), 2025, 3, domain.SystemActor)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Periods)
	assert.Equal(t, 0, result.Failed)
	assert.Len(t, store.periods, 2)
}

func TestBillingService_CloseAndInvoice(t *testing.T) {
	f := newBillingFixture(t)
	period := &domain.BillingPeriod{ID: "bp-1", ClientID: "c1", Year: 2025, Month: 3, State: domain.BillingOpen}
	f.billing.On("GetForUpdate", mock.Anything, "bp-1").Return(period, nil)
	f.billing.On("UpdateState", mock.Anything, period).Return(nil)

	closed, err := f.svc.Close(context.Background(), "bp-1", billingAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.BillingClosed, closed.State)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, baseTime, *closed.ClosedAt)

	// closing again changes nothing
	_, err = f.svc.Close(context.Background(), "bp-1", billingAdmin)
	require.NoError(t, err)
	f.billing.AssertNumberOfCalls(t, "UpdateState", 1)

	invoiced, err := f.svc.Invoice(context.Background(), "bp-1", billingAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.BillingInvoiced, invoiced.State)
	f.billing.AssertNumberOfCalls(t, "UpdateState", 2)

	_, err = f.svc.Close(context.Background(), "bp-1", billingAdmin)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, 1, f.tx.RolledBack)

	assert.Equal(t, []domain.ChangeKind{domain.ChangeClose, domain.ChangeInvoice}, auditKinds(f.audit.Entries()))
}

func TestBillingService_ReadsRequireBillingRole(t *testing.T) {
	f := newBillingFixture(t)
	lead := domain.Actor{UserID: "lead", Role: domain.RoleLead, Area: domain.AreaDesign}

	_, err := f.svc.Get(context.Background(), "bp-1", lead)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.svc.Invoice(context.Background(), "bp-1", lead)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.Equal(t, 0, f.tx.Calls)

	f.billing.On("GetByID", mock.Anything, "missing").Return(nil, pgx.ErrNoRows)
	_, err = f.svc.Get(context.Background(), "missing", billingAdmin)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
