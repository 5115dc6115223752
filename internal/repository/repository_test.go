package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/policy"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func terminalRequest() *domain.Request {
	assignee := "u-2"
	resolved := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	return &domain.Request{
		ID:            "r-1",
		ClientID:      "c-1",
		CategoryID:    "cat-1",
		Description:   "banner",
		Cost:          decimal.NewFromInt(40),
		Area:          domain.AreaAds,
		State:         domain.StateResolved,
		CreatorID:     "u-1",
		AssigneeID:    &assignee,
		CreatedAt:     resolved.Add(-48 * time.Hour),
		ResolvedAt:    &resolved,
		WorkedSeconds: 5400,
	}
}

func archive(ctx context.Context, tx *TxManager, history HistoryRepository, requests RequestRepository, req *domain.Request) error {
	return tx.RunInTx(ctx, func(ctx context.Context) error {
		h := req.ToHistory(time.Now())
		if err := history.Insert(ctx, &h); err != nil {
			return err
		}
		return requests.Delete(ctx, req.ID)
	})
}

func TestArchiveTransaction_Commits(t *testing.T) {
	mock := newMock(t)
	tx := NewTxManager(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO request_history`).
		WithArgs("r-1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), int64(5400), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("h-1"))
	mock.ExpectExec(`DELETE FROM requests WHERE id=\$1`).
		WithArgs("r-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	err := archive(context.Background(), tx, NewHistoryRepository(mock), NewRequestRepository(mock), terminalRequest())
	require.NoError(t, err)
}

func TestArchiveTransaction_RollsBackWhenDeleteFails(t *testing.T) {
	mock := newMock(t)
	tx := NewTxManager(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO request_history`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("h-1"))
	mock.ExpectExec(`DELETE FROM requests`).
		WithArgs("r-1").
		WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	err := archive(context.Background(), tx, NewHistoryRepository(mock), NewRequestRepository(mock), terminalRequest())
	assert.EqualError(t, err, "lock timeout")
}

func TestArchiveTransaction_RollsBackWhenRowAlreadyGone(t *testing.T) {
	mock := newMock(t)
	tx := NewTxManager(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO request_history`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("h-1"))
	mock.ExpectExec(`DELETE FROM requests`).
		WithArgs("r-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	err := archive(context.Background(), tx, NewHistoryRepository(mock), NewRequestRepository(mock), terminalRequest())
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestTxManager_NestedCallJoinsOuterTransaction(t *testing.T) {
	mock := newMock(t)
	tx := NewTxManager(mock)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM requests`).WithArgs("r-9").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	repo := NewRequestRepository(mock)
	err := tx.RunInTx(context.Background(), func(ctx context.Context) error {
		return tx.RunInTx(ctx, func(ctx context.Context) error {
			return repo.Delete(ctx, "r-9")
		})
	})
	require.NoError(t, err)
}

func TestTxManager_BeginFailure(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	called := false
	err := NewTxManager(mock).RunInTx(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorContains(t, err, "begin transaction")
	assert.False(t, called)
}

func TestRequestRepository_UpdateMissingRow(t *testing.T) {
	mock := newMock(t)
	req := terminalRequest()

	mock.ExpectExec(`UPDATE requests SET`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), "r-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := NewRequestRepository(mock).Update(context.Background(), req)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestRequestRepository_CountOpenByUser(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`FROM requests\s+WHERE creator_id = \$1 OR assignee_id = \$1`).
		WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows([]string{"pending", "in_progress", "paused"}).AddRow(2, 1, 3))

	counts, err := NewRequestRepository(mock).CountOpenByUser(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, OpenCounts{Pending: 2, InProgress: 1, Paused: 3}, counts)
}

func TestRequestRepository_CountCreatedBy(t *testing.T) {
	mock := newMock(t)
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	mock.ExpectQuery(`FROM request_history WHERE creator_id = \$1`).
		WithArgs("u-1", from, to).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	n, err := NewRequestRepository(mock).CountCreatedBy(context.Background(), "u-1", from, to)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestStatisticRepository_UpsertIsKeyedByUserMonth(t *testing.T) {
	mock := newMock(t)
	stat := &domain.UserStatistic{UserID: "u-1", Year: 2025, Month: 3, Resolved: 2, TotalCost: decimal.NewFromInt(80)}

	mock.ExpectQuery(`ON CONFLICT \(user_id, year, month\) DO UPDATE`).
		WithArgs("u-1", 2025, 3, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("s-1"))

	require.NoError(t, NewStatisticRepository(mock).Upsert(context.Background(), stat))
	assert.Equal(t, "s-1", stat.ID)
}

func TestBillingRepository_UpdateState(t *testing.T) {
	mock := newMock(t)
	now := time.Now()
	period := &domain.BillingPeriod{ID: "b-1", State: domain.BillingClosed, ClosedAt: &now}

	mock.ExpectExec(`UPDATE billing_periods SET state=\$1`).
		WithArgs(domain.BillingClosed, pgxmock.AnyArg(), pgxmock.AnyArg(), "b-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, NewBillingRepository(mock).UpdateState(context.Background(), period))
}

func TestReportRepository_AppendRequest(t *testing.T) {
	mock := newMock(t)
	repo := NewReportRepository(mock)

	mock.ExpectExec(`INSERT INTO report_requests`).
		WithArgs("rep-1", "r-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`ON CONFLICT \(report_id, request_id\) DO NOTHING`).
		WithArgs("rep-1", "r-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	added, err := repo.AppendRequest(context.Background(), "rep-1", "r-1")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.AppendRequest(context.Background(), "rep-1", "r-1")
	require.NoError(t, err)
	assert.False(t, added)
}

func TestUserRepository_ListIDsByArea(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id FROM users WHERE area=\$1`).
		WithArgs(domain.AreaDesign).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("u-1").AddRow("u-2"))

	ids, err := NewUserRepository(mock).ListIDsByArea(context.Background(), domain.AreaDesign)
	require.NoError(t, err)
	assert.Equal(t, []string{"u-1", "u-2"}, ids)
}

func TestScopeCondition(t *testing.T) {
	assert.Nil(t, scopeCondition(nil))
	assert.Nil(t, scopeCondition(&policy.Scope{Unrestricted: true}))

	cond := scopeCondition(&policy.Scope{OwnerIDs: []string{"u-1"}, PendingAreas: []domain.Area{domain.AreaAds, domain.AreaAdmin}})
	sql, args, err := cond.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "(creator_id IN (?) OR assignee_id IN (?) OR (state = ? AND area IN (?,?)))", sql)
	assert.Equal(t, []any{"u-1", "u-1", domain.StatePending, domain.AreaAds, domain.AreaAdmin}, args)
}

func TestPaging(t *testing.T) {
	assert.Equal(t, uint64(20), pageLimit(0))
	assert.Equal(t, uint64(500), pageLimit(10000))
	assert.Equal(t, uint64(0), pageOffset(-3))
}
