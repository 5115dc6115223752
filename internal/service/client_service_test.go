package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/mocks"
	"github.com/spec-kit/request-desk/internal/policy"
	apperrors "github.com/spec-kit/request-desk/pkg/util"
)

func TestClientService_ListPassesCallerScope(t *testing.T) {
	clients := mocks.NewMockClientRepository()
	users := mocks.NewMockUserRepository()
	svc := NewClientService(clients, users)
	want := policy.Scope{OwnerIDs: []string{"designer"}, PendingAreas: policy.AcceptableAreas(domain.AreaDesign)}
	clients.On("List", mock.Anything, &want).Return([]domain.Client{{ID: "client-1"}}, nil)

	got, err := svc.List(context.Background(), designer)

	require.NoError(t, err)
	assert.Len(t, got, 1)
	users.AssertNotCalled(t, "ListIDsByArea", mock.Anything, mock.Anything)
}

func TestClientService_Get(t *testing.T) {
	clients := mocks.NewMockClientRepository()
	svc := NewClientService(clients, mocks.NewMockUserRepository())
	clients.On("GetByID", mock.Anything, "client-1").Return(&domain.Client{ID: "client-1", DesignUserID: ptr("designer")}, nil)
	clients.On("GetByID", mock.Anything, "ghost").Return(nil, pgx.ErrNoRows)

	got, err := svc.Get(context.Background(), "client-1", designer)
	require.NoError(t, err)
	assert.Equal(t, "client-1", got.ID)

	_, err = svc.Get(context.Background(), "client-1", domain.Actor{UserID: "other", Role: domain.RoleUser, Area: domain.AreaAds})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.Get(context.Background(), "ghost", designer)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
