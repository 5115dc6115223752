package service

import (
	"context"

	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/policy"
	"github.com/spec-kit/request-desk/internal/repository"
	apperrors "github.com/spec-kit/request-desk/pkg/util"
)

// ClientService exposes clients under the same visibility rules as requests.
type ClientService struct {
	clients repository.ClientRepository
	policy  *policy.Resolver
}

// NewClientService constructs the service.
func NewClientService(clients repository.ClientRepository, users repository.UserRepository) *ClientService {
	return &ClientService{clients: clients, policy: policy.NewResolver(users)}
}

// List returns the clients actor may see.
func (s *ClientService) List(ctx context.Context, actor domain.Actor) ([]domain.Client, error) {
	scope, err := s.policy.Scope(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.clients.List(ctx, &scope)
}

func (s *ClientService) Get(ctx context.Context, id string, actor domain.Actor) (*domain.Client, error) {
	client, err := s.clients.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundIfNoRows(err, "client", id)
	}
	ok, err := s.policy.CanView(ctx, actor, policy.ClientResource(client))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewForbidden("client is not visible to you")
	}
	return client, nil
}
