package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/policy"
)

// ClientRepository reads clients.
type ClientRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Client, error)
	ListActive(ctx context.Context) ([]domain.Client, error)
	List(ctx context.Context, scope *policy.Scope) ([]domain.Client, error)
}

type clientRepository struct {
	db DB
}

// NewClientRepository builds repository.
func NewClientRepository(db DB) ClientRepository {
	return &clientRepository{db: db}
}

var clientColumns = []string{"id", "name", "active", "ads_user_id", "design_user_id", "created_at", "updated_at"}

func (r *clientRepository) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	query, args, err := psql.Select(clientColumns...).From("clients").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	return scanClient(conn(ctx, r.db).QueryRow(ctx, query, args...))
}

func (r *clientRepository) ListActive(ctx context.Context) ([]domain.Client, error) {
	return r.list(ctx, psql.Select(clientColumns...).From("clients").Where(sq.Eq{"active": true}))
}

// List returns clients visible under scope. Ownership is the client's ads or
// design user.
func (r *clientRepository) List(ctx context.Context, scope *policy.Scope) ([]domain.Client, error) {
	q := psql.Select(clientColumns...).From("clients")
	if scope != nil && !scope.Unrestricted {
		q = q.Where(sq.Or{
			sq.Eq{"ads_user_id": scope.OwnerIDs},
			sq.Eq{"design_user_id": scope.OwnerIDs},
		})
	}
	return r.list(ctx, q)
}

func (r *clientRepository) list(ctx context.Context, q sq.SelectBuilder) ([]domain.Client, error) {
	query, args, err := q.OrderBy("name ASC").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *client)
	}
	return result, rows.Err()
}

func scanClient(row pgx.Row) (*domain.Client, error) {
	var c domain.Client
	if err := row.Scan(&c.ID, &c.Name, &c.Active, &c.AdsUserID, &c.DesignUserID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
