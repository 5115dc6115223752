package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/request-desk/internal/domain"
)

// UserRepository reads staff users. Users are managed elsewhere.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	ListActive(ctx context.Context, areas ...domain.Area) ([]domain.User, error)
	ListIDsByArea(ctx context.Context, area domain.Area) ([]string, error)
}

type userRepository struct {
	db DB
}

// NewUserRepository builds repository.
func NewUserRepository(db DB) UserRepository {
	return &userRepository{db: db}
}

var userColumns = []string{"id", "name", "email", "role", "area", "active", "created_at", "updated_at"}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query, args, err := psql.Select(userColumns...).From("users").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	return scanUser(conn(ctx, r.db).QueryRow(ctx, query, args...))
}

// ListActive returns active users, optionally restricted to areas.
func (r *userRepository) ListActive(ctx context.Context, areas ...domain.Area) ([]domain.User, error) {
	q := psql.Select(userColumns...).From("users").Where(sq.Eq{"active": true}).OrderBy("name ASC")
	if len(areas) > 0 {
		q = q.Where(sq.Eq{"area": areas})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}

// ListIDsByArea returns every user id of area, active or not, so that
// visibility of past work survives deactivation.
func (r *userRepository) ListIDsByArea(ctx context.Context, area domain.Area) ([]string, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT id FROM users WHERE area=$1`, area)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.Area,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
