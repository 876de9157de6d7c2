package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/auth"
	"storefront/internal/database"

	"github.com/google/uuid"
)

// UserService читает пользователей для проверки доступа
type UserService struct {
	db *database.DB
}

// NewUserService создает сервис пользователей
func NewUserService(db *database.DB) *UserService {
	return &UserService{db: db}
}

// LookupUser возвращает пользователя с ролью или nil, если его нет
func (s *UserService) LookupUser(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	user := &auth.User{}
	err := s.db.QueryRowContext(ctx, `SELECT id, role FROM users WHERE id = $1`, id).Scan(&user.ID, &user.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
