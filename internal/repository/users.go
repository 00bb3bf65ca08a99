package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mmeshcher/paybook/internal/model"
)

// UserUpdate содержит изменяемые поля пользователя. Пустые поля не меняются.
type UserUpdate struct {
	Username string
	Name     string
	Password string
}

func (u UserUpdate) columns() map[string]any {
	cols := make(map[string]any, 3)
	if u.Username != "" {
		cols["username"] = u.Username
	}
	if u.Name != "" {
		cols["name"] = u.Name
	}
	if u.Password != "" {
		cols["password"] = u.Password
	}
	return cols
}

// CreateUser сохраняет нового пользователя и заполняет его идентификатор.
func (r *Repository) CreateUser(ctx context.Context, u *model.User) error {
	if err := r.conn(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", ErrUserExists, u.Username)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	if err := r.conn(ctx).First(&u, id).Error; err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, notFound(err))
	}
	return &u, nil
}

// GetUserByUsername возвращает пользователя по имени для входа.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	if err := r.conn(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, fmt.Errorf("get user %q: %w", username, notFound(err))
	}
	return &u, nil
}

// ListUsers возвращает всех пользователей, упорядоченных по имени.
func (r *Repository) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.conn(ctx).Order("name, id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateUser частично обновляет учётные данные пользователя.
func (r *Repository) UpdateUser(ctx context.Context, id int64, upd UserUpdate) error {
	return r.transaction(ctx, func(tx *gorm.DB) error {
		var u model.User
		if err := tx.Select("id").First(&u, id).Error; err != nil {
			return fmt.Errorf("get user %d: %w", id, notFound(err))
		}

		cols := upd.columns()
		if len(cols) == 0 {
			return nil
		}

		if err := tx.Model(&model.User{}).Where("id = ?", id).Updates(cols).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: %s", ErrUserExists, upd.Username)
			}
			return fmt.Errorf("update user: %w", err)
		}
		return nil
	})
}

// CountUsers возвращает число зарегистрированных пользователей.
func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := r.conn(ctx).Model(&model.User{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// SetUserStatus меняет статус учётной записи.
func (r *Repository) SetUserStatus(ctx context.Context, id int64, status model.UserStatus) error {
	res := r.conn(ctx).Model(&model.User{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("set user status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set user %d status: %w", id, ErrNotFound)
	}
	return nil
}
