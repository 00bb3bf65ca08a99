package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/paybook/internal/authz"
	"github.com/mmeshcher/paybook/internal/model"
	"github.com/mmeshcher/paybook/internal/repository"
)

// RegisterInput содержит данные регистрации.
type RegisterInput struct {
	Username string
	Name     string
	Password string
	Role     model.Role
}

// UserUpdate содержит изменяемые учётные данные. Пустые поля не меняются.
type UserUpdate struct {
	Username string
	Name     string
	Password string
}

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, in RegisterInput) (*model.User, error) {
	hashed, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Username: in.Username,
		Name:     in.Name,
		Password: hashed,
		Role:     in.Role,
		Status:   model.UserStatusActive,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, repository.ErrUserExists
		}
		return nil, err
	}
	return u, nil
}

// AuthenticateUser проверяет логин и пароль. Статус учётной записи проверяется после совпадения пароля.
func (s *Service) AuthenticateUser(ctx context.Context, username, password string) (*model.User, error) {
	u, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if u.IsDisabled() {
		return nil, ErrAccountDisabled
	}

	return u, nil
}

// SeedManager создаёт менеджера по умолчанию, если пользователя с таким именем ещё нет.
func (s *Service) SeedManager(ctx context.Context, username, password string) (bool, error) {
	_, err := s.repo.GetUserByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}

	_, err = s.RegisterUser(ctx, RegisterInput{
		Username: username,
		Name:     "System manager",
		Password: password,
		Role:     model.RoleManager,
	})
	if err != nil {
		return false, fmt.Errorf("seed manager: %w", err)
	}
	return true, nil
}

// UserByID возвращает пользователя сессии.
func (s *Service) UserByID(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// ListUsers возвращает всех пользователей с их текущим долгом.
func (s *Service) ListUsers(ctx context.Context, actor *model.User) ([]UserTotal, error) {
	if err := allow(actor, authz.ListUsers); err != nil {
		return nil, err
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]UserTotal, 0, len(users))
	for _, u := range users {
		res = append(res, UserTotal{User: u, Total: u.TotalSum})
	}
	return res, nil
}

// GetUserDetail возвращает карточку пользователя для менеджера.
func (s *Service) GetUserDetail(ctx context.Context, actor *model.User, id int64) (*UserDetail, error) {
	if err := allow(actor, authz.ViewUser); err != nil {
		return nil, err
	}

	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	customers, err := s.repo.ListCustomers(ctx, repository.CustomerFilter{UserID: id})
	if err != nil {
		return nil, err
	}

	deliveries, err := s.repo.ListDeliveries(ctx, id)
	if err != nil {
		return nil, err
	}

	collected, err := s.repo.SumPayments(ctx, repository.PaymentFilter{UserID: id})
	if err != nil {
		return nil, err
	}
	delivered, err := s.repo.SumDeliveries(ctx, id)
	if err != nil {
		return nil, err
	}

	return &UserDetail{
		User:          *u,
		Customers:     orEmpty(customers),
		UserPayments:  orEmpty(deliveries),
		TotalPayments: collected + delivered,
		TotalSum:      u.TotalSum,
	}, nil
}

func canEditUser(actor *model.User, id int64) error {
	if err := allow(actor, authz.EditUser); err != nil {
		return err
	}
	if actor.ID != id {
		return allow(actor, authz.EditOtherUser)
	}
	return nil
}

// GetUserForEdit возвращает пользователя для формы редактирования.
func (s *Service) GetUserForEdit(ctx context.Context, actor *model.User, id int64) (*model.User, error) {
	if err := canEditUser(actor, id); err != nil {
		return nil, err
	}
	return s.repo.GetUserByID(ctx, id)
}

// EditUser частично обновляет учётные данные: себя может менять любой, других может менять только менеджер.
func (s *Service) EditUser(ctx context.Context, actor *model.User, id int64, in UserUpdate) error {
	if err := canEditUser(actor, id); err != nil {
		return err
	}

	upd := repository.UserUpdate{Username: in.Username, Name: in.Name}
	if in.Password != "" {
		hashed, err := s.hashPassword(in.Password)
		if err != nil {
			return err
		}
		upd.Password = hashed
	}

	return s.repo.UpdateUser(ctx, id, upd)
}

// ToggleUserStatus переключает статус active/disabled. Менеджера отключить нельзя.
func (s *Service) ToggleUserStatus(ctx context.Context, actor *model.User, id int64) (model.UserStatus, error) {
	if err := allow(actor, authz.ToggleUserStatus); err != nil {
		return "", err
	}

	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return "", err
	}
	if u.IsManager() {
		return u.Status, ErrManagerStatus
	}

	next := model.UserStatusDisabled
	if u.IsDisabled() {
		next = model.UserStatusActive
	}

	if err := s.repo.SetUserStatus(ctx, id, next); err != nil {
		return "", err
	}
	return next, nil
}
