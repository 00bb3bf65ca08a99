package service

import (
	"context"
	"time"

	"github.com/mmeshcher/paybook/internal/authz"
	"github.com/mmeshcher/paybook/internal/model"
	"github.com/mmeshcher/paybook/internal/repository"
)

// CustomerInput содержит данные нового клиента.
type CustomerInput struct {
	Name         string
	Phone        string
	Address      string
	PaymentValue model.Money
	Notes        string
}

// DeliveryInput содержит данные передачи средств.
type DeliveryInput struct {
	Amount        model.Money
	Date          time.Time
	DelivererName string
	Notes         string
}

// AddCustomer создаёт клиента текущего пользователя. Долг пользователя сразу
// увеличивается на ожидаемую сумму оплаты, независимо от фактических оплат.
func (s *Service) AddCustomer(ctx context.Context, actor *model.User, in CustomerInput) (*model.Customer, error) {
	if err := allow(actor, authz.AddCustomer); err != nil {
		return nil, err
	}

	c := &model.Customer{
		Name:         in.Name,
		Phone:        in.Phone,
		Address:      in.Address,
		PaymentValue: in.PaymentValue,
		TotalSum:     0,
		Status:       model.CustomerStatusActive,
		Notes:        in.Notes,
		CreatedAt:    s.now(),
		UserID:       actor.ID,
	}
	if err := s.repo.CreateCustomer(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ownCustomer(ctx context.Context, actor *model.User, action authz.Action, id int64) (*model.Customer, error) {
	if err := allow(actor, action); err != nil {
		return nil, err
	}

	c, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsManager() && c.UserID != actor.ID {
		return nil, ErrForbidden
	}
	return c, nil
}

// GetCustomerDetail возвращает клиента с его оплатами. Пользователь видит только своих клиентов.
func (s *Service) GetCustomerDetail(ctx context.Context, actor *model.User, id int64) (*CustomerDetail, error) {
	c, err := s.ownCustomer(ctx, actor, authz.ViewCustomer, id)
	if err != nil {
		return nil, err
	}

	payments, err := s.repo.ListPayments(ctx, repository.PaymentFilter{CustomerID: id})
	if err != nil {
		return nil, err
	}

	return &CustomerDetail{Customer: *c, Payments: orEmpty(payments)}, nil
}

// AddPayment регистрирует оплату клиента. Долг пользователя не меняется.
func (s *Service) AddPayment(ctx context.Context, actor *model.User, customerID int64, amount model.Money) (*model.Payment, error) {
	if _, err := s.ownCustomer(ctx, actor, authz.AddPayment, customerID); err != nil {
		return nil, err
	}

	p := &model.Payment{
		Amount:     amount,
		Date:       s.now(),
		CustomerID: customerID,
	}
	if err := s.repo.AddPayment(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// EndCustomer завершает отношения с клиентом.
func (s *Service) EndCustomer(ctx context.Context, actor *model.User, id int64) error {
	if err := allow(actor, authz.EndCustomer); err != nil {
		return err
	}
	return s.repo.EndCustomer(ctx, id)
}

// DeleteCustomer удаляет завершённого клиента и его оплаты.
// Сумма, начисленная пользователю при создании клиента, не возвращается.
func (s *Service) DeleteCustomer(ctx context.Context, actor *model.User, id int64) (*model.Customer, error) {
	if err := allow(actor, authz.DeleteCustomer); err != nil {
		return nil, err
	}
	return s.repo.DeleteCustomer(ctx, id)
}

// RecordDelivery фиксирует передачу средств пользователем и уменьшает его долг.
// Проверки на уход долга в минус нет.
func (s *Service) RecordDelivery(ctx context.Context, actor *model.User, userID int64, in DeliveryInput) (*model.UserPayment, error) {
	if err := allow(actor, authz.RecordDelivery); err != nil {
		return nil, err
	}

	date := in.Date
	if date.IsZero() {
		date = s.now()
	}

	up := &model.UserPayment{
		Amount:        in.Amount,
		Date:          date,
		DelivererName: in.DelivererName,
		Notes:         in.Notes,
		UserID:        userID,
	}
	if err := s.repo.RecordDelivery(ctx, up); err != nil {
		return nil, err
	}
	return up, nil
}
