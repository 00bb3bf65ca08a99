package service

import (
	"context"

	"github.com/mmeshcher/paybook/internal/authz"
	"github.com/mmeshcher/paybook/internal/model"
	"github.com/mmeshcher/paybook/internal/repository"
)

// GetDashboard собирает данные главной страницы. Менеджер видит всех активных клиентов
// и все передачи средств, пользователь видит только своих клиентов и свои передачи.
func (s *Service) GetDashboard(ctx context.Context, actor *model.User) (*Dashboard, error) {
	if err := allow(actor, authz.ViewDashboard); err != nil {
		return nil, err
	}

	var scope int64
	if !actor.IsManager() {
		scope = actor.ID
	}

	customers, err := s.repo.ListCustomers(ctx, repository.CustomerFilter{
		UserID: scope,
		Status: model.CustomerStatusActive,
	})
	if err != nil {
		return nil, err
	}

	collected, err := s.repo.SumPayments(ctx, repository.PaymentFilter{
		UserID:         scope,
		CustomerStatus: model.CustomerStatusActive,
	})
	if err != nil {
		return nil, err
	}

	delivered, err := s.repo.SumDeliveries(ctx, scope)
	if err != nil {
		return nil, err
	}

	var balance model.Money
	if actor.IsManager() {
		balance, err = s.repo.SumUserBalances(ctx)
		if err != nil {
			return nil, err
		}
	} else {
		u, err := s.repo.GetUserByID(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		balance = u.TotalSum
	}

	return &Dashboard{
		Manager:       actor.IsManager(),
		Customers:     orEmpty(customers),
		TotalPayments: collected + delivered,
		TotalSum:      balance,
	}, nil
}

// GetReports собирает отчёт. Для менеджера дополнительно считаются итоги по каждому пользователю.
func (s *Service) GetReports(ctx context.Context, actor *model.User) (*Report, error) {
	if err := allow(actor, authz.ViewReports); err != nil {
		return nil, err
	}

	manager := authz.Authorize(actor, authz.ViewManagerReports) == authz.Allow

	var scope int64
	if !manager {
		scope = actor.ID
	}

	customers, err := s.repo.ListCustomers(ctx, repository.CustomerFilter{UserID: scope})
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, repository.PaymentFilter{UserID: scope})
	if err != nil {
		return nil, err
	}
	deliveries, err := s.repo.ListDeliveries(ctx, scope)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Manager:      manager,
		Customers:    orEmpty(customers),
		Payments:     orEmpty(payments),
		UserPayments: orEmpty(deliveries),
	}
	for _, p := range payments {
		report.TotalRevenue += p.Amount
	}
	for _, d := range deliveries {
		report.TotalUserPayments += d.Amount
	}

	if !manager {
		return report, nil
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	report.UserTotals = make([]UserTotal, 0, len(users))
	for _, u := range users {
		collected, err := s.repo.SumPayments(ctx, repository.PaymentFilter{UserID: u.ID})
		if err != nil {
			return nil, err
		}
		delivered, err := s.repo.SumDeliveries(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		report.UserTotals = append(report.UserTotals, UserTotal{User: u, Total: collected + delivered})
	}

	return report, nil
}
