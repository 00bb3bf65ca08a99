package service

import "github.com/mmeshcher/paybook/internal/model"

// Dashboard содержит данные главной страницы.
type Dashboard struct {
	Manager       bool             `json:"manager"`
	Customers     []model.Customer `json:"customers"`
	TotalPayments model.Money      `json:"total_payments"`
	TotalSum      model.Money      `json:"total_sum"`
}

// CustomerDetail содержит карточку клиента.
type CustomerDetail struct {
	Customer model.Customer  `json:"customer"`
	Payments []model.Payment `json:"payments"`
}

// UserTotal связывает пользователя с итоговой суммой.
type UserTotal struct {
	User  model.User  `json:"user"`
	Total model.Money `json:"total"`
}

// UserDetail содержит карточку пользователя.
type UserDetail struct {
	User          model.User          `json:"user"`
	Customers     []model.Customer    `json:"customers"`
	UserPayments  []model.UserPayment `json:"user_payments"`
	TotalPayments model.Money         `json:"total_payments"`
	TotalSum      model.Money         `json:"total_sum"`
}

// Report содержит отчёт по оплатам и передачам средств.
type Report struct {
	Manager           bool                `json:"manager"`
	Customers         []model.Customer    `json:"customers"`
	Payments          []model.Payment     `json:"payments"`
	UserPayments      []model.UserPayment `json:"user_payments"`
	TotalRevenue      model.Money         `json:"total_revenue"`
	TotalUserPayments model.Money         `json:"total_user_payments"`
	UserTotals        []UserTotal         `json:"user_totals,omitempty"`
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
