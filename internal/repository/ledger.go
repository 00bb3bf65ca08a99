package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mmeshcher/paybook/internal/model"
)

// CustomerFilter ограничивает выборку клиентов. Нулевые поля не фильтруют.
type CustomerFilter struct {
	UserID int64
	Status model.CustomerStatus
}

// PaymentFilter ограничивает выборку оплат. Нулевые поля не фильтруют.
type PaymentFilter struct {
	CustomerID     int64
	UserID         int64
	CustomerStatus model.CustomerStatus
}

func (f PaymentFilter) apply(q *gorm.DB) *gorm.DB {
	if f.UserID != 0 || f.CustomerStatus != "" {
		q = q.Joins("JOIN customers ON customers.id = payments.customer_id")
	}
	if f.CustomerID != 0 {
		q = q.Where("payments.customer_id = ?", f.CustomerID)
	}
	if f.UserID != 0 {
		q = q.Where("customers.user_id = ?", f.UserID)
	}
	if f.CustomerStatus != "" {
		q = q.Where("customers.status = ?", f.CustomerStatus)
	}
	return q
}

// CreateCustomer сохраняет клиента и в той же транзакции увеличивает долг владельца на ожидаемую сумму оплаты.
func (r *Repository) CreateCustomer(ctx context.Context, c *model.Customer) error {
	return r.transaction(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&model.User{}).
			Where("id = ?", c.UserID).
			Update("total_sum", gorm.Expr("total_sum + ?", c.PaymentValue))
		if res.Error != nil {
			return fmt.Errorf("increase user total: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user %d: %w", c.UserID, ErrNotFound)
		}

		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("insert customer: %w", err)
		}
		return nil
	})
}

// GetCustomer возвращает клиента по идентификатору.
func (r *Repository) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	var c model.Customer
	if err := r.conn(ctx).First(&c, id).Error; err != nil {
		return nil, fmt.Errorf("get customer %d: %w", id, notFound(err))
	}
	return &c, nil
}

// ListCustomers возвращает клиентов по фильтру в порядке создания.
func (r *Repository) ListCustomers(ctx context.Context, f CustomerFilter) ([]model.Customer, error) {
	q := r.conn(ctx).Order("id")
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var customers []model.Customer
	if err := q.Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

// EndCustomer переводит клиента в завершённый статус. Суммы не меняются.
func (r *Repository) EndCustomer(ctx context.Context, id int64) error {
	res := r.conn(ctx).Model(&model.Customer{}).Where("id = ?", id).Update("status", model.CustomerStatusEnded)
	if res.Error != nil {
		return fmt.Errorf("end customer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("customer %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteCustomer удаляет завершённого клиента вместе с его оплатами.
// Долг владельца, начисленный при создании клиента, не пересчитывается.
func (r *Repository) DeleteCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	var c model.Customer
	err := r.transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&c, id).Error; err != nil {
			return fmt.Errorf("get customer %d: %w", id, notFound(err))
		}
		if !c.IsEnded() {
			return ErrCustomerNotEnded
		}

		if err := tx.Where("customer_id = ?", id).Delete(&model.Payment{}).Error; err != nil {
			return fmt.Errorf("delete payments: %w", err)
		}
		if err := tx.Delete(&model.Customer{}, id).Error; err != nil {
			return fmt.Errorf("delete customer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// AddPayment сохраняет оплату и в той же транзакции увеличивает сумму, полученную от клиента.
func (r *Repository) AddPayment(ctx context.Context, p *model.Payment) error {
	return r.transaction(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&model.Customer{}).
			Where("id = ?", p.CustomerID).
			Update("total_sum", gorm.Expr("total_sum + ?", p.Amount))
		if res.Error != nil {
			return fmt.Errorf("increase customer total: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("customer %d: %w", p.CustomerID, ErrNotFound)
		}

		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		return nil
	})
}

// ListPayments возвращает оплаты по фильтру в порядке поступления.
func (r *Repository) ListPayments(ctx context.Context, f PaymentFilter) ([]model.Payment, error) {
	q := f.apply(r.conn(ctx).Model(&model.Payment{})).Select("payments.*").Order("payments.id")

	var payments []model.Payment
	if err := q.Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// RecordDelivery сохраняет передачу средств и в той же транзакции уменьшает долг пользователя.
// Долг может стать отрицательным.
func (r *Repository) RecordDelivery(ctx context.Context, up *model.UserPayment) error {
	return r.transaction(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&model.User{}).
			Where("id = ?", up.UserID).
			Update("total_sum", gorm.Expr("total_sum - ?", up.Amount))
		if res.Error != nil {
			return fmt.Errorf("decrease user total: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user %d: %w", up.UserID, ErrNotFound)
		}

		if err := tx.Create(up).Error; err != nil {
			return fmt.Errorf("insert delivery: %w", err)
		}
		return nil
	})
}

// ListDeliveries возвращает передачи средств пользователя; при userID == 0 возвращаются передачи всех пользователей.
func (r *Repository) ListDeliveries(ctx context.Context, userID int64) ([]model.UserPayment, error) {
	q := r.conn(ctx).Order("id")
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}

	var deliveries []model.UserPayment
	if err := q.Find(&deliveries).Error; err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	return deliveries, nil
}
