package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/mmeshcher/paybook/internal/model"
)

// SumPayments возвращает сумму оплат по фильтру.
func (r *Repository) SumPayments(ctx context.Context, f PaymentFilter) (model.Money, error) {
	var total int64
	err := f.apply(r.conn(ctx).Model(&model.Payment{})).
		Select("CAST(COALESCE(SUM(payments.amount), 0) AS BIGINT)").
		Row().Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum payments: %w", err)
	}
	return model.Money(total), nil
}

// SumDeliveries возвращает сумму передач средств пользователя; при userID == 0 учитываются все пользователи.
func (r *Repository) SumDeliveries(ctx context.Context, userID int64) (model.Money, error) {
	q := r.conn(ctx).Model(&model.UserPayment{})
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}

	var total int64
	if err := q.Select("CAST(COALESCE(SUM(amount), 0) AS BIGINT)").Row().Scan(&total); err != nil {
		return 0, fmt.Errorf("sum deliveries: %w", err)
	}
	return model.Money(total), nil
}

// SumUserBalances возвращает суммарный долг всех пользователей.
func (r *Repository) SumUserBalances(ctx context.Context) (model.Money, error) {
	var total int64
	err := r.conn(ctx).Model(&model.User{}).
		Select("CAST(COALESCE(SUM(total_sum), 0) AS BIGINT)").
		Row().Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum user balances: %w", err)
	}
	return model.Money(total), nil
}

// GetSettings возвращает настройки, создавая строку по умолчанию при первом обращении.
func (r *Repository) GetSettings(ctx context.Context) (*model.Settings, error) {
	s := model.DefaultSettings()
	err := r.conn(ctx).
		Where("id = ?", model.SettingsID).
		Attrs(s).
		FirstOrCreate(&s).Error
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &s, nil
}

// SaveSettings сохраняет настройки резервного копирования.
func (r *Repository) SaveSettings(ctx context.Context, s model.Settings) error {
	s.ID = model.SettingsID
	err := r.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&s).Error
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Dump возвращает содержимое всех таблиц сущностей.
func (r *Repository) Dump(ctx context.Context) (*model.Dump, error) {
	db := r.conn(ctx)
	var d model.Dump

	if err := db.Order("id").Find(&d.Users).Error; err != nil {
		return nil, fmt.Errorf("dump users: %w", err)
	}
	if err := db.Order("id").Find(&d.Customers).Error; err != nil {
		return nil, fmt.Errorf("dump customers: %w", err)
	}
	if err := db.Order("id").Find(&d.Payments).Error; err != nil {
		return nil, fmt.Errorf("dump payments: %w", err)
	}
	if err := db.Order("id").Find(&d.UserPayments).Error; err != nil {
		return nil, fmt.Errorf("dump user payments: %w", err)
	}

	return &d, nil
}
