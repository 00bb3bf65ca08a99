// Package model содержит доменные сущности сервиса учёта платежей.
package model

import "time"

// Role определяет роль пользователя.
type Role string

const (
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

// UserStatus описывает состояние учётной записи.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// CustomerStatus описывает состояние отношений с клиентом.
type CustomerStatus string

const (
	CustomerStatusActive CustomerStatus = "active"
	CustomerStatusEnded  CustomerStatus = "ended"
)

// User представляет сотрудника или менеджера.
// Поле TotalSum хранит сумму, которую пользователь ещё должен передать наверх.
type User struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	Username       string     `json:"username"`
	Name           string     `json:"name"`
	Password       string     `json:"-"`
	Role           Role       `json:"role"`
	Status         UserStatus `json:"status"`
	DeliveryAmount Money      `json:"delivery_amount"`
	TotalSum       Money      `json:"total_sum"`
}

// IsManager сообщает, обладает ли пользователь правами менеджера.
func (u *User) IsManager() bool {
	return u != nil && u.Role == RoleManager
}

// IsDisabled сообщает, отключена ли учётная запись.
func (u *User) IsDisabled() bool {
	return u != nil && u.Status == UserStatusDisabled
}

// Customer описывает клиента пользователя с ожидаемой суммой оплаты.
type Customer struct {
	ID           int64          `gorm:"primaryKey" json:"id"`
	Name         string         `json:"name"`
	Phone        string         `json:"phone"`
	Address      string         `json:"address"`
	PaymentValue Money          `json:"payment_value"`
	TotalSum     Money          `json:"total_sum"`
	Status       CustomerStatus `json:"status"`
	Notes        string         `json:"notes"`
	CreatedAt    time.Time      `json:"created_at"`
	UserID       int64          `json:"user_id"`
}

// IsEnded сообщает, завершены ли отношения с клиентом.
func (c *Customer) IsEnded() bool {
	return c.Status == CustomerStatusEnded
}

// Payment описывает оплату, полученной от клиента.
type Payment struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	Amount     Money     `json:"amount"`
	Date       time.Time `json:"date"`
	CustomerID int64     `json:"customer_id"`
}

// UserPayment описывает передачу собранных пользователем средств наверх.
type UserPayment struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	Amount        Money     `json:"amount"`
	Date          time.Time `json:"date"`
	DelivererName string    `json:"deliverer_name"`
	Notes         string    `json:"notes"`
	UserID        int64     `json:"user_id"`
}

// BackupInterval задаёт периодичность автоматических резервных копий.
type BackupInterval string

const (
	BackupHourly  BackupInterval = "hourly"
	BackupDaily   BackupInterval = "daily"
	BackupWeekly  BackupInterval = "weekly"
	BackupMonthly BackupInterval = "monthly"
)

// Settings хранит единственную строку настроек резервного копирования.
type Settings struct {
	ID             int64          `gorm:"primaryKey" json:"-"`
	BackupPath     string         `json:"backup_path"`
	BackupInterval BackupInterval `json:"backup_interval"`
}

// TableName фиксирует имя таблицы настроек.
func (Settings) TableName() string { return "settings" }

// SettingsID задаёт идентификатор единственной строки настроек.
const SettingsID = 1

// DefaultSettings возвращает настройки по умолчанию.
func DefaultSettings() Settings {
	return Settings{ID: SettingsID, BackupInterval: BackupDaily}
}

// Dump содержит полное содержимое всех таблиц сущностей.
type Dump struct {
	Users        []User
	Customers    []Customer
	Payments     []Payment
	UserPayments []UserPayment
}
