// Package service реализует бизнес-логику учёта клиентов, оплат и передач средств.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/paybook/internal/authz"
	"github.com/mmeshcher/paybook/internal/model"
	"github.com/mmeshcher/paybook/internal/repository"
)

var (
	// ErrInvalidCredentials возвращается при неверном логине или пароле.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled возвращается при входе в отключённую учётную запись.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrForbidden возвращается, если у пользователя нет прав на операцию.
	ErrForbidden = errors.New("access denied")
	// ErrManagerStatus возвращается при попытке отключить менеджера.
	ErrManagerStatus = errors.New("manager account cannot be disabled")
	// ErrSnapshotFormat возвращается, если файл снимка имеет неподдерживаемое расширение.
	ErrSnapshotFormat = errors.New("unsupported snapshot file")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, id int64, upd repository.UserUpdate) error
	SetUserStatus(ctx context.Context, id int64, status model.UserStatus) error
	CountUsers(ctx context.Context) (int64, error)

	CreateCustomer(ctx context.Context, c *model.Customer) error
	GetCustomer(ctx context.Context, id int64) (*model.Customer, error)
	ListCustomers(ctx context.Context, f repository.CustomerFilter) ([]model.Customer, error)
	EndCustomer(ctx context.Context, id int64) error
	DeleteCustomer(ctx context.Context, id int64) (*model.Customer, error)

	AddPayment(ctx context.Context, p *model.Payment) error
	ListPayments(ctx context.Context, f repository.PaymentFilter) ([]model.Payment, error)
	RecordDelivery(ctx context.Context, up *model.UserPayment) error
	ListDeliveries(ctx context.Context, userID int64) ([]model.UserPayment, error)

	SumPayments(ctx context.Context, f repository.PaymentFilter) (model.Money, error)
	SumDeliveries(ctx context.Context, userID int64) (model.Money, error)
	SumUserBalances(ctx context.Context) (model.Money, error)

	GetSettings(ctx context.Context) (*model.Settings, error)
	SaveSettings(ctx context.Context, s model.Settings) error
	Dump(ctx context.Context) (*model.Dump, error)
	Snapshot(ctx context.Context, dest string) error
	Restore(ctx context.Context, src io.Reader) error
}

// Scheduler перепланирует автоматическое резервное копирование.
type Scheduler interface {
	Reschedule(interval model.BackupInterval) error
}

// Service содержит бизнес-логику приложения.
type Service struct {
	repo         Repository
	backupDir    string
	passwordCost int
	now          func() time.Time
	scheduler    Scheduler
}

// Option настраивает Service.
type Option func(*Service)

// WithBackupDir задаёт каталог снимков по умолчанию.
func WithBackupDir(dir string) Option {
	return func(s *Service) { s.backupDir = dir }
}

// WithPasswordCost задаёт стоимость bcrypt.
func WithPasswordCost(cost int) Option {
	return func(s *Service) { s.passwordCost = cost }
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService создаёт новый сервис с указанным репозиторием.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		backupDir:    "backups",
		passwordCost: bcrypt.DefaultCost,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetScheduler подключает планировщик автоматических резервных копий.
func (s *Service) SetScheduler(sc Scheduler) {
	s.scheduler = sc
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	if _, err := s.repo.CountUsers(ctx); err != nil {
		return fmt.Errorf("ping store: %w", err)
	}
	return nil
}

func allow(actor *model.User, action authz.Action) error {
	if authz.Authorize(actor, action) == authz.Deny {
		return ErrForbidden
	}
	return nil
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.passwordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
