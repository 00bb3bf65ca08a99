package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/paybook/internal/model"
	"github.com/mmeshcher/paybook/internal/repository"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *repository.Repository) {
	t.Helper()

	dir := t.TempDir()
	repo, err := repository.NewSQLiteRepository(filepath.Join(dir, "customers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	svc := NewService(repo,
		WithPasswordCost(bcrypt.MinCost),
		WithBackupDir(filepath.Join(dir, "backups")),
		WithClock(func() time.Time { return testNow }),
	)
	return svc, repo
}

func register(t *testing.T, svc *Service, username string, role model.Role) *model.User {
	t.Helper()

	u, err := svc.RegisterUser(context.Background(), RegisterInput{
		Username: username,
		Name:     strings.ToUpper(username),
		Password: "secret",
		Role:     role,
	})
	require.NoError(t, err)
	return u
}

func reload(t *testing.T, svc *Service, id int64) *model.User {
	t.Helper()

	u, err := svc.UserByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func TestRegisterUser_HashesPassword(t *testing.T) {
	svc, _ := newTestService(t)

	u := register(t, svc, "alice", model.RoleUser)

	assert.NotEqual(t, "secret", u.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("secret")))
	assert.Equal(t, model.UserStatusActive, u.Status)
}

func TestRegisterUser_Duplicate(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	manager := register(t, svc, "admin", model.RoleManager)
	register(t, svc, "alice", model.RoleUser)

	_, err := svc.RegisterUser(ctx, RegisterInput{Username: "alice", Name: "Other", Password: "x", Role: model.RoleUser})
	require.ErrorIs(t, err, repository.ErrUserExists)

	users, err := svc.ListUsers(ctx, manager)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	all, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAuthenticateUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	manager := register(t, svc, "admin", model.RoleManager)
	alice := register(t, svc, "alice", model.RoleUser)

	got, err := svc.AuthenticateUser(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = svc.AuthenticateUser(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.AuthenticateUser(ctx, "nobody", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	status, err := svc.ToggleUserStatus(ctx, manager, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusDisabled, status)

	_, err = svc.AuthenticateUser(ctx, "alice", "secret")
	assert.ErrorIs(t, err, ErrAccountDisabled)

	_, err = svc.AuthenticateUser(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "disabled status must not leak without a password match")

	status, err = svc.ToggleUserStatus(ctx, manager, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusActive, status)

	_, err = svc.AuthenticateUser(ctx, "alice", "secret")
	assert.NoError(t, err)
}

func TestToggleUserStatus_ManagerNeverDisabled(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	manager := register(t, svc, "admin", model.RoleManager)
	other := register(t, svc, "boss", model.RoleManager)

	_, err := svc.ToggleUserStatus(ctx, manager, other.ID)
	require.ErrorIs(t, err, ErrManagerStatus)
	assert.Equal(t, model.UserStatusActive, reload(t, svc, other.ID).Status)

	_, err = svc.ToggleUserStatus(ctx, manager, manager.ID)
	require.ErrorIs(t, err, ErrManagerStatus)

	_, err = svc.ToggleUserStatus(ctx, manager, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLedgerScenario(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	manager := register(t, svc, "admin", model.RoleManager)
	u := register(t, svc, "u", model.RoleUser)

	c, err := svc.AddCustomer(ctx, u, CustomerInput{Name: "C", PaymentValue: 10000})
	require.NoError(t, err)
	assert.Equal(t, model.Money(0), c.TotalSum)
	assert.Equal(t, model.Money(10000), reload(t, svc, u.ID).TotalSum)

	_, err = svc.AddPayment(ctx, u, c.ID, 4000)
	require.NoError(t, err)

	detail, err := svc.GetCustomerDetail(ctx, u, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Money(4000), detail.Customer.TotalSum)
	require.Len(t, detail.Payments, 1)
	assert.Equal(t, model.Money(10000), reload(t, svc, u.ID).TotalSum)

	_, err = svc.RecordDelivery(ctx, manager, u.ID, DeliveryInput{Amount: 6000, DelivererName: "U"})
	require.NoError(t, err)
	assert.Equal(t, model.Money(4000), reload(t, svc, u.ID).TotalSum)

	require.NoError(t, svc.EndCustomer(ctx, manager, c.ID))

	deleted, err := svc.DeleteCustomer(ctx, manager, c.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, deleted.UserID)

	_, err = svc.GetCustomerDetail(ctx, manager, c.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	report, err := svc.GetReports(ctx, manager)
	require.NoError(t, err)
	assert.Empty(t, report.Payments)
	assert.Empty(t, report.Customers)

	assert.Equal(t, model.Money(4000), reload(t, svc, u.ID).TotalSum)
}

func TestAddPayment_SumsExactly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u := register(t, svc, "u", model.RoleUser)

	values := []model.Money{10000, 2550, 1}
	var wantUser model.Money
	for i, v := range values {
		c, err := svc.AddCustomer(ctx, u, CustomerInput{Name: "C", PaymentValue: v})
		require.NoError(t, err)
		wantUser += v

		var wantCustomer model.Money
		for j := 0; j <= i; j++ {
			amount := model.Money(101 * (j + 1))
			_, err := svc.AddPayment(ctx, u, c.ID, amount)
			require.NoError(t, err)
			wantCustomer += amount
		}

		detail, err := svc.GetCustomerDetail(ctx, u, c.ID)
		require.NoError(t, err)
		assert.Equal(t, wantCustomer, detail.Customer.TotalSum)

		var sum model.Money
		for _, p := range detail.Payments {
			sum += p.Amount
		}
		assert.Equal(t, sum, detail.Customer.TotalSum)
	}

	assert.Equal(t, wantUser, reload(t, svc, u.ID).TotalSum)
}

func TestRecordDelivery_NegativeBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	manager := register(t, svc, "admin", model.RoleManager)
	u := register(t, svc, "u", model.RoleUser)

	_, err := svc.AddCustomer(ctx, u, CustomerInput{Name: "C", PaymentValue: 1000})
	require.NoError(t, err)

	for _, amount := range []model.Money{400, 700, 1} {
		before := reload(t, svc, u.ID).TotalSum
		_, err := svc.RecordDelivery(ctx, manager, u.ID, DeliveryInput{Amount: amount})
		require.NoError(t, err)
		assert.Equal(t, before-amount, reload(t, svc, u.ID).TotalSum)
	}
	assert.Equal(t, model.Money(-101), reload(t, svc, u.ID).TotalSum)

	_, err = svc.RecordDelivery(ctx, manager, 999, DeliveryInput{Amount: 1})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRecordDelivery_Date(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	manager := register(t, svc, "admin", model.RoleManager)
	u := register(t, svc, "u", model.RoleUser)

	explicit := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	_, err := svc.RecordDelivery(ctx, manager, u.ID, DeliveryInput{Amount: 100, Date: explicit})
	require.NoError(t, err)
	_, err = svc.RecordDelivery(ctx, manager, u.ID, DeliveryInput{Amount: 100})
	require.NoError(t, err)

	deliveries, err := repo.ListDeliveries(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, deliveries, 2)
	assert.True(t, explicit.Equal(deliveries[0].Date))
	assert.True(t, testNow.Equal(deliveries[1].Date))
}

func TestDeleteCustomer_RequiresEnded(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	manager := register(t, svc, "admin", model.RoleManager)
	u := register(t, svc, "u", model.RoleUser)

	c, err := svc.AddCustomer(ctx, u, CustomerInput{Name: "C", PaymentValue: 100})
	require.NoError(t, err)

	_, err = svc.DeleteCustomer(ctx, manager, c.ID)
	require.ErrorIs(t, err, repository.ErrCustomerNotEnded)

	_, err = svc.GetCustomerDetail(ctx, manager, c.ID)
	assert.NoError(t, err)
}

func TestCustomerVisibility(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	manager := register(t, svc, "admin", model.RoleManager)
	alice := register(t, svc, "alice", model.RoleUser)
	bob := register(t, svc, "bob", model.RoleUser)

	c, err := svc.AddCustomer(ctx, alice, CustomerInput{Name: "C", PaymentValue: 100})
	require.NoError(t, err)

	_, err = svc.GetCustomerDetail(ctx, bob, c.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.AddPayment(ctx, bob, c.ID, 100)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetCustomerDetail(ctx, manager, c.ID)
	assert.NoError(t, err)

	_, err = svc.AddPayment(ctx, manager, c.ID, 100)
	assert.NoError(t, err)

	_, err = svc.GetCustomerDetail(ctx, alice, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestManagerOnlyActionsDenied(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	manager := register(t, svc, "admin", model.RoleManager)
	alice := register(t, svc, "alice", model.RoleUser)
	bob := register(t, svc, "bob", model.RoleUser)

	c, err := svc.AddCustomer(ctx, alice, CustomerInput{Name: "C", PaymentValue: 100})
	require.NoError(t, err)

	actions := map[string]func() error{
		"end customer": func() error { return svc.EndCustomer(ctx, alice, c.ID) },
		"delete customer": func() error {
			_, err := svc.DeleteCustomer(ctx, alice, c.ID)
			return err
		},
		"record delivery": func() error {
			_, err := svc.RecordDelivery(ctx, alice, alice.ID, DeliveryInput{Amount: 100})
			return err
		},
		"edit other user": func() error { return svc.EditUser(ctx, alice, bob.ID, UserUpdate{Name: "x"}) },
		"view other user for edit": func() error {
			_, err := svc.GetUserForEdit(ctx, alice, bob.ID)
			return err
		},
		"toggle status": func() error {
			_, err := svc.ToggleUserStatus(ctx, alice, bob.ID)
			return err
		},
		"list users": func() error {
			_, err := svc.ListUsers(ctx, alice)
			return err
		},
		"user detail": func() error {
			_, err := svc.GetUserDetail(ctx, alice, bob.ID)
			return err
		},
		"export": func() error {
			_, err := svc.Export(ctx, alice)
			return err
		},
		"backup": func() error {
			_, err := svc.Backup(ctx, alice)
			return err
		},
		"import": func() error { return svc.Restore(ctx, alice, "x.db", bytes.NewReader(nil)) },
		"get settings": func() error {
			_, err := svc.GetSettings(ctx, alice)
			return err
		},
		"save settings": func() error {
			return svc.SaveSettings(ctx, alice, model.Settings{BackupInterval: model.BackupDaily})
		},
	}

	for name, action := range actions {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, action(), ErrForbidden)
		})
	}

	detail, err := svc.GetCustomerDetail(ctx, manager, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CustomerStatusActive, detail.Customer.Status)
	assert.Equal(t, model.Money(100), reload(t, svc, alice.ID).TotalSum)
	assert.Equal(t, "BOB", reload(t, svc, bob.ID).Name)
	assert.Equal(t, model.UserStatusActive, reload(t, svc, bob.ID).Status)

	report, err := svc.GetReports(ctx, alice)
	require.NoError(t, err)
	assert.False(t, report.Manager)
	assert.Nil(t, report.UserTotals)
}

func TestEditUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	manager := register(t, svc, "admin", model.RoleManager)
	alice := register(t, svc, "alice", model.RoleUser)
	register(t, svc, "bob", model.RoleUser)

	require.NoError(t, svc.EditUser(ctx, alice, alice.ID, UserUpdate{Name: "Alice"}))
	got := reload(t, svc, alice.ID)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, alice.Password, got.Password)

	require.NoError(t, svc.EditUser(ctx, manager, alice.ID, UserUpdate{Username: "alice2", Password: "new"}))
	_, err := svc.AuthenticateUser(ctx, "alice2", "new")
	require.NoError(t, err)
	_, err = svc.AuthenticateUser(ctx, "alice", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = svc.EditUser(ctx, manager, alice.ID, UserUpdate{Username: "bob"})
	assert.ErrorIs(t, err, repository.ErrUserExists)

	err = svc.EditUser(ctx, manager, 999, UserUpdate{Name: "x"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDashboard(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	manager := register(t, svc, "admin", model.RoleManager)
	alice := register(t, svc, "alice", model.RoleUser)
	bob := register(t, svc, "bob", model.RoleUser)

	a1, err := svc.AddCustomer(ctx, alice, CustomerInput{Name: "A1", PaymentValue: 1000})
	require.NoError(t, err)
	a2, err := svc.AddCustomer(ctx, alice, CustomerInput{Name: "A2", PaymentValue: 2000})
	require.NoError(t, err)
	b1, err := svc.AddCustomer(ctx, bob, CustomerInput{Name: "B1", PaymentValue: 4000})
	require.NoError(t, err)

	_, err = svc.AddPayment(ctx, alice, a1.ID, 100)
	require.NoError(t, err)
	_, err = svc.AddPayment(ctx, alice, a2.ID, 200)
	require.NoError(t, err)
	_, err = svc.AddPayment(ctx, bob, b1.ID, 400)
	require.NoError(t, err)
	require.NoError(t, svc.EndCustomer(ctx, manager, a2.ID))

	_, err = svc.RecordDelivery(ctx, manager, alice.ID, DeliveryInput{Amount: 10})
	require.NoError(t, err)
	_, err = svc.RecordDelivery(ctx, manager, bob.ID, DeliveryInput{Amount: 20})
	require.NoError(t, err)

	d, err := svc.GetDashboard(ctx, manager)
	require.NoError(t, err)
	assert.True(t, d.Manager)
	assert.Len(t, d.Customers, 2)
	assert.Equal(t, model.Money(100+400+10+20), d.TotalPayments)
	assert.Equal(t, model.Money(1000+2000+4000-10-20), d.TotalSum)

	d, err = svc.GetDashboard(ctx, alice)
	require.NoError(t, err)
	assert.False(t, d.Manager)
	require.Len(t, d.Customers, 1)
	assert.Equal(t, a1.ID, d.Customers[0].ID)
	assert.Equal(t, model.Money(100+10), d.TotalPayments)
	assert.Equal(t, model.Money(3000-10), d.TotalSum)

	detail, err := svc.GetUserDetail(ctx, manager, alice.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Customers, 2)
	assert.Len(t, detail.UserPayments, 1)
	assert.Equal(t, model.Money(100+200+10), detail.TotalPayments)
	assert.Equal(t, model.Money(2990), detail.TotalSum)

	report, err := svc.GetReports(ctx, manager)
	require.NoError(t, err)
	assert.Len(t, report.Customers, 3)
	assert.Len(t, report.Payments, 3)
	assert.Equal(t, model.Money(700), report.TotalRevenue)
	assert.Equal(t, model.Money(30), report.TotalUserPayments)
	totals := map[string]model.Money{}
	for _, ut := range report.UserTotals {
		totals[ut.User.Username] = ut.Total
	}
	assert.Equal(t, map[string]model.Money{"admin": 0, "alice": 310, "bob": 420}, totals)

	report, err = svc.GetReports(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, report.Customers, 2)
	assert.Len(t, report.Payments, 2)
	assert.Equal(t, model.Money(300), report.TotalRevenue)
	assert.Equal(t, model.Money(10), report.TotalUserPayments)
}

func TestSeedManager(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.SeedManager(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.SeedManager(ctx, "admin", "other")
	require.NoError(t, err)
	assert.False(t, created)

	u, err := svc.AuthenticateUser(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.True(t, u.IsManager())
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	manager := register(t, svc, "admin", model.RoleManager)
	u := register(t, svc, "u", model.RoleUser)
	c, err := svc.AddCustomer(ctx, u, CustomerInput{Name: "C", PaymentValue: 10000})
	require.NoError(t, err)
	_, err = svc.AddPayment(ctx, u, c.ID, 4000)
	require.NoError(t, err)
	_, err = svc.RecordDelivery(ctx, manager, u.ID, DeliveryInput{Amount: 6000})
	require.NoError(t, err)

	before, err := svc.Export(ctx, manager)
	require.NoError(t, err)

	path, err := svc.Backup(ctx, manager)
	require.NoError(t, err)
	assert.Equal(t, "customers_backup_20240601_120000.db", filepath.Base(path))

	_, err = svc.AddCustomer(ctx, u, CustomerInput{Name: "later", PaymentValue: 1})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	err = svc.Restore(ctx, manager, "backup.csv", bytes.NewReader(data))
	require.True(t, errors.Is(err, ErrSnapshotFormat))

	require.NoError(t, svc.Restore(ctx, manager, filepath.Base(path), bytes.NewReader(data)))

	after, err := repo.Dump(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

type stubScheduler struct {
	intervals []model.BackupInterval
}

func (s *stubScheduler) Reschedule(interval model.BackupInterval) error {
	s.intervals = append(s.intervals, interval)
	return nil
}

func TestSettings(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	sched := &stubScheduler{}
	svc.SetScheduler(sched)

	manager := register(t, svc, "admin", model.RoleManager)

	require.NoError(t, svc.StartScheduler(ctx))

	s, err := svc.GetSettings(ctx, manager)
	require.NoError(t, err)
	assert.Equal(t, model.BackupDaily, s.BackupInterval)

	dir := t.TempDir()
	require.NoError(t, svc.SaveSettings(ctx, manager, model.Settings{BackupPath: dir, BackupInterval: model.BackupWeekly}))
	assert.Equal(t, []model.BackupInterval{model.BackupDaily, model.BackupWeekly}, sched.intervals)

	require.Error(t, svc.SaveSettings(ctx, manager, model.Settings{BackupInterval: "yearly"}))

	path, err := svc.Backup(ctx, manager)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
