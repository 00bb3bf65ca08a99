// Package authz определяет правила доступа к операциям по роли пользователя.
package authz

import "github.com/mmeshcher/paybook/internal/model"

// Action обозначает операцию, требующую проверки прав.
type Action string

const (
	ViewDashboard      Action = "view_dashboard"
	AddCustomer        Action = "add_customer"
	ViewCustomer       Action = "view_customer"
	AddPayment         Action = "add_payment"
	EndCustomer        Action = "end_customer"
	DeleteCustomer     Action = "delete_customer"
	RecordDelivery     Action = "record_delivery"
	ListUsers          Action = "list_users"
	ViewUser           Action = "view_user"
	EditUser           Action = "edit_user"
	EditOtherUser      Action = "edit_other_user"
	ToggleUserStatus   Action = "toggle_user_status"
	ViewReports        Action = "view_reports"
	ViewManagerReports Action = "view_manager_reports"
	Export             Action = "export"
	Backup             Action = "backup"
	Import             Action = "import"
	ManageSettings     Action = "manage_settings"
)

// Decision описывает результат проверки прав.
type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

var managerOnly = map[Action]struct{}{
	EndCustomer:        {},
	DeleteCustomer:     {},
	RecordDelivery:     {},
	ListUsers:          {},
	ViewUser:           {},
	EditOtherUser:      {},
	ToggleUserStatus:   {},
	ViewManagerReports: {},
	Export:             {},
	Backup:             {},
	Import:             {},
	ManageSettings:     {},
}

// ManagerOnly сообщает, доступна ли операция только менеджеру.
func ManagerOnly(action Action) bool {
	_, ok := managerOnly[action]
	return ok
}

// Authorize решает, может ли пользователь выполнить операцию.
// Анонимный пользователь получает отказ всегда.
func Authorize(user *model.User, action Action) Decision {
	if user == nil {
		return Deny
	}
	if ManagerOnly(action) && !user.IsManager() {
		return Deny
	}
	return Allow
}
