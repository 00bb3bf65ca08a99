package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mmeshcher/paybook/internal/service"
	"github.com/mmeshcher/paybook/internal/validation"
)

type editUserForm struct {
	Username string `form:"username" validate:"max=80"`
	Name     string `form:"name" validate:"max=120"`
	Password string `form:"password"`
}

type deliveryForm struct {
	Amount        string `form:"amount" validate:"required"`
	Date          string `form:"date"`
	DelivererName string `form:"deliverer_name" validate:"max=120"`
	Notes         string `form:"notes"`
}

func userPath(id int64) string {
	return "/user/" + strconv.FormatInt(id, 10)
}

// Users отдаёт список пользователей с их долгом.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	users, err := h.service.ListUsers(r.Context(), actor)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.writeView(w, r, users)
}

// UserDetail отдаёт карточку пользователя.
func (h *Handler) UserDetail(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	d, err := h.service.GetUserDetail(r.Context(), actor, id)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.writeView(w, r, d)
}

// EditUserPage отдаёт данные формы редактирования пользователя.
func (h *Handler) EditUserPage(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	u, err := h.service.GetUserForEdit(r.Context(), actor, id)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.writeView(w, r, u)
}

// EditUser частично обновляет учётные данные пользователя.
func (h *Handler) EditUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	back := "/dashboard"
	if actor.IsManager() {
		back = "/users"
	}

	form := editUserForm{
		Username: formValue(r, "username"),
		Name:     formValue(r, "name"),
		Password: r.PostFormValue("password"),
	}
	if err := validation.Struct(form); err != nil {
		h.fail(w, r, err, back)
		return
	}

	err := h.service.EditUser(r.Context(), actor, id, service.UserUpdate{
		Username: form.Username,
		Name:     form.Name,
		Password: form.Password,
	})
	if err != nil {
		h.fail(w, r, err, back)
		return
	}

	h.redirect(w, r, back, "User updated")
}

// UpdateDelivery фиксирует передачу средств пользователем.
func (h *Handler) UpdateDelivery(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	form := deliveryForm{
		Amount:        formValue(r, "amount"),
		Date:          formValue(r, "date"),
		DelivererName: formValue(r, "deliverer_name"),
		Notes:         formValue(r, "notes"),
	}
	if err := validation.Struct(form); err != nil {
		h.fail(w, r, err, "/users")
		return
	}

	amount, err := validation.Amount("amount", form.Amount)
	if err != nil {
		h.fail(w, r, err, "/users")
		return
	}

	// Пустая дата остаётся нулевой: сервис подставит текущее время.
	date, err := validation.Date("date", form.Date, time.Time{})
	if err != nil {
		h.fail(w, r, err, "/users")
		return
	}

	_, err = h.service.RecordDelivery(r.Context(), actor, userID, service.DeliveryInput{
		Amount:        amount,
		Date:          date,
		DelivererName: form.DelivererName,
		Notes:         form.Notes,
	})
	if err != nil {
		h.fail(w, r, err, "/users")
		return
	}

	h.redirect(w, r, "/users", "Delivery recorded")
}

// ToggleUserStatus включает или отключает учётную запись.
func (h *Handler) ToggleUserStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	status, err := h.service.ToggleUserStatus(r.Context(), actor, userID)
	if err != nil {
		h.fail(w, r, err, "/users")
		return
	}

	h.redirect(w, r, "/users", "User status updated: "+string(status))
}
