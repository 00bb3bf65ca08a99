package handler

import (
	"net/http"
	"strconv"

	"github.com/mmeshcher/paybook/internal/service"
	"github.com/mmeshcher/paybook/internal/validation"
)

type customerForm struct {
	Name         string `form:"name" validate:"required,max=200"`
	Phone        string `form:"phone" validate:"max=50"`
	Address      string `form:"address" validate:"max=500"`
	PaymentValue string `form:"payment_value" validate:"required"`
	Notes        string `form:"notes"`
}

type paymentForm struct {
	Amount string `form:"amount" validate:"required"`
}

func customerPath(id int64) string {
	return "/customer/" + strconv.FormatInt(id, 10)
}

// Dashboard отдаёт данные главной страницы.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	d, err := h.service.GetDashboard(r.Context(), actor)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.writeView(w, r, d)
}

// AddCustomer создаёт клиента текущего пользователя.
func (h *Handler) AddCustomer(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	form := customerForm{
		Name:         formValue(r, "name"),
		Phone:        formValue(r, "phone"),
		Address:      formValue(r, "address"),
		PaymentValue: formValue(r, "payment_value"),
		Notes:        formValue(r, "notes"),
	}
	if err := validation.Struct(form); err != nil {
		h.fail(w, r, err, "/dashboard")
		return
	}

	value, err := validation.NonNegativeAmount("payment_value", form.PaymentValue)
	if err != nil {
		h.fail(w, r, err, "/dashboard")
		return
	}

	_, err = h.service.AddCustomer(r.Context(), actor, service.CustomerInput{
		Name:         form.Name,
		Phone:        form.Phone,
		Address:      form.Address,
		PaymentValue: value,
		Notes:        form.Notes,
	})
	if err != nil {
		h.fail(w, r, err, "/dashboard")
		return
	}

	h.redirect(w, r, "/dashboard", "Customer added successfully")
}

// CustomerDetail отдаёт карточку клиента с оплатами.
func (h *Handler) CustomerDetail(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	d, err := h.service.GetCustomerDetail(r.Context(), actor, id)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.writeView(w, r, d)
}

// AddPayment регистрирует оплату клиента.
func (h *Handler) AddPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	back := customerPath(id)

	form := paymentForm{Amount: formValue(r, "amount")}
	if err := validation.Struct(form); err != nil {
		h.fail(w, r, err, back)
		return
	}

	amount, err := validation.Amount("amount", form.Amount)
	if err != nil {
		h.fail(w, r, err, back)
		return
	}

	if _, err := h.service.AddPayment(r.Context(), actor, id, amount); err != nil {
		h.fail(w, r, err, back)
		return
	}

	h.redirect(w, r, back, "Payment added")
}

// EndCustomer завершает отношения с клиентом.
func (h *Handler) EndCustomer(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	back := customerPath(id)

	if err := h.service.EndCustomer(r.Context(), actor, id); err != nil {
		h.fail(w, r, err, back)
		return
	}

	h.redirect(w, r, back, "Customer operation ended")
}

// DeleteCustomer удаляет завершённого клиента.
func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	c, err := h.service.DeleteCustomer(r.Context(), actor, id)
	if err != nil {
		h.fail(w, r, err, customerPath(id))
		return
	}

	h.redirect(w, r, userPath(c.UserID), "Customer deleted")
}
