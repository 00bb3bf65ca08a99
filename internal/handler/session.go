package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/paybook/internal/middleware"
	"github.com/mmeshcher/paybook/internal/model"
	"github.com/mmeshcher/paybook/internal/service"
	"github.com/mmeshcher/paybook/internal/validation"
)

type loginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

type registerForm struct {
	Username string `form:"username" validate:"required,max=80"`
	Name     string `form:"name" validate:"required,max=120"`
	Password string `form:"password" validate:"required"`
	Role     string `form:"role" validate:"required,oneof=manager user"`
}

// Index перенаправляет на страницу входа.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// LoginPage отдаёт данные страницы входа.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.writeView(w, r, nil)
}

// Login выполняет аутентификацию пользователя и выдаёт сессию.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	form := loginForm{
		Username: formValue(r, "username"),
		Password: r.PostFormValue("password"),
	}
	if err := validation.Struct(form); err != nil {
		h.redirect(w, r, "/login", noticeInvalidLogin)
		return
	}

	u, err := h.service.AuthenticateUser(r.Context(), form.Username, form.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			h.redirect(w, r, "/login", noticeInvalidLogin)
		case errors.Is(err, service.ErrAccountDisabled):
			h.redirect(w, r, "/login", noticeAccountDisabled)
		default:
			h.logger.Error("login user error", zap.Error(err))
			h.redirect(w, r, "/login", noticeOperationFailed)
		}
		return
	}

	if err := h.authMiddleware.SetSessionCookie(w, u.ID); err != nil {
		h.logger.Error("issue session error", zap.Error(err), zap.Int64("userID", u.ID))
		h.redirect(w, r, "/login", noticeOperationFailed)
		return
	}

	h.redirect(w, r, "/dashboard", "")
}

// RegisterPage отдаёт данные страницы регистрации.
func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.writeView(w, r, nil)
}

// Register регистрирует нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	form := registerForm{
		Username: formValue(r, "username"),
		Name:     formValue(r, "name"),
		Password: r.PostFormValue("password"),
		Role:     formValue(r, "role"),
	}
	if err := validation.Struct(form); err != nil {
		h.fail(w, r, err, "/register")
		return
	}

	_, err := h.service.RegisterUser(r.Context(), service.RegisterInput{
		Username: form.Username,
		Name:     form.Name,
		Password: form.Password,
		Role:     model.Role(form.Role),
	})
	if err != nil {
		h.fail(w, r, err, "/register")
		return
	}

	h.redirect(w, r, "/login", "Account created")
}

// Logout завершает сессию.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearSessionCookie(w)
	h.redirect(w, r, "/login", "")
}
