// Package handler содержит HTTP-обработчики сервиса учёта платежей.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/paybook/internal/backup"
	"github.com/mmeshcher/paybook/internal/middleware"
	"github.com/mmeshcher/paybook/internal/model"
	"github.com/mmeshcher/paybook/internal/repository"
	"github.com/mmeshcher/paybook/internal/service"
	"github.com/mmeshcher/paybook/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error

	RegisterUser(ctx context.Context, in service.RegisterInput) (*model.User, error)
	AuthenticateUser(ctx context.Context, username, password string) (*model.User, error)
	ListUsers(ctx context.Context, actor *model.User) ([]service.UserTotal, error)
	GetUserDetail(ctx context.Context, actor *model.User, id int64) (*service.UserDetail, error)
	GetUserForEdit(ctx context.Context, actor *model.User, id int64) (*model.User, error)
	EditUser(ctx context.Context, actor *model.User, id int64, in service.UserUpdate) error
	ToggleUserStatus(ctx context.Context, actor *model.User, id int64) (model.UserStatus, error)

	GetDashboard(ctx context.Context, actor *model.User) (*service.Dashboard, error)
	AddCustomer(ctx context.Context, actor *model.User, in service.CustomerInput) (*model.Customer, error)
	GetCustomerDetail(ctx context.Context, actor *model.User, id int64) (*service.CustomerDetail, error)
	AddPayment(ctx context.Context, actor *model.User, customerID int64, amount model.Money) (*model.Payment, error)
	EndCustomer(ctx context.Context, actor *model.User, id int64) error
	DeleteCustomer(ctx context.Context, actor *model.User, id int64) (*model.Customer, error)
	RecordDelivery(ctx context.Context, actor *model.User, userID int64, in service.DeliveryInput) (*model.UserPayment, error)

	GetReports(ctx context.Context, actor *model.User) (*service.Report, error)
	GetSettings(ctx context.Context, actor *model.User) (*model.Settings, error)
	SaveSettings(ctx context.Context, actor *model.User, s model.Settings) error
	Backup(ctx context.Context, actor *model.User) (string, error)
	Export(ctx context.Context, actor *model.User) (*model.Dump, error)
	Restore(ctx context.Context, actor *model.User, filename string, src io.Reader) error
}

// Handler реализует HTTP-обработчики сервиса.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

// Тексты уведомлений.
const (
	noticeAccessDenied      = "Access denied"
	noticeInvalidLogin      = "Invalid username or password"
	noticeAccountDisabled   = "Account is disabled"
	noticeUserExists        = "Username already exists"
	noticeCustomerNotEnded  = "Only ended customers can be deleted"
	noticeManagerStatus     = "Cannot disable a manager"
	noticeInvalidSnapshot   = "Invalid file, please choose a .db file"
	noticeSnapshotsDisabled = "Backups are available only for the SQLite store"
	noticeOperationFailed   = "Operation failed"
)

const noticeCookieName = "notice"

type viewResponse struct {
	Notice string `json:"notice,omitempty"`
	Data   any    `json:"data,omitempty"`
}

func setNotice(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     noticeCookieName,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(msg)),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popNotice возвращает отложенное уведомление и удаляет его cookie.
func popNotice(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(noticeCookieName)
	if err != nil {
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     noticeCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	msg, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return ""
	}
	return string(msg)
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, path, notice string) {
	if notice != "" {
		setNotice(w, notice)
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

func (h *Handler) writeView(w http.ResponseWriter, r *http.Request, data any) {
	resp := viewResponse{Notice: popNotice(w, r), Data: data}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("encode view error", zap.Error(err), zap.String("path", r.URL.Path))
	}
}

func validationNotice(err error) string {
	var ve *validation.Error
	if errors.As(err, &ve) {
		return "Invalid or missing fields: " + strings.Join(ve.Fields, ", ")
	}
	return "Invalid input"
}

// fail переводит ошибку сервиса в ответ. back задаёт страницу возврата для уведомления;
// пустой back означает GET-представление, для которого сбой хранилища даёт 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, back string) {
	var notice string

	switch {
	case errors.Is(err, service.ErrForbidden):
		h.redirect(w, r, "/dashboard", noticeAccessDenied)
		return
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	case validation.IsValidationError(err):
		notice = validationNotice(err)
	case errors.Is(err, backup.ErrUnknownInterval):
		notice = validationNotice(validation.NewError("backup_interval"))
	case errors.Is(err, repository.ErrUserExists):
		notice = noticeUserExists
	case errors.Is(err, repository.ErrCustomerNotEnded):
		notice = noticeCustomerNotEnded
	case errors.Is(err, service.ErrManagerStatus):
		notice = noticeManagerStatus
	case errors.Is(err, service.ErrSnapshotFormat), errors.Is(err, repository.ErrInvalidSnapshot):
		notice = noticeInvalidSnapshot
	case errors.Is(err, repository.ErrSnapshotUnsupported):
		notice = noticeSnapshotsDisabled
	default:
		fields := []zap.Field{zap.Error(err), zap.String("path", r.URL.Path)}
		if u, ok := middleware.UserFromContext(r.Context()); ok {
			fields = append(fields, zap.Int64("userID", u.ID))
		}
		h.logger.Error("request failed", fields...)

		if back == "" {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		notice = noticeOperationFailed
	}

	if back == "" {
		back = "/dashboard"
	}
	h.redirect(w, r, back, notice)
}

// currentUser возвращает пользователя сессии. Маршруты с сессией всегда проходят через AuthMiddleware.
func currentUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return nil, false
	}
	return u, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return 0, false
	}
	return id, true
}

func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.PostFormValue(key))
}

// Healthz сообщает о доступности сервиса и хранилища.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Error("health check error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
