// Package validation содержит проверку входных данных форм.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mmeshcher/paybook/internal/model"
)

// DateLayout задаёт формат даты в полях форм.
const DateLayout = "2006-01-02"

// Error описывает отклонённые поля формы.
type Error struct {
	Fields []string
}

func (e *Error) Error() string {
	return "invalid fields: " + strings.Join(e.Fields, ", ")
}

// NewError создаёт ошибку валидации для перечисленных полей.
func NewError(fields ...string) *Error {
	return &Error{Fields: fields}
}

// IsValidationError сообщает, является ли err ошибкой валидации.
func IsValidationError(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := f.Tag.Get("form")
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Struct проверяет структуру по тегам validate и возвращает *Error со списком полей.
func Struct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return NewError(fields...)
}

// Amount разбирает денежное поле формы и требует положительного значения.
func Amount(field, raw string) (model.Money, error) {
	m, err := model.ParseMoney(raw)
	if err != nil || m <= 0 {
		return 0, NewError(field)
	}
	return m, nil
}

// NonNegativeAmount разбирает денежное поле формы, допуская ноль.
func NonNegativeAmount(field, raw string) (model.Money, error) {
	m, err := model.ParseMoney(raw)
	if err != nil || m < 0 {
		return 0, NewError(field)
	}
	return m, nil
}

// Date разбирает необязательное поле даты YYYY-MM-DD; пустое значение заменяется на now.
func Date(field, raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now, nil
	}
	d, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, NewError(field)
	}
	return d, nil
}
